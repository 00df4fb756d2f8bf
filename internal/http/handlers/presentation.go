package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/http/response"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/services"
)

type PresentationHandler struct {
	presentationService services.PresentationService
}

func NewPresentationHandler(presentationService services.PresentationService) *PresentationHandler {
	return &PresentationHandler{presentationService: presentationService}
}

type indexPair struct {
	SectionIndex *int `json:"section_index"`
	ItemIndex    *int `json:"item_index"`
}

func (p indexPair) require() (int, int, error) {
	if p.SectionIndex == nil {
		return 0, 0, apierr.Validation("", errors.New("section_index is required"))
	}
	if p.ItemIndex == nil {
		return 0, 0, apierr.Validation("", errors.New("item_index is required"))
	}
	return *p.SectionIndex, *p.ItemIndex, nil
}

// GET /api/weeks/:id/presentation/state
func (h *PresentationHandler) GetState(c *gin.Context) {
	weekID, ok := weekID(c)
	if !ok {
		return
	}
	st, err := h.presentationService.GetState(c.Request.Context(), weekID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": st})
}

// POST /api/weeks/:id/presentation/next
func (h *PresentationHandler) Next(c *gin.Context) {
	h.moveCursor(c, navigation.Advance{})
}

// POST /api/weeks/:id/presentation/previous
func (h *PresentationHandler) Previous(c *gin.Context) {
	h.moveCursor(c, navigation.Retreat{})
}

// POST /api/weeks/:id/presentation/jump
// body: { "section_index": 1, "item_index": 0 }
func (h *PresentationHandler) Jump(c *gin.Context) {
	var req indexPair
	if !bindBody(c, &req) {
		return
	}
	s, i, err := req.require()
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.moveCursor(c, navigation.JumpTo{Section: s, Item: i})
}

// POST /api/weeks/:id/presentation/toggle-reveal
// body: { "section_index": 1, "item_index": 2 }
func (h *PresentationHandler) ToggleReveal(c *gin.Context) {
	var req indexPair
	if !bindBody(c, &req) {
		return
	}
	s, i, err := req.require()
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	st, ok := h.apply(c, navigation.ToggleReveal{Section: s, Item: i})
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"success": true, "revealedRefs": st.Clone().RevealedRefs})
}

// POST /api/weeks/:id/presentation/highlight
// body: { "prompt_index": 0 } or { "prompt_index": null }
func (h *PresentationHandler) Highlight(c *gin.Context) {
	var req struct {
		PromptIndex *int `json:"prompt_index"`
	}
	if !bindBody(c, &req) {
		return
	}
	st, ok := h.apply(c, navigation.SetHighlight{Prompt: req.PromptIndex})
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"success": true, "highlightedPromptIndex": st.HighlightedPromptIndex})
}

// POST /api/weeks/:id/presentation/state
// Every key is optional; "highlighted_prompt_index": null clears the highlight.
func (h *PresentationHandler) UpdateState(c *gin.Context) {
	var raw map[string]json.RawMessage
	if !bindBody(c, &raw) {
		return
	}
	op, err := decodeSetFields(raw)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	st, ok := h.apply(c, op)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"success": true, "state": st})
}

func (h *PresentationHandler) moveCursor(c *gin.Context, op navigation.Operation) {
	st, ok := h.apply(c, op)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"success": true, "state": st.Cursor()})
}

func (h *PresentationHandler) apply(c *gin.Context, op navigation.Operation) (navigation.State, bool) {
	id, ok := weekID(c)
	if !ok {
		return navigation.State{}, false
	}
	st, err := h.presentationService.Apply(c.Request.Context(), id, op)
	if err != nil {
		response.RespondAPIError(c, err)
		return navigation.State{}, false
	}
	return st, true
}

func weekID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.NotFound("week"))
		return uuid.Nil, false
	}
	return id, true
}

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func decodeSetFields(raw map[string]json.RawMessage) (navigation.SetFields, error) {
	var op navigation.SetFields
	var err error
	if op.SectionIndex, err = field[int](raw, "section_index", false); err != nil {
		return op, err
	}
	if op.ItemIndex, err = field[int](raw, "item_index", false); err != nil {
		return op, err
	}
	if op.RevealedRefs, err = field[[]navigation.RevealKey](raw, "revealed_refs", false); err != nil {
		return op, err
	}
	if op.HighlightedPromptIndex, err = field[*int](raw, "highlighted_prompt_index", true); err != nil {
		return op, err
	}
	if op.Active, err = field[bool](raw, "is_active", false); err != nil {
		return op, err
	}
	return op, nil
}

// field decodes raw[key] when present. An explicit null is accepted only for
// nullable fields, where it is a set zero value.
func field[T any](raw map[string]json.RawMessage, key string, nullable bool) (navigation.Optional[T], error) {
	msg, ok := raw[key]
	if !ok {
		return navigation.Optional[T]{}, nil
	}
	if !nullable && bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return navigation.Optional[T]{}, apierr.Validation("", fmt.Errorf("%s must not be null", key))
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		return navigation.Optional[T]{}, apierr.Validation("", fmt.Errorf("%s has the wrong type", key))
	}
	return navigation.Some(v), nil
}
