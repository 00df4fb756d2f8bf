package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studysync-backend/internal/http/response"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/services"
)

type SeriesHandler struct {
	outlineService services.OutlineService
}

func NewSeriesHandler(outlineService services.OutlineService) *SeriesHandler {
	return &SeriesHandler{outlineService: outlineService}
}

// GET /api/series
func (h *SeriesHandler) ListSeries(c *gin.Context) {
	out, err := h.outlineService.ListSeries(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"series": out})
}

// GET /api/series/:slug
func (h *SeriesHandler) GetSeries(c *gin.Context) {
	s, err := h.outlineService.GetSeries(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"series": s})
}

// GET /api/series/:slug/weeks/:number
func (h *SeriesHandler) GetWeek(c *gin.Context) {
	n, ok := weekNumber(c)
	if !ok {
		return
	}
	v, err := h.outlineService.GetWeek(c.Request.Context(), c.Param("slug"), n)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, v)
}

// GET /api/series/:slug/weeks/:number/present
func (h *SeriesHandler) Present(c *gin.Context) {
	n, ok := weekNumber(c)
	if !ok {
		return
	}
	v, err := h.outlineService.Present(c.Request.Context(), c.Param("slug"), n)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, v)
}

// GET /api/series/:slug/weeks/:number/control
func (h *SeriesHandler) Control(c *gin.Context) {
	n, ok := weekNumber(c)
	if !ok {
		return
	}
	v, err := h.outlineService.Control(c.Request.Context(), c.Param("slug"), n)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, v)
}

func weekNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		response.RespondAPIError(c, apierr.NotFound("week"))
		return 0, false
	}
	return n, true
}
