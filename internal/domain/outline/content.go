package outline

import (
	"encoding/json"
	"fmt"
)

// ContentKind is the wire discriminator of a content item.
type ContentKind string

const (
	KindText            ContentKind = "body"
	KindReference       ContentKind = "scripture"
	KindPrompts         ContentKind = "prompts"
	KindFacilitatorNote ContentKind = "leaderNote"
	KindCallout         ContentKind = "callout"
)

// ContentItem is one of TextItem, ReferenceItem, PromptsItem,
// FacilitatorNoteItem or CalloutItem.
type ContentItem interface {
	Kind() ContentKind
	contentItem()
}

type TextItem struct {
	Text string
}

// ReferenceItem is cited text that the leader can expand on screen.
type ReferenceItem struct {
	Ref  string
	Text string
}

type PromptsItem struct {
	Questions []string
}

// FacilitatorNoteItem is only ever shown in the full view.
type FacilitatorNoteItem struct {
	Text string
}

type CalloutItem struct {
	Title   string
	Content string
}

func (TextItem) Kind() ContentKind            { return KindText }
func (ReferenceItem) Kind() ContentKind       { return KindReference }
func (PromptsItem) Kind() ContentKind         { return KindPrompts }
func (FacilitatorNoteItem) Kind() ContentKind { return KindFacilitatorNote }
func (CalloutItem) Kind() ContentKind         { return KindCallout }

func (TextItem) contentItem()            {}
func (ReferenceItem) contentItem()       {}
func (PromptsItem) contentItem()         {}
func (FacilitatorNoteItem) contentItem() {}
func (CalloutItem) contentItem()         {}

// wireItem is the flat JSON shape shared by every kind.
type wireItem struct {
	Type      ContentKind `json:"type"`
	Text      string      `json:"text,omitempty"`
	Ref       string      `json:"ref,omitempty"`
	Questions []string    `json:"questions,omitempty"`
	Title     string      `json:"title,omitempty"`
	Content   string      `json:"content,omitempty"`
}

func toWire(item ContentItem) (wireItem, error) {
	switch it := item.(type) {
	case TextItem:
		return wireItem{Type: KindText, Text: it.Text}, nil
	case ReferenceItem:
		return wireItem{Type: KindReference, Ref: it.Ref, Text: it.Text}, nil
	case PromptsItem:
		return wireItem{Type: KindPrompts, Questions: it.Questions}, nil
	case FacilitatorNoteItem:
		return wireItem{Type: KindFacilitatorNote, Text: it.Text}, nil
	case CalloutItem:
		return wireItem{Type: KindCallout, Title: it.Title, Content: it.Content}, nil
	default:
		return wireItem{}, fmt.Errorf("unknown content item %T", item)
	}
}

func fromWire(w wireItem) (ContentItem, error) {
	switch w.Type {
	case KindText:
		return TextItem{Text: w.Text}, nil
	case KindReference:
		return ReferenceItem{Ref: w.Ref, Text: w.Text}, nil
	case KindPrompts:
		return PromptsItem{Questions: w.Questions}, nil
	case KindFacilitatorNote:
		return FacilitatorNoteItem{Text: w.Text}, nil
	case KindCallout:
		return CalloutItem{Title: w.Title, Content: w.Content}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", w.Type)
	}
}

// Items is an ordered list of content items with a tagged JSON encoding.
type Items []ContentItem

func (items Items) MarshalJSON() ([]byte, error) {
	out := make([]wireItem, 0, len(items))
	for _, it := range items {
		w, err := toWire(it)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []wireItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Items, 0, len(raw))
	for i, w := range raw {
		it, err := fromWire(w)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, it)
	}
	*items = out
	return nil
}

// VisibleToParticipants reports whether item survives the participant view.
func VisibleToParticipants(item ContentItem) bool {
	switch item.(type) {
	case TextItem, ReferenceItem, PromptsItem, CalloutItem:
		return true
	case FacilitatorNoteItem:
		return false
	default:
		return false
	}
}
