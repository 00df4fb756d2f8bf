package navigation

import (
	"encoding/json"
	"slices"
	"strconv"
)

// RevealKey identifies one expanded reference item. It is built only through
// NewRevealKey and otherwise treated as opaque.
type RevealKey string

func NewRevealKey(section, item int) RevealKey {
	return RevealKey(strconv.Itoa(section) + "-" + strconv.Itoa(item))
}

// State is the navigation cursor of one week in its public shape.
type State struct {
	SectionIndex           int         `json:"sectionIndex"`
	ItemIndex              int         `json:"itemIndex"`
	RevealedRefs           []RevealKey `json:"revealedRefs"`
	HighlightedPromptIndex *int        `json:"highlightedPromptIndex"`
	Active                 bool        `json:"active"`
}

// Default is the state of a week nobody has presented yet.
func Default() State {
	return State{RevealedRefs: []RevealKey{}}
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	out := s
	out.RevealedRefs = slices.Clone(s.RevealedRefs)
	if out.RevealedRefs == nil {
		out.RevealedRefs = []RevealKey{}
	}
	if s.HighlightedPromptIndex != nil {
		v := *s.HighlightedPromptIndex
		out.HighlightedPromptIndex = &v
	}
	return out
}

func (s State) IsRevealed(section, item int) bool {
	return slices.Contains(s.RevealedRefs, NewRevealKey(section, item))
}

func (s State) MarshalJSON() ([]byte, error) {
	type wire State
	w := wire(s)
	if w.RevealedRefs == nil {
		w.RevealedRefs = []RevealKey{}
	}
	return json.Marshal(w)
}

// toggle flips membership of key, keeping the order of the remaining keys.
// Every copy of key goes when it is present.
func toggle(keys []RevealKey, key RevealKey) []RevealKey {
	if slices.Contains(keys, key) {
		return slices.DeleteFunc(slices.Clone(keys), func(k RevealKey) bool { return k == key })
	}
	return append(slices.Clone(keys), key)
}

// dedupe copies keys, keeping the first occurrence of each.
func dedupe(keys []RevealKey) []RevealKey {
	out := make([]RevealKey, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// Cursor is the part of State returned by cursor moves.
type Cursor struct {
	SectionIndex           int         `json:"sectionIndex"`
	ItemIndex              int         `json:"itemIndex"`
	RevealedRefs           []RevealKey `json:"revealedRefs"`
	HighlightedPromptIndex *int        `json:"highlightedPromptIndex"`
}

func (s State) Cursor() Cursor {
	c := s.Clone()
	return Cursor{
		SectionIndex:           c.SectionIndex,
		ItemIndex:              c.ItemIndex,
		RevealedRefs:           c.RevealedRefs,
		HighlightedPromptIndex: c.HighlightedPromptIndex,
	}
}
