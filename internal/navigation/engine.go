package navigation

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeIndex    = errors.New("index must be >= 0")
	ErrCursorOutOfRange = errors.New("cursor does not index the active view")
)

// Action labels the broadcast emitted for an operation.
type Action string

const (
	ActionUpdate       Action = "update"
	ActionNext         Action = "next"
	ActionPrevious     Action = "previous"
	ActionToggleReveal Action = "toggleReveal"
	ActionSetHighlight Action = "setHighlight"
)

// Shape holds the item count of every section of the active view.
type Shape []int

// Contains reports whether (section, item) is a valid cursor. The first slot
// of an empty section counts as valid since Retreat can land there.
func (sh Shape) Contains(section, item int) bool {
	if section < 0 || section >= len(sh) || item < 0 {
		return false
	}
	return item < sh[section] || (sh[section] == 0 && item == 0)
}

// Operation is one mutation of the navigation state.
type Operation interface {
	Action() Action
	apply(sh Shape, s State) (State, error)
}

// Apply computes the state that results from op. The input state is never
// modified.
func Apply(sh Shape, s State, op Operation) (State, error) {
	if op == nil {
		return s, errors.New("nil operation")
	}
	return op.apply(sh, s.Clone())
}

// CheckCursor rejects states whose cursor falls outside sh.
func CheckCursor(sh Shape, s State) error {
	if len(sh) == 0 && s.SectionIndex == 0 && s.ItemIndex == 0 {
		return nil
	}
	if !sh.Contains(s.SectionIndex, s.ItemIndex) {
		return fmt.Errorf("%w: section %d item %d", ErrCursorOutOfRange, s.SectionIndex, s.ItemIndex)
	}
	return nil
}

func nonNegative(field string, v int) error {
	if v < 0 {
		return fmt.Errorf("%w: %s=%d", ErrNegativeIndex, field, v)
	}
	return nil
}

// Advance moves to the next item, rolling into the next section. At the last
// item of the last section the cursor stays put.
type Advance struct{}

func (Advance) Action() Action { return ActionNext }

func (Advance) apply(sh Shape, s State) (State, error) {
	s.HighlightedPromptIndex = nil
	if len(sh) == 0 {
		return s, nil
	}
	if err := CheckCursor(sh, s); err != nil {
		return s, err
	}
	switch {
	case s.ItemIndex < sh[s.SectionIndex]-1:
		s.ItemIndex++
	case s.SectionIndex < len(sh)-1:
		s.SectionIndex++
		s.ItemIndex = 0
	}
	return s, nil
}

// Retreat mirrors Advance. Moving back into an empty section lands on index 0.
type Retreat struct{}

func (Retreat) Action() Action { return ActionPrevious }

func (Retreat) apply(sh Shape, s State) (State, error) {
	s.HighlightedPromptIndex = nil
	if len(sh) == 0 {
		return s, nil
	}
	if err := CheckCursor(sh, s); err != nil {
		return s, err
	}
	switch {
	case s.ItemIndex > 0:
		s.ItemIndex--
	case s.SectionIndex > 0:
		s.SectionIndex--
		s.ItemIndex = max(sh[s.SectionIndex]-1, 0)
	}
	return s, nil
}

// JumpTo sets the cursor directly. Range checks against the outline are left
// to the caller through CheckCursor.
type JumpTo struct {
	Section int
	Item    int
}

func (JumpTo) Action() Action { return ActionUpdate }

func (j JumpTo) apply(_ Shape, s State) (State, error) {
	if err := errors.Join(nonNegative("section_index", j.Section), nonNegative("item_index", j.Item)); err != nil {
		return s, err
	}
	s.SectionIndex = j.Section
	s.ItemIndex = j.Item
	s.HighlightedPromptIndex = nil
	return s, nil
}

type ToggleReveal struct {
	Section int
	Item    int
}

func (ToggleReveal) Action() Action { return ActionToggleReveal }

func (t ToggleReveal) apply(_ Shape, s State) (State, error) {
	if err := errors.Join(nonNegative("section_index", t.Section), nonNegative("item_index", t.Item)); err != nil {
		return s, err
	}
	s.RevealedRefs = toggle(s.RevealedRefs, NewRevealKey(t.Section, t.Item))
	return s, nil
}

// SetHighlight sets or clears the highlighted prompt. The prompt count of the
// current item is not consulted.
type SetHighlight struct {
	Prompt *int
}

func (SetHighlight) Action() Action { return ActionSetHighlight }

func (h SetHighlight) apply(_ Shape, s State) (State, error) {
	if h.Prompt == nil {
		s.HighlightedPromptIndex = nil
		return s, nil
	}
	if err := nonNegative("prompt_index", *h.Prompt); err != nil {
		return s, err
	}
	v := *h.Prompt
	s.HighlightedPromptIndex = &v
	return s, nil
}

// Optional is a field that may be absent from a SetFields request.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// SetFields overwrites any subset of the state. Each field is validated on its
// own; no cross-field check is made.
type SetFields struct {
	SectionIndex           Optional[int]
	ItemIndex              Optional[int]
	RevealedRefs           Optional[[]RevealKey]
	HighlightedPromptIndex Optional[*int]
	Active                 Optional[bool]
}

func (SetFields) Action() Action { return ActionUpdate }

func (f SetFields) apply(_ Shape, s State) (State, error) {
	var errs []error
	if f.SectionIndex.Set {
		errs = append(errs, nonNegative("section_index", f.SectionIndex.Value))
	}
	if f.ItemIndex.Set {
		errs = append(errs, nonNegative("item_index", f.ItemIndex.Value))
	}
	if f.HighlightedPromptIndex.Set && f.HighlightedPromptIndex.Value != nil {
		errs = append(errs, nonNegative("highlighted_prompt_index", *f.HighlightedPromptIndex.Value))
	}
	if err := errors.Join(errs...); err != nil {
		return s, err
	}

	if f.SectionIndex.Set {
		s.SectionIndex = f.SectionIndex.Value
	}
	if f.ItemIndex.Set {
		s.ItemIndex = f.ItemIndex.Value
	}
	if f.RevealedRefs.Set {
		s.RevealedRefs = dedupe(f.RevealedRefs.Value)
	}
	if f.HighlightedPromptIndex.Set {
		s.HighlightedPromptIndex = nil
		if f.HighlightedPromptIndex.Value != nil {
			v := *f.HighlightedPromptIndex.Value
			s.HighlightedPromptIndex = &v
		}
	}
	if f.Active.Set {
		s.Active = f.Active.Value
	}
	return s, nil
}

// MovesCursor reports whether op may change the cursor position.
func MovesCursor(op Operation) bool {
	switch o := op.(type) {
	case Advance, Retreat, JumpTo:
		return true
	case SetFields:
		return o.SectionIndex.Set || o.ItemIndex.Set
	default:
		return false
	}
}
