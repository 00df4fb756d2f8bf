package navigation

import (
	"errors"
	"slices"
	"testing"
)

func intPtr(v int) *int { return &v }

func mustApply(t *testing.T, sh Shape, s State, op Operation) State {
	t.Helper()
	out, err := Apply(sh, s, op)
	if err != nil {
		t.Fatalf("apply %s: %v", op.Action(), err)
	}
	return out
}

func TestAdvanceAcrossSectionsThenStops(t *testing.T) {
	sh := Shape{3, 2}
	s := Default()
	s.ItemIndex = 2

	s = mustApply(t, sh, s, Advance{})
	if s.SectionIndex != 1 || s.ItemIndex != 0 {
		t.Fatalf("after first advance: got (%d,%d)", s.SectionIndex, s.ItemIndex)
	}
	s = mustApply(t, sh, s, Advance{})
	if s.SectionIndex != 1 || s.ItemIndex != 1 {
		t.Fatalf("after second advance: got (%d,%d)", s.SectionIndex, s.ItemIndex)
	}
	for i := 0; i < 5; i++ {
		s = mustApply(t, sh, s, Advance{})
		if s.SectionIndex != 1 || s.ItemIndex != 1 {
			t.Fatalf("advance at end moved cursor to (%d,%d)", s.SectionIndex, s.ItemIndex)
		}
	}
}

func TestRetreatAtStartIsStable(t *testing.T) {
	sh := Shape{3, 2}
	s := Default()
	for i := 0; i < 3; i++ {
		s = mustApply(t, sh, s, Retreat{})
		if s.SectionIndex != 0 || s.ItemIndex != 0 {
			t.Fatalf("retreat at start moved cursor to (%d,%d)", s.SectionIndex, s.ItemIndex)
		}
	}
}

func TestRetreatLandsOnLastItemOfPreviousSection(t *testing.T) {
	s := Default()
	s.SectionIndex = 1
	s = mustApply(t, Shape{3, 2}, s, Retreat{})
	if s.SectionIndex != 0 || s.ItemIndex != 2 {
		t.Fatalf("got (%d,%d), want (0,2)", s.SectionIndex, s.ItemIndex)
	}

	s = Default()
	s.SectionIndex = 1
	s = mustApply(t, Shape{0, 2}, s, Retreat{})
	if s.SectionIndex != 0 || s.ItemIndex != 0 {
		t.Fatalf("empty previous section: got (%d,%d), want (0,0)", s.SectionIndex, s.ItemIndex)
	}
}

func TestCursorMovesClearHighlight(t *testing.T) {
	sh := Shape{3, 2}
	for _, k := range []int{0, 1, 7} {
		for _, op := range []Operation{Advance{}, Retreat{}, JumpTo{Section: 1, Item: 1}} {
			s := Default()
			s.SectionIndex, s.ItemIndex = 1, 1
			s.HighlightedPromptIndex = intPtr(k)
			out := mustApply(t, sh, s, op)
			if out.HighlightedPromptIndex != nil {
				t.Fatalf("%s with highlight %d: highlight not cleared", op.Action(), k)
			}
			if s.HighlightedPromptIndex == nil || *s.HighlightedPromptIndex != k {
				t.Fatalf("%s modified its input state", op.Action())
			}
		}
	}
}

func TestHighlightThenAdvanceAtEndClearsWithoutMoving(t *testing.T) {
	sh := Shape{3, 2}
	s := Default()
	s.SectionIndex, s.ItemIndex = 1, 1

	s = mustApply(t, sh, s, SetHighlight{Prompt: intPtr(1)})
	if s.HighlightedPromptIndex == nil || *s.HighlightedPromptIndex != 1 {
		t.Fatalf("highlight not set: %+v", s.HighlightedPromptIndex)
	}
	s = mustApply(t, sh, s, Advance{})
	if s.HighlightedPromptIndex != nil {
		t.Fatalf("highlight survived advance")
	}
	if s.SectionIndex != 1 || s.ItemIndex != 1 {
		t.Fatalf("cursor moved to (%d,%d)", s.SectionIndex, s.ItemIndex)
	}
}

func TestToggleRevealIsInvolution(t *testing.T) {
	s := Default()
	s.RevealedRefs = []RevealKey{"1-0"}

	once := mustApply(t, nil, s, ToggleReveal{Section: 0, Item: 2})
	if !slices.Equal(once.RevealedRefs, []RevealKey{"1-0", "0-2"}) {
		t.Fatalf("after first toggle: %v", once.RevealedRefs)
	}
	if !once.IsRevealed(0, 2) {
		t.Fatalf("IsRevealed(0,2) should be true")
	}
	twice := mustApply(t, nil, once, ToggleReveal{Section: 0, Item: 2})
	if !slices.Equal(twice.RevealedRefs, []RevealKey{"1-0"}) {
		t.Fatalf("after second toggle: %v", twice.RevealedRefs)
	}
	if !slices.Equal(once.RevealedRefs, []RevealKey{"1-0", "0-2"}) {
		t.Fatalf("second toggle modified its input: %v", once.RevealedRefs)
	}
}

func TestToggleRevealHidesDuplicatedKey(t *testing.T) {
	s := mustApply(t, nil, Default(), SetFields{RevealedRefs: Some([]RevealKey{"0-2", "1-0", "0-2"})})
	if !slices.Equal(s.RevealedRefs, []RevealKey{"0-2", "1-0"}) {
		t.Fatalf("setFields kept duplicates: %v", s.RevealedRefs)
	}
	hidden := mustApply(t, nil, s, ToggleReveal{Section: 0, Item: 2})
	if hidden.IsRevealed(0, 2) {
		t.Fatalf("after toggle: %v", hidden.RevealedRefs)
	}

	stored := Default()
	stored.RevealedRefs = []RevealKey{"0-2", "0-2"}
	hidden = mustApply(t, nil, stored, ToggleReveal{Section: 0, Item: 2})
	if len(hidden.RevealedRefs) != 0 {
		t.Fatalf("stored duplicates survived toggle: %v", hidden.RevealedRefs)
	}
}

func TestToggleRevealAcceptsKeysOutsideOutline(t *testing.T) {
	s := mustApply(t, Shape{1}, Default(), ToggleReveal{Section: 9, Item: 9})
	if !s.IsRevealed(9, 9) {
		t.Fatalf("stale key should be stored")
	}
}

func TestNegativeIndicesAreRejected(t *testing.T) {
	ops := []Operation{
		JumpTo{Section: -1},
		JumpTo{Item: -1},
		ToggleReveal{Section: 0, Item: -3},
		SetHighlight{Prompt: intPtr(-1)},
		SetFields{SectionIndex: Some(-2)},
		SetFields{HighlightedPromptIndex: Some(intPtr(-1))},
	}
	for _, op := range ops {
		if _, err := Apply(Shape{3}, Default(), op); !errors.Is(err, ErrNegativeIndex) {
			t.Fatalf("%#v: want ErrNegativeIndex, got %v", op, err)
		}
	}
}

func TestSetFieldsOverwritesOnlyProvidedFields(t *testing.T) {
	s := Default()
	s.SectionIndex, s.ItemIndex = 1, 1
	s.HighlightedPromptIndex = intPtr(2)
	s.RevealedRefs = []RevealKey{"0-0"}

	out := mustApply(t, Shape{3, 2}, s, SetFields{ItemIndex: Some(0), Active: Some(true)})
	if out.SectionIndex != 1 || out.ItemIndex != 0 || !out.Active {
		t.Fatalf("unexpected cursor/active: %+v", out)
	}
	if out.HighlightedPromptIndex == nil || *out.HighlightedPromptIndex != 2 {
		t.Fatalf("highlight should be untouched")
	}
	if !slices.Equal(out.RevealedRefs, []RevealKey{"0-0"}) {
		t.Fatalf("revealed refs should be untouched: %v", out.RevealedRefs)
	}

	cleared := mustApply(t, Shape{3, 2}, out, SetFields{HighlightedPromptIndex: Some[*int](nil), RevealedRefs: Some([]RevealKey{})})
	if cleared.HighlightedPromptIndex != nil || len(cleared.RevealedRefs) != 0 {
		t.Fatalf("explicit clear failed: %+v", cleared)
	}
}

func TestMovesFromStaleCursorAreRejected(t *testing.T) {
	s := Default()
	s.SectionIndex = 4
	for _, op := range []Operation{Advance{}, Retreat{}} {
		if _, err := Apply(Shape{3, 2}, s, op); !errors.Is(err, ErrCursorOutOfRange) {
			t.Fatalf("%s: want ErrCursorOutOfRange, got %v", op.Action(), err)
		}
	}
}

func TestCheckCursor(t *testing.T) {
	sh := Shape{3, 0}
	cases := []struct {
		section, item int
		ok            bool
	}{
		{0, 0, true},
		{0, 2, true},
		{0, 3, false},
		{1, 0, true},
		{1, 1, false},
		{2, 0, false},
	}
	for _, tc := range cases {
		s := Default()
		s.SectionIndex, s.ItemIndex = tc.section, tc.item
		err := CheckCursor(sh, s)
		if (err == nil) != tc.ok {
			t.Fatalf("(%d,%d): ok=%v err=%v", tc.section, tc.item, tc.ok, err)
		}
	}
	if err := CheckCursor(nil, Default()); err != nil {
		t.Fatalf("default cursor on empty outline: %v", err)
	}
}

func TestActionsLabelOperations(t *testing.T) {
	cases := map[Action]Operation{
		ActionNext:         Advance{},
		ActionPrevious:     Retreat{},
		ActionUpdate:       JumpTo{},
		ActionToggleReveal: ToggleReveal{},
		ActionSetHighlight: SetHighlight{},
	}
	for want, op := range cases {
		if op.Action() != want {
			t.Fatalf("%T: want %s got %s", op, want, op.Action())
		}
	}
	if (SetFields{}).Action() != ActionUpdate {
		t.Fatalf("SetFields should broadcast as update")
	}
}

func TestStateJSONUsesEmptyList(t *testing.T) {
	raw, err := State{}.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"sectionIndex":0,"itemIndex":0,"revealedRefs":[],"highlightedPromptIndex":null,"active":false}`
	if string(raw) != want {
		t.Fatalf("json:\nwant %s\ngot  %s", want, raw)
	}
}
