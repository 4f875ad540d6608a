package undo

import (
	"fmt"
	"testing"
)

func record(m *Manager, desc string) Action {
	return m.RecordAction(KindPocketBall, map[string]any{"ball_num": 1, "team": 1}, desc)
}

func TestRecordUndoRedoScenario(t *testing.T) {
	m := NewManager()

	record(m, "A")
	record(m, "B")
	record(m, "C")

	a, ok := m.Undo()
	if !ok || a.Description != "C" {
		t.Fatalf("first undo: got (%q, %v), want C", a.Description, ok)
	}
	if !m.CanRedo() || !m.CanUndo() {
		t.Fatalf("expected both stacks non-empty: canUndo=%v canRedo=%v", m.CanUndo(), m.CanRedo())
	}

	a, ok = m.Undo()
	if !ok || a.Description != "B" {
		t.Fatalf("second undo: got (%q, %v), want B", a.Description, ok)
	}

	a, ok = m.Redo()
	if !ok || a.Description != "B" {
		t.Fatalf("redo: got (%q, %v), want B", a.Description, ok)
	}

	record(m, "D")
	if m.CanRedo() {
		t.Fatalf("recording must clear the redo stack")
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo after a new record must return the empty sentinel")
	}
}

func TestEmptyStacksAreNoOps(t *testing.T) {
	m := NewManager()
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo on empty stack must report false")
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo on empty stack must report false")
	}
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("empty manager must report no history")
	}
	if m.UndoDescription() != "" || m.RedoDescription() != "" {
		t.Fatalf("descriptions on empty stacks must be empty")
	}
}

func TestMaxHistoryEvictsOldest(t *testing.T) {
	m := NewManager(WithMaxHistory(2))

	record(m, "A")
	record(m, "B")
	record(m, "C")

	if got := m.UndoCount(); got != 2 {
		t.Fatalf("undo count = %d, want 2", got)
	}
	a, _ := m.Undo()
	if a.Description != "C" {
		t.Fatalf("first undo = %q, want C", a.Description)
	}
	a, _ = m.Undo()
	if a.Description != "B" {
		t.Fatalf("second undo = %q, want B (A must be evicted)", a.Description)
	}
	if m.CanUndo() {
		t.Fatalf("A should have been evicted from the bottom")
	}
}

func TestOverflowKeepsMostRecentInOrder(t *testing.T) {
	const max = 5
	m := NewManager(WithMaxHistory(max))
	for i := 0; i < max*3; i++ {
		record(m, fmt.Sprintf("a%d", i))
	}
	if got := m.UndoCount(); got != max {
		t.Fatalf("undo count = %d, want %d", got, max)
	}
	// Popping yields the most recent max actions, newest first.
	for i := max*3 - 1; i >= max*2; i-- {
		a, ok := m.Undo()
		if !ok || a.Description != fmt.Sprintf("a%d", i) {
			t.Fatalf("pop: got (%q, %v), want a%d", a.Description, ok, i)
		}
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := NewManager()
	record(m, "A")
	record(m, "B")
	record(m, "C")

	before := append([]Action(nil), m.undoStack...)

	if _, ok := m.Undo(); !ok {
		t.Fatalf("undo failed")
	}
	if _, ok := m.Redo(); !ok {
		t.Fatalf("redo failed")
	}

	if len(m.undoStack) != len(before) || m.RedoCount() != 0 {
		t.Fatalf("round trip changed stack sizes: undo=%d redo=%d", len(m.undoStack), m.RedoCount())
	}
	for i := range before {
		if m.undoStack[i].Description != before[i].Description {
			t.Fatalf("round trip reordered stack at %d: %q vs %q", i, m.undoStack[i].Description, before[i].Description)
		}
	}
}

func TestPeekDoesNotMutate(t *testing.T) {
	m := NewManager()
	record(m, "A")
	record(m, "B")
	m.Undo()

	for i := 0; i < 3; i++ {
		if a, ok := m.PeekUndo(); !ok || a.Description != "A" {
			t.Fatalf("peek undo: got (%q, %v)", a.Description, ok)
		}
		if a, ok := m.PeekRedo(); !ok || a.Description != "B" {
			t.Fatalf("peek redo: got (%q, %v)", a.Description, ok)
		}
	}
	if m.UndoCount() != 1 || m.RedoCount() != 1 {
		t.Fatalf("peek mutated stacks: undo=%d redo=%d", m.UndoCount(), m.RedoCount())
	}
}

func TestRecordDeepCopiesPayload(t *testing.T) {
	m := NewManager()
	data := map[string]any{
		"balls": map[int]string{1: "table"},
		"tags":  []string{"x"},
	}
	m.RecordAction(KindPocketBall, data, "A")

	// Mutating the caller's payload must not corrupt recorded history.
	data["balls"].(map[int]string)[1] = "pocketed_team1"
	data["tags"].([]string)[0] = "y"

	a, _ := m.PeekUndo()
	if got := a.Data["balls"].(map[int]string)[1]; got != "table" {
		t.Fatalf("nested map aliased: %q", got)
	}
	if got := a.Data["tags"].([]string)[0]; got != "x" {
		t.Fatalf("nested slice aliased: %q", got)
	}
}

func TestListenerOrderAndEvents(t *testing.T) {
	m := NewManager()
	var events []string

	m.OnAction(func(a Action) { events = append(events, "action:"+a.Description) })
	m.OnStackChange(func(canUndo, canRedo bool) {
		events = append(events, fmt.Sprintf("stack:%v/%v", canUndo, canRedo))
	})
	m.OnUndo(func(a Action) { events = append(events, "undo:"+a.Description) })
	m.OnRedo(func(a Action) { events = append(events, "redo:"+a.Description) })

	record(m, "A")
	m.Undo()
	m.Redo()

	want := []string{
		"action:A", "stack:true/false",
		"undo:A", "stack:false/true",
		"redo:A", "stack:true/false",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestPanickingListenerDoesNotBlockRecording(t *testing.T) {
	m := NewManager()
	var secondFired bool

	m.OnAction(func(Action) { panic("boom") })
	m.OnAction(func(Action) { secondFired = true })

	record(m, "A")

	if !secondFired {
		t.Fatalf("listener after a panicking one did not fire")
	}
	if !m.CanUndo() {
		t.Fatalf("action was not recorded despite listener panic")
	}
}

func TestRemoveListener(t *testing.T) {
	m := NewManager()
	var fired int
	id := m.OnAction(func(Action) { fired++ })

	record(m, "A")
	m.RemoveListener(id)
	record(m, "B")

	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestClear(t *testing.T) {
	m := NewManager()
	record(m, "A")
	m.Undo()

	var last string
	m.OnStackChange(func(canUndo, canRedo bool) {
		last = fmt.Sprintf("%v/%v", canUndo, canRedo)
	})

	m.Clear()
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("clear left history behind")
	}
	if last != "false/false" {
		t.Fatalf("stack change after clear = %q", last)
	}
}
