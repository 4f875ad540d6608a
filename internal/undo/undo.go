package undo

import (
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"go.uber.org/zap"
)

// Kind identifies a reversible game edit.
type Kind string

const (
	KindPocketBall     Kind = "pocket_ball"
	KindSetGroup       Kind = "set_group"
	KindGoldenBreak    Kind = "golden_break"
	KindEarlyEightBall Kind = "early_8ball"
	KindDeclareWinner  Kind = "declare_winner"
)

// Action is an immutable record of one reversible game edit plus the data
// needed to reverse or reapply it. The manager never interprets Data; the
// owning view does.
type Action struct {
	Kind        Kind
	Timestamp   time.Time
	Data        map[string]any
	Description string
}

// ActionListener receives a recorded/undone/redone action.
type ActionListener func(Action)

// StackListener receives undo/redo availability after a stack change.
type StackListener func(canUndo, canRedo bool)

type actionEntry struct {
	id int
	fn ActionListener
}

type stackEntry struct {
	id int
	fn StackListener
}

const DefaultMaxHistory = 50

// Manager keeps bounded undo/redo stacks of game actions. It is owned by a
// single scorecard session and is not safe for concurrent use; the owning
// session serializes access.
type Manager struct {
	maxHistory int
	undoStack  []Action
	redoStack  []Action

	nextCbID  int
	onAction  []actionEntry
	onUndo    []actionEntry
	onRedo    []actionEntry
	onStack   []stackEntry
}

type Option func(*Manager)

func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{maxHistory: DefaultMaxHistory}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxHistory returns the configured stack bound.
func (m *Manager) MaxHistory() int { return m.maxHistory }

// Clear empties both stacks.
func (m *Manager) Clear() {
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
	m.notifyStackChange()
}

// RecordAction appends a new action to the undo stack and clears the redo
// stack. Data is deep-copied so later in-place mutation by the caller cannot
// corrupt history. When the stack grows past the bound, the oldest entry is
// evicted from the bottom.
func (m *Manager) RecordAction(kind Kind, data map[string]any, description string) Action {
	action := Action{
		Kind:        kind,
		Timestamp:   time.Now(),
		Data:        deepCopyMap(data),
		Description: description,
	}

	m.undoStack = append(m.undoStack, action)
	m.redoStack = m.redoStack[:0]

	if len(m.undoStack) > m.maxHistory {
		n := copy(m.undoStack, m.undoStack[1:])
		m.undoStack = m.undoStack[:n]
	}

	m.notifyAction(m.onAction, action)
	m.notifyStackChange()
	return action
}

// CanUndo reports whether there are actions to undo.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether there are actions to redo.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// Undo pops the most recent action onto the redo stack and returns it so the
// caller can apply its inverse. The second return is false when there is
// nothing to undo.
func (m *Manager) Undo() (Action, bool) {
	if len(m.undoStack) == 0 {
		return Action{}, false
	}

	action := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.redoStack = append(m.redoStack, action)

	m.notifyAction(m.onUndo, action)
	m.notifyStackChange()
	return action, true
}

// Redo pops the most recently undone action back onto the undo stack and
// returns it so the caller can reapply it.
func (m *Manager) Redo() (Action, bool) {
	if len(m.redoStack) == 0 {
		return Action{}, false
	}

	action := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.undoStack = append(m.undoStack, action)

	m.notifyAction(m.onRedo, action)
	m.notifyStackChange()
	return action, true
}

// PeekUndo returns the next action to undo without removing it.
func (m *Manager) PeekUndo() (Action, bool) {
	if len(m.undoStack) == 0 {
		return Action{}, false
	}
	return m.undoStack[len(m.undoStack)-1], true
}

// PeekRedo returns the next action to redo without removing it.
func (m *Manager) PeekRedo() (Action, bool) {
	if len(m.redoStack) == 0 {
		return Action{}, false
	}
	return m.redoStack[len(m.redoStack)-1], true
}

// UndoDescription returns the label for the next undo, or "".
func (m *Manager) UndoDescription() string {
	if a, ok := m.PeekUndo(); ok {
		return a.Description
	}
	return ""
}

// RedoDescription returns the label for the next redo, or "".
func (m *Manager) RedoDescription() string {
	if a, ok := m.PeekRedo(); ok {
		return a.Description
	}
	return ""
}

func (m *Manager) UndoCount() int { return len(m.undoStack) }
func (m *Manager) RedoCount() int { return len(m.redoStack) }

// OnAction registers a listener fired when a new action is recorded.
// The returned id can be passed to RemoveListener.
func (m *Manager) OnAction(fn ActionListener) int {
	m.nextCbID++
	m.onAction = append(m.onAction, actionEntry{id: m.nextCbID, fn: fn})
	return m.nextCbID
}

// OnUndo registers a listener fired when an action is undone.
func (m *Manager) OnUndo(fn ActionListener) int {
	m.nextCbID++
	m.onUndo = append(m.onUndo, actionEntry{id: m.nextCbID, fn: fn})
	return m.nextCbID
}

// OnRedo registers a listener fired when an action is redone.
func (m *Manager) OnRedo(fn ActionListener) int {
	m.nextCbID++
	m.onRedo = append(m.onRedo, actionEntry{id: m.nextCbID, fn: fn})
	return m.nextCbID
}

// OnStackChange registers a listener fired whenever undo/redo availability
// may have changed.
func (m *Manager) OnStackChange(fn StackListener) int {
	m.nextCbID++
	m.onStack = append(m.onStack, stackEntry{id: m.nextCbID, fn: fn})
	return m.nextCbID
}

// RemoveListener unregisters a listener by the id returned at registration.
func (m *Manager) RemoveListener(id int) {
	m.onAction = removeAction(m.onAction, id)
	m.onUndo = removeAction(m.onUndo, id)
	m.onRedo = removeAction(m.onRedo, id)
	for i, e := range m.onStack {
		if e.id == id {
			m.onStack = append(m.onStack[:i], m.onStack[i+1:]...)
			break
		}
	}
}

func removeAction(entries []actionEntry, id int) []actionEntry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

// notifyAction dispatches synchronously in registration order. A panicking
// listener is recovered and logged so one misbehaving observer cannot block
// the mutation path or later listeners.
func (m *Manager) notifyAction(entries []actionEntry, action Action) {
	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					obslog.L().Warn("undo_listener_panic",
						zap.String("kind", string(action.Kind)),
						zap.Any("panic", r),
					)
				}
			}()
			e.fn(action)
		}()
	}
}

func (m *Manager) notifyStackChange() {
	canUndo, canRedo := m.CanUndo(), m.CanRedo()
	for _, e := range m.onStack {
		func() {
			defer func() {
				if r := recover(); r != nil {
					obslog.L().Warn("undo_listener_panic",
						zap.String("kind", "stack_change"),
						zap.Any("panic", r),
					)
				}
			}()
			e.fn(canUndo, canRedo)
		}()
	}
}

// deepCopyMap copies nested maps, slices and snapshots so recorded payloads
// are independent of their source.
func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case map[int]string:
		dst := make(map[int]string, len(t))
		for k, vv := range t {
			dst[k] = vv
		}
		return dst
	case []any:
		dst := make([]any, len(t))
		for i, vv := range t {
			dst[i] = deepCopyValue(vv)
		}
		return dst
	case []int:
		dst := make([]int, len(t))
		copy(dst, t)
		return dst
	case []string:
		dst := make([]string, len(t))
		copy(dst, t)
		return dst
	case *Snapshot:
		return t.Clone()
	default:
		return v
	}
}
