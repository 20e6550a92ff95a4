package engine

import "github.com/etendy/canvas/backend-go/internal/document"

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 30

// History keeps whole-scene snapshots for undo and redo. It never diffs: the
// caller pushes a snapshot before every mutation.
type History struct {
	limit int
	undo  []*document.Scene
	redo  []*document.Scene
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push stores a deep copy of s and discards the redo stack. When the stack is
// full the oldest snapshot is dropped.
func (h *History) Push(s *document.Scene) {
	h.undo = pushBounded(h.undo, s.Clone(), h.limit)
	h.redo = nil
}

// Undo returns the previous snapshot and keeps current for redo. It reports
// false when there is nothing to undo.
func (h *History) Undo(current *document.Scene) (*document.Scene, bool) {
	n := len(h.undo)
	if n == 0 {
		return nil, false
	}
	snap := h.undo[n-1]
	h.undo = h.undo[:n-1]
	h.redo = append(h.redo, current.Clone())
	return snap, true
}

// Redo is the inverse of Undo.
func (h *History) Redo(current *document.Scene) (*document.Scene, bool) {
	n := len(h.redo)
	if n == 0 {
		return nil, false
	}
	snap := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.undo = pushBounded(h.undo, current.Clone(), h.limit)
	return snap, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the number of undo snapshots.
func (h *History) Len() int { return len(h.undo) }

// Reset drops every snapshot.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

func pushBounded(stack []*document.Scene, s *document.Scene, limit int) []*document.Scene {
	stack = append(stack, s)
	if len(stack) > limit {
		stack = stack[len(stack)-limit:]
	}
	return stack
}
