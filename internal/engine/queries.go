package engine

import (
	"encoding/json"
)

// State is the editor state a host reads back after each event to draw its
// chrome (selection box, handles, guides, crop overlay, undo buttons).
type State struct {
	Selection []string     `json:"selection"`
	ActiveID  string       `json:"activeId,omitempty"`
	Bounds    Rect         `json:"bounds"`
	Handles   *Handles     `json:"handles,omitempty"`
	Gesture   GestureKind  `json:"gesture"`
	Guides    Guides       `json:"guides"`
	Crop      *CropSession `json:"crop,omitempty"`
	CanUndo   bool         `json:"canUndo"`
	CanRedo   bool         `json:"canRedo"`
}

// State returns the current editor state.
func (e *Engine) State() State {
	st := State{
		Selection: e.Selection(),
		ActiveID:  e.ActiveID(),
		Bounds:    e.SelectionBounds(),
		Gesture:   e.gesture.Kind,
		Guides:    e.guides,
		Crop:      e.crop,
		CanUndo:   e.CanUndo(),
		CanRedo:   e.CanRedo(),
	}
	if st.Selection == nil {
		st.Selection = []string{}
	}
	if h, ok := e.ActiveHandles(); ok {
		st.Handles = &h
	}
	return st
}

// --- Queries (host ← engine) ---

// StateJSON returns State as JSON.
func (e *Engine) StateJSON() string {
	data, _ := json.Marshal(e.State())
	return string(data)
}

// GetScene returns the scene snapshot as JSON.
func (e *Engine) GetScene() string {
	data, err := e.SceneJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GetSelectionBounds returns the bounding box of the current selection as JSON.
func (e *Engine) GetSelectionBounds() string {
	return RectToJSON(e.SelectionBounds())
}

// GetElementBounds returns the unrotated box of id as JSON, or "null".
func (e *Engine) GetElementBounds(id string) string {
	el := e.scene.Find(id)
	if el == nil {
		return "null"
	}
	r, ok := BoundingRect(el, e.measurer)
	if !ok {
		return "null"
	}
	return RectToJSON(r)
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
