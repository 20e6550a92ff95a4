package session

import (
	"encoding/json"

	"github.com/etendy/canvas/backend-go/internal/capability"
	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/store"
)

// Message is one text frame in either direction. Preview frames are sent as
// binary JPEG messages with no envelope.
type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Server → client
	TypeWelcome    = "welcome"
	TypeSceneState = "scene.state"
	TypeSaved      = "scene.saved"
	TypeError      = "error"

	// Pointer and keyboard
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeKeyDown     = "key.down"

	// Elements and selection
	TypeElementAdd     = "element.add"
	TypeElementUpdate  = "element.update"
	TypeElementRemove  = "element.remove"
	TypeElementReorder = "element.reorder"
	TypeSelect         = "select"

	// Canvas
	TypeBackgroundSet = "background.set"
	TypeOverlaySet    = "overlay.set"
	TypeCanvasResize  = "canvas.resize"

	// History
	TypeUndo = "history.undo"
	TypeRedo = "history.redo"

	// Crop
	TypeCropBegin = "crop.begin"
	TypeCropSet   = "crop.set"
	TypeCropReset = "crop.reset"
	TypeCropEnd   = "crop.end"

	// Scene lifecycle
	TypeSceneLoad    = "scene.load"
	TypeSceneSave    = "scene.save"
	TypePreviewFetch = "preview.request"
)

type WelcomePayload struct {
	SessionID    string         `json:"sessionId"`
	DesignID     string         `json:"designId,omitempty"`
	Capabilities capability.Set `json:"capabilities"`
	Fonts        []string       `json:"fonts,omitempty"`
}

type StatePayload struct {
	State engine.State    `json:"state"`
	Scene json.RawMessage `json:"scene"`
}

type ErrorPayload struct {
	Seq    int64  `json:"seq,omitempty"`
	Reason string `json:"reason"`
}

type PointerPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Shift bool    `json:"shift"`
}

type KeyPayload struct {
	Key         string `json:"key"`
	TextFocused bool   `json:"textFocused"`
}

// AddPayload adds either a full element or one built from Kind. Kind is one
// of shape, text, image or logo.
type AddPayload struct {
	Element       json.RawMessage    `json:"element,omitempty"`
	Kind          string             `json:"kind,omitempty"`
	ShapeType     document.ShapeType `json:"shapeType,omitempty"`
	Content       string             `json:"content,omitempty"`
	Src           string             `json:"src,omitempty"`
	NaturalWidth  float64            `json:"naturalWidth,omitempty"`
	NaturalHeight float64            `json:"naturalHeight,omitempty"`
}

type UpdatePayload struct {
	ID    string         `json:"id"`
	Patch document.Patch `json:"patch"`
}

type IDsPayload struct {
	IDs []string `json:"ids"`
}

type ReorderPayload struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

type CanvasPayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CropBeginPayload struct {
	ID string `json:"id"`
}

// LoadPayload replaces the scene with Scene, or with the stored design
// DesignID when Scene is empty.
type LoadPayload struct {
	Scene    json.RawMessage `json:"scene,omitempty"`
	DesignID string          `json:"designId,omitempty"`
}

type SavePayload struct {
	Name string `json:"name"`
}

type SavedPayload struct {
	Design store.Design `json:"design"`
}
