package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/etendy/canvas/backend-go/internal/capability"
	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/typeid"
)

var ErrNotCroppable = errors.New("element cannot be cropped")

// Engine is the scene controller. It owns the scene bundle, the selection,
// the pointer gesture and the undo history, and is driven by one caller at a
// time: it holds no locks.
type Engine struct {
	scene     *document.Scene
	selection []string

	gesture Gesture
	guides  Guides
	crop    *CropSession

	history  *History
	caps     capability.Set
	measurer TextMeasurer
}

type Option func(*Engine)

// WithCapabilities restricts the operations the engine applies.
func WithCapabilities(set capability.Set) Option {
	return func(e *Engine) { e.caps = set }
}

// WithMeasurer sets the text measurer used for text bounding boxes.
func WithMeasurer(m TextMeasurer) Option {
	return func(e *Engine) { e.measurer = m }
}

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.history = NewHistory(n) }
}

// NewEngine creates an engine holding an empty default-sized scene.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scene:    document.NewScene(document.DefaultCanvasSize, document.DefaultCanvasSize),
		gesture:  Gesture{Kind: GestureIdle},
		history:  NewHistory(DefaultHistoryLimit),
		caps:     capability.Unrestricted(),
		measurer: estimateMeasurer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Scene lifecycle ---

// LoadScene replaces the scene from snapshot JSON and resets selection and
// history.
func (e *Engine) LoadScene(data []byte) error {
	s, err := document.Unmarshal(data)
	if err != nil {
		return err
	}
	e.SetScene(s)
	return nil
}

// SetScene installs s as the current scene and resets transient state.
func (e *Engine) SetScene(s *document.Scene) {
	e.scene = s
	e.selection = nil
	e.gesture = Gesture{Kind: GestureIdle}
	e.guides = Guides{}
	e.crop = nil
	e.history.Reset()
}

// Scene returns the live scene. Callers must not mutate it.
func (e *Engine) Scene() *document.Scene { return e.scene }

// Snapshot returns a deep copy of the scene.
func (e *Engine) Snapshot() *document.Scene { return e.scene.Clone() }

// SceneJSON encodes the current scene snapshot.
func (e *Engine) SceneJSON() ([]byte, error) {
	return document.Marshal(e.scene)
}

func (e *Engine) Capabilities() capability.Set { return e.caps }

func (e *Engine) Measurer() TextMeasurer { return e.measurer }

// --- Selection ---

// Selection returns a copy of the selected ids; the first one is primary.
func (e *Engine) Selection() []string {
	return append([]string(nil), e.selection...)
}

// SetSelection replaces the selection, dropping unknown ids.
func (e *Engine) SetSelection(ids []string) {
	var sel []string
	for _, id := range ids {
		if e.scene.Find(id) != nil {
			sel = append(sel, id)
		}
	}
	e.selection = sel
}

// ActiveID returns the primary selected id, or "".
func (e *Engine) ActiveID() string {
	if len(e.selection) == 0 {
		return ""
	}
	return e.selection[0]
}

func (e *Engine) primary() document.Element {
	if len(e.selection) == 0 {
		return nil
	}
	return e.scene.Find(e.selection[0])
}

// SelectionBounds returns the union of the selected elements' boxes.
func (e *Engine) SelectionBounds() Rect {
	var bounds Rect
	for _, id := range e.selection {
		el := e.scene.Find(id)
		if el == nil {
			continue
		}
		if r, ok := BoundingRect(el, e.measurer); ok {
			bounds = bounds.Union(r)
		}
	}
	return bounds
}

// ActiveHandles returns the resize handles of the primary element. Text
// elements have none.
func (e *Engine) ActiveHandles() (Handles, bool) {
	el := e.primary()
	if el == nil {
		return Handles{}, false
	}
	if _, isText := el.(*document.TextElement); isText {
		return Handles{}, false
	}
	r, ok := BoundingRect(el, e.measurer)
	if !ok {
		return Handles{}, false
	}
	return ResizeHandles(r), true
}

func (e *Engine) Gesture() Gesture { return e.gesture }
func (e *Engine) Guides() Guides   { return e.guides }

// HitTest returns the topmost element id at (x, y), or "".
func (e *Engine) HitTest(x, y float64) string {
	return HitTestScene(e.scene, Point{X: x, Y: y}, e.measurer)
}

// --- Mutations ---

// update is the single path through which element properties change. Stale
// ids and rejected patches leave the scene untouched.
func (e *Engine) update(id string, patch document.Patch) bool {
	ok, err := e.scene.Update(id, patch)
	return ok && err == nil
}

// UpdateElement applies patch to id without recording history. It reports
// false for an unknown id.
func (e *Engine) UpdateElement(id string, patch document.Patch) (bool, error) {
	el := e.scene.Find(id)
	if el == nil {
		return false, nil
	}
	if err := e.checkPatch(el, patch); err != nil {
		return false, err
	}
	return e.scene.Update(id, patch)
}

// SetProperties records a history checkpoint and applies patch to id.
func (e *Engine) SetProperties(id string, patch document.Patch) (bool, error) {
	el := e.scene.Find(id)
	if el == nil {
		return false, nil
	}
	if err := e.checkPatch(el, patch); err != nil {
		return false, err
	}
	e.PushSnapshot()
	return e.scene.Update(id, patch)
}

// AddElement appends el on top, assigns an id when missing and selects it.
func (e *Engine) AddElement(el document.Element) error {
	if err := e.checkElement(el); err != nil {
		return err
	}
	b := el.Common()
	if b.ID == "" {
		b.ID = typeid.NewElementID()
	}
	if e.scene.Index(b.ID) >= 0 {
		return fmt.Errorf("%w: %s", document.ErrDuplicateID, b.ID)
	}
	e.PushSnapshot()
	if err := e.scene.Add(el); err != nil {
		return err
	}
	e.selection = []string{b.ID}
	return nil
}

// AddShape adds a default-sized shape centered on the canvas.
func (e *Engine) AddShape(t document.ShapeType) (string, error) {
	el := document.NewShape(t, e.scene.CanvasWidth, e.scene.CanvasHeight)
	if err := e.AddElement(el); err != nil {
		return "", err
	}
	return el.ID, nil
}

// AddText adds a text element anchored at the canvas center.
func (e *Engine) AddText(content string) (string, error) {
	el := document.NewText(content, e.scene.CanvasWidth, e.scene.CanvasHeight)
	if err := e.AddElement(el); err != nil {
		return "", err
	}
	return el.ID, nil
}

// AddImage adds an uncropped image fitted inside the canvas.
func (e *Engine) AddImage(src string, naturalWidth, naturalHeight float64) (string, error) {
	el := document.NewImage(src, naturalWidth, naturalHeight, e.scene.CanvasWidth, e.scene.CanvasHeight)
	if err := e.AddElement(el); err != nil {
		return "", err
	}
	return el.ID, nil
}

// AddLogo adds a logo fitted inside the canvas.
func (e *Engine) AddLogo(src string, naturalWidth, naturalHeight float64) (string, error) {
	el := document.NewLogo(src, naturalWidth, naturalHeight, e.scene.CanvasWidth, e.scene.CanvasHeight)
	if err := e.AddElement(el); err != nil {
		return "", err
	}
	return el.ID, nil
}

// RemoveElements deletes ids from the scene and the selection and returns how
// many elements were removed.
func (e *Engine) RemoveElements(ids ...string) int {
	present := 0
	for _, id := range ids {
		if e.scene.Find(id) != nil {
			present++
		}
	}
	if present == 0 {
		return 0
	}
	e.PushSnapshot()
	removed := e.scene.Remove(ids...)

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var sel []string
	for _, id := range e.selection {
		if !drop[id] {
			sel = append(sel, id)
		}
	}
	e.selection = sel
	if e.crop != nil && drop[e.crop.ElementID] {
		e.crop = nil
	}
	return removed
}

// Reorder moves id to index in the z-order, clamped to the valid range.
func (e *Engine) Reorder(id string, index int) bool {
	from := e.scene.Index(id)
	if from < 0 {
		return false
	}
	index = max(0, min(index, len(e.scene.Elements)-1))
	if index == from {
		return false
	}
	e.PushSnapshot()
	els := slices.Clone(e.scene.Elements)
	el := els[from]
	els = slices.Delete(els, from, from+1)
	e.scene.Elements = slices.Insert(els, index, el)
	return true
}

// SetBackground replaces the canvas background.
func (e *Engine) SetBackground(bg document.Background) error {
	if !e.caps.AllowsBackground(string(bg.Type)) {
		return fmt.Errorf("%w: background %s", capability.ErrNotPermitted, bg.Type)
	}
	if bg.Image != nil && bg.Image.BorderWidth > 0 && !e.caps.Border {
		return fmt.Errorf("%w: border", capability.ErrNotPermitted)
	}
	e.PushSnapshot()
	e.scene.Background = bg
	return nil
}

// SetOverlay replaces the overlay tint.
func (e *Engine) SetOverlay(o document.Overlay) {
	e.PushSnapshot()
	e.scene.Overlay = o
}

// SetCanvasSize resizes the canvas without moving elements.
func (e *Engine) SetCanvasSize(width, height int) error {
	if err := document.CheckCanvas(width, height); err != nil {
		return err
	}
	e.PushSnapshot()
	e.scene.CanvasWidth = width
	e.scene.CanvasHeight = height
	return nil
}

// --- History ---

// PushSnapshot records the current scene as an undo checkpoint.
func (e *Engine) PushSnapshot() {
	e.history.Push(e.scene)
}

// Undo restores the previous checkpoint and clears the selection.
func (e *Engine) Undo() bool {
	s, ok := e.history.Undo(e.scene)
	if !ok {
		return false
	}
	e.restore(s)
	return true
}

// Redo re-applies the last undone checkpoint and clears the selection.
func (e *Engine) Redo() bool {
	s, ok := e.history.Redo(e.scene)
	if !ok {
		return false
	}
	e.restore(s)
	return true
}

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

func (e *Engine) restore(s *document.Scene) {
	e.scene = s
	e.selection = nil
	e.gesture = Gesture{Kind: GestureIdle}
	e.guides = Guides{}
	e.crop = nil
}

// --- Crop ---

// BeginCrop opens the crop overlay on the image id. An unknown id is a no-op.
func (e *Engine) BeginCrop(id string) error {
	if !e.caps.Crop {
		return fmt.Errorf("%w: crop", capability.ErrNotPermitted)
	}
	el := e.scene.Find(id)
	if el == nil {
		return nil
	}
	img, ok := el.(*document.ImageElement)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCroppable, el.Type())
	}
	e.gesture = Gesture{Kind: GestureIdle}
	e.crop = NewCropSession(img)
	e.selection = []string{id}
	return nil
}

// Crop returns the open crop overlay, or nil.
func (e *Engine) Crop() *CropSession { return e.crop }

// EndCrop closes the crop overlay. Committed changes stay.
func (e *Engine) EndCrop() { e.crop = nil }

// SetCrop sets the crop in percent of the source image and commits it.
func (e *Engine) SetCrop(r CropRect) bool {
	if e.crop == nil {
		return false
	}
	e.crop.Set(r)
	return e.commitCrop()
}

// ResetCrop restores the full image and commits it.
func (e *Engine) ResetCrop() bool {
	if e.crop == nil {
		return false
	}
	e.crop.Reset()
	return e.commitCrop()
}

func (e *Engine) commitCrop() bool {
	if e.scene.Find(e.crop.ElementID) == nil {
		e.crop = nil
		return false
	}
	e.PushSnapshot()
	return e.update(e.crop.ElementID, document.Patch{"crop": e.crop.Natural()})
}

// --- Capability checks ---

func (e *Engine) checkElement(el document.Element) error {
	b := el.Common()
	if err := document.CheckBlur(b.BlurRadius); err != nil {
		return err
	}
	if b.BlurRadius > 0 && !e.caps.Blur {
		return fmt.Errorf("%w: blur", capability.ErrNotPermitted)
	}
	switch v := el.(type) {
	case *document.ShapeElement:
		if !e.caps.AllowsShape(string(v.ShapeType)) {
			return fmt.Errorf("%w: shape %s", capability.ErrNotPermitted, v.ShapeType)
		}
	case *document.TextElement:
		if !e.caps.AllowsFont(v.Font) {
			return fmt.Errorf("%w: font %s", capability.ErrNotPermitted, v.Font)
		}
	case *document.ImageElement:
		if v.BorderWidth > 0 && !e.caps.Border {
			return fmt.Errorf("%w: border", capability.ErrNotPermitted)
		}
		if v.Crop != nil && !e.caps.Crop {
			return fmt.Errorf("%w: crop", capability.ErrNotPermitted)
		}
	case *document.LogoElement:
		if v.BorderWidth > 0 && !e.caps.Border {
			return fmt.Errorf("%w: border", capability.ErrNotPermitted)
		}
	}
	return nil
}

// checkPatch validates the element as it would look after patch.
func (e *Engine) checkPatch(el document.Element, patch document.Patch) error {
	probe := &document.Scene{Elements: document.Elements{el.Clone()}, CanvasWidth: 1, CanvasHeight: 1}
	id := el.Common().ID
	if _, err := probe.Update(id, patch); err != nil {
		return err
	}
	patched := probe.Find(id)
	if err := e.checkElement(patched); err != nil {
		// Restrictions only bind what the patch changes.
		if e.checkElement(el) == nil {
			return err
		}
	}
	return nil
}
