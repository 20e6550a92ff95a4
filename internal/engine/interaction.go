package engine

import (
	"math"
	"slices"

	"github.com/etendy/canvas/backend-go/internal/document"
)

// MinResizeSize is the smallest width or height a resize can produce.
const MinResizeSize = 10

type GestureKind string

const (
	GestureIdle     GestureKind = "idle"
	GestureDragging GestureKind = "dragging"
	GestureResizing GestureKind = "resizing"
)

// Gesture is the pointer state owned by the engine between pointer-down and
// pointer-up.
type Gesture struct {
	Kind      GestureKind `json:"kind"`
	ElementID string      `json:"elementId,omitempty"`
	Handle    HandleID    `json:"handle,omitempty"`

	startPointer Point
	// startRect is the primary element's box at pointer-down.
	startRect Rect
	// startPos holds the x/y of every dragged element at pointer-down.
	startPos map[string]Point
}

// Modifiers carries the keyboard state of a pointer event. Shift adds to the
// selection on pointer-down and locks aspect ratio (or expands a line from
// its center) while resizing.
type Modifiers struct {
	Shift bool `json:"shift"`
}

// PointerDown starts a gesture at p. Handles of the primary selected element
// are tested before elements. It reports whether the scene or selection
// changed.
func (e *Engine) PointerDown(p Point, mod Modifiers) bool {
	if e.crop != nil {
		return e.crop.PointerDown(p)
	}
	e.gesture = Gesture{Kind: GestureIdle}

	if primary := e.primary(); primary != nil {
		if _, isText := primary.(*document.TextElement); !isText {
			if r, ok := BoundingRect(primary, e.measurer); ok {
				if h, hit := hitHandle(r, p); hit {
					e.PushSnapshot()
					e.gesture = Gesture{
						Kind:         GestureResizing,
						ElementID:    primary.Common().ID,
						Handle:       h,
						startPointer: p,
						startRect:    r,
					}
					return true
				}
			}
		}
	}

	id := HitTestScene(e.scene, p, e.measurer)
	if id == "" {
		if mod.Shift || len(e.selection) == 0 {
			return false
		}
		e.selection = nil
		return true
	}

	members := e.coSelected(id)
	switch {
	case mod.Shift && slices.Contains(e.selection, id):
		e.selection = slices.DeleteFunc(e.selection, func(s string) bool {
			return slices.Contains(members, s)
		})
		return true
	case mod.Shift:
		for _, m := range members {
			if !slices.Contains(e.selection, m) {
				e.selection = append(e.selection, m)
			}
		}
	case !slices.Contains(e.selection, id):
		e.selection = members
	}

	e.PushSnapshot()
	e.beginDrag(id, p)
	return true
}

// coSelected returns id followed by the other members of its group.
func (e *Engine) coSelected(id string) []string {
	ids := []string{id}
	el := e.scene.Find(id)
	if el == nil {
		return ids
	}
	for _, m := range e.scene.GroupMembers(el.Common().GroupID) {
		if m != id {
			ids = append(ids, m)
		}
	}
	return ids
}

func (e *Engine) beginDrag(id string, p Point) {
	g := Gesture{
		Kind:         GestureDragging,
		ElementID:    id,
		startPointer: p,
		startPos:     make(map[string]Point, len(e.selection)),
	}
	for _, sel := range e.selection {
		if el := e.scene.Find(sel); el != nil {
			b := el.Common()
			g.startPos[sel] = Point{X: b.X, Y: b.Y}
		}
	}
	if el := e.scene.Find(id); el != nil {
		g.startRect, _ = BoundingRect(el, e.measurer)
		b := el.Common()
		g.startPos[id] = Point{X: b.X, Y: b.Y}
	}
	e.gesture = g
}

// PointerMove advances the active gesture. It reports whether anything
// changed.
func (e *Engine) PointerMove(p Point, mod Modifiers) bool {
	if e.crop != nil {
		return e.crop.PointerMove(p)
	}
	switch e.gesture.Kind {
	case GestureDragging:
		return e.drag(p)
	case GestureResizing:
		return e.resize(p, mod)
	default:
		return false
	}
}

// PointerUp ends the gesture. A crop gesture is committed here.
func (e *Engine) PointerUp() bool {
	if e.crop != nil {
		if e.crop.PointerUp() {
			e.commitCrop()
			return true
		}
		return false
	}
	active := e.gesture.Kind != GestureIdle
	e.gesture = Gesture{Kind: GestureIdle}
	e.guides = Guides{}
	return active
}

func (e *Engine) drag(p Point) bool {
	g := e.gesture
	if e.scene.Find(g.ElementID) == nil {
		return false
	}
	dx := p.X - g.startPointer.X
	dy := p.Y - g.startPointer.Y

	sx, sy, guides := snapToCanvas(g.startRect.Offset(dx, dy),
		float64(e.scene.CanvasWidth), float64(e.scene.CanvasHeight))
	e.guides = guides

	changed := false
	for id, start := range g.startPos {
		if e.update(id, document.Patch{"x": start.X + dx + sx, "y": start.Y + dy + sy}) {
			changed = true
		}
	}
	return changed
}

func (e *Engine) resize(p Point, mod Modifiers) bool {
	g := e.gesture
	el := e.scene.Find(g.ElementID)
	if el == nil {
		return false
	}
	fixed := corner(g.startRect, g.Handle.Opposite())

	// Sizes grow away from the fixed corner and never flip across it.
	w := p.X - fixed.X
	if g.Handle.left() {
		w = -w
	}
	h := p.Y - fixed.Y
	if g.Handle.top() {
		h = -h
	}
	w = max(w, MinResizeSize)
	h = max(h, MinResizeSize)

	var patch document.Patch
	switch v := el.(type) {
	case *document.ImageElement:
		patch = e.resizeBitmap(v.Source(), fixed, w, h, mod)
	case *document.LogoElement:
		patch = e.resizeBitmap(document.Rect{Width: v.NaturalWidth, Height: v.NaturalHeight}, fixed, w, h, mod)
	case *document.ShapeElement:
		patch = e.resizeShape(v, p, fixed, w, h, mod)
	default:
		return false
	}
	return e.update(g.ElementID, patch)
}

func (e *Engine) resizeBitmap(src document.Rect, fixed Point, w, h float64, mod Modifiers) document.Patch {
	srcW := max(src.Width, minSourceSize)
	srcH := max(src.Height, minSourceSize)
	scale := w / srcW
	if mod.Shift {
		scale = max(w/srcW, h/srcH)
	}
	scale = max(scale, MinResizeSize/srcW, MinResizeSize/srcH)

	r := anchoredRect(fixed, e.gesture.Handle, srcW*scale, srcH*scale)
	cx, cy := r.Center()
	return document.Patch{"scale": scale, "x": cx, "y": cy}
}

func (e *Engine) resizeShape(s *document.ShapeElement, p, fixed Point, w, h float64, mod Modifiers) document.Patch {
	start := e.gesture.startRect
	switch s.ShapeType {
	case document.ShapeLine:
		if mod.Shift {
			cx, _ := start.Center()
			w = max(2*math.Abs(p.X-cx), MinResizeSize)
			return document.Patch{"x": cx - w/2, "width": w}
		}
		r := anchoredRect(fixed, e.gesture.Handle, w, start.Height)
		return document.Patch{"x": r.X, "width": r.Width}
	case document.ShapeCircle:
		if mod.Shift {
			w = max(w, h)
			h = w
		}
	default:
		if mod.Shift && start.Width > 0 && start.Height > 0 {
			ratio := start.Width / start.Height
			if w/ratio >= h {
				h = w / ratio
			} else {
				w = h * ratio
			}
			if w < MinResizeSize || h < MinResizeSize {
				k := MinResizeSize / min(w, h)
				w, h = w*k, h*k
			}
		}
	}
	r := anchoredRect(fixed, e.gesture.Handle, w, h)
	return document.Patch{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height}
}

// anchoredRect builds a w×h rect whose corner opposite to handle sits at
// fixed.
func anchoredRect(fixed Point, handle HandleID, w, h float64) Rect {
	r := Rect{X: fixed.X, Y: fixed.Y, Width: w, Height: h}
	if handle.left() {
		r.X = fixed.X - w
	}
	if handle.top() {
		r.Y = fixed.Y - h
	}
	return r
}

// KeyDown handles editor shortcuts. Delete and Backspace remove the
// selection unless a text input has focus; Escape clears the selection and
// closes the crop overlay.
func (e *Engine) KeyDown(key string, textFocused bool) bool {
	if textFocused {
		return false
	}
	switch key {
	case "Delete", "Backspace":
		if len(e.selection) == 0 {
			return false
		}
		return e.RemoveElements(e.selection...) > 0
	case "Escape":
		changed := e.crop != nil || len(e.selection) > 0
		e.crop = nil
		e.selection = nil
		e.gesture = Gesture{Kind: GestureIdle}
		return changed
	default:
		return false
	}
}
