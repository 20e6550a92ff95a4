package engine

import (
	"math"
	"unicode/utf8"

	"github.com/etendy/canvas/backend-go/internal/document"
)

// minSourceSize is the smallest width or height of an image source or shape.
const minSourceSize = 1

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Offset returns r moved by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Expand grows r by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// TextMeasurer reports the advance width of one already-transformed line of
// text in the font, weight, style and size of el.
type TextMeasurer interface {
	MeasureLine(line string, el *document.TextElement) float64
}

// estimateMeasurer is used when no font-backed measurer is configured.
type estimateMeasurer struct{}

func (estimateMeasurer) MeasureLine(line string, el *document.TextElement) float64 {
	return float64(utf8.RuneCountInString(line)) * el.Size * 0.55
}

// BoundingRect returns the unrotated local box of el in canvas coordinates.
// The second result is false for element kinds it cannot measure.
func BoundingRect(el document.Element, m TextMeasurer) (Rect, bool) {
	switch e := el.(type) {
	case *document.ImageElement:
		src := e.Source()
		return centeredBox(e.X, e.Y, src.Width, src.Height, e.Scale), true
	case *document.LogoElement:
		return centeredBox(e.X, e.Y, e.NaturalWidth, e.NaturalHeight, e.Scale), true
	case *document.TextElement:
		return textRect(e, m), true
	case *document.ShapeElement:
		return Rect{
			X:      e.X,
			Y:      e.Y,
			Width:  max(e.Width, minSourceSize),
			Height: max(e.Height, minSourceSize),
		}, true
	default:
		return Rect{}, false
	}
}

func centeredBox(cx, cy, w, h, scale float64) Rect {
	w = max(max(w, minSourceSize)*scale, minSourceSize)
	h = max(max(h, minSourceSize)*scale, minSourceSize)
	return Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

func textRect(e *document.TextElement, m TextMeasurer) Rect {
	if m == nil {
		m = estimateMeasurer{}
	}
	lines := e.Lines()
	width := 0.0
	for _, l := range lines {
		width = max(width, m.MeasureLine(l, e))
	}
	height := float64(len(lines)) * e.Size * e.LineHeight

	x := e.X
	switch e.TextAlign {
	case document.AlignCenter:
		x -= width / 2
	case document.AlignRight:
		x -= width
	}
	return Rect{X: x, Y: e.Y, Width: width, Height: math.Max(height, 0)}
}

// Pivot is the point an element rotates about: the box center for images,
// logos and shapes, the anchor for text.
func Pivot(el document.Element, r Rect) Point {
	if t, ok := el.(*document.TextElement); ok {
		return Point{X: t.X, Y: t.Y}
	}
	cx, cy := r.Center()
	return Point{X: cx, Y: cy}
}

// VisualBounds is the axis-aligned box of el after rotation.
func VisualBounds(el document.Element, m TextMeasurer) (Rect, bool) {
	r, ok := BoundingRect(el, m)
	if !ok {
		return Rect{}, false
	}
	rot := el.Common().Rotation
	if rot == 0 {
		return r, true
	}
	p := Pivot(el, r)
	return RotateAbout(rot, p.X, p.Y).TransformRect(r), true
}

type HandleID string

const (
	HandleTL HandleID = "tl"
	HandleTR HandleID = "tr"
	HandleBL HandleID = "bl"
	HandleBR HandleID = "br"
)

// Opposite returns the diagonally opposite corner.
func (h HandleID) Opposite() HandleID {
	switch h {
	case HandleTL:
		return HandleBR
	case HandleTR:
		return HandleBL
	case HandleBL:
		return HandleTR
	default:
		return HandleTL
	}
}

func (h HandleID) left() bool { return h == HandleTL || h == HandleBL }
func (h HandleID) top() bool  { return h == HandleTL || h == HandleTR }

type Handle struct {
	ID     HandleID `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Cursor string   `json:"cursor"`
}

type Handles struct {
	TL Handle `json:"tl"`
	TR Handle `json:"tr"`
	BL Handle `json:"bl"`
	BR Handle `json:"br"`
}

// All lists the handles in tl, tr, bl, br order.
func (h Handles) All() []Handle {
	return []Handle{h.TL, h.TR, h.BL, h.BR}
}

// ResizeHandles places one handle on each corner of r.
func ResizeHandles(r Rect) Handles {
	return Handles{
		TL: Handle{ID: HandleTL, X: r.X, Y: r.Y, Cursor: "nwse-resize"},
		TR: Handle{ID: HandleTR, X: r.Right(), Y: r.Y, Cursor: "nesw-resize"},
		BL: Handle{ID: HandleBL, X: r.X, Y: r.Bottom(), Cursor: "nesw-resize"},
		BR: Handle{ID: HandleBR, X: r.Right(), Y: r.Bottom(), Cursor: "nwse-resize"},
	}
}

// corner returns the position of handle h on r.
func corner(r Rect, h HandleID) Point {
	x, y := r.X, r.Y
	if !h.left() {
		x = r.Right()
	}
	if !h.top() {
		y = r.Bottom()
	}
	return Point{X: x, Y: y}
}
