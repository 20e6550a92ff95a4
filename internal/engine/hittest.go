package engine

import (
	"math"

	"github.com/etendy/canvas/backend-go/internal/document"
)

const (
	// HitTolerance is in canvas pixels.
	HitTolerance = 5
	// HandleSize is the on-screen size of a resize handle; hits use half of it
	// as a radius.
	HandleSize = 12
)

// PointInElement reports whether p hits el. Filled elements are tested
// against their unrotated box even when rotated; lines and outline shapes are
// tested exactly in their rotated frame. Outline stars never hit.
func PointInElement(p Point, el document.Element, m TextMeasurer) bool {
	r, ok := BoundingRect(el, m)
	if !ok {
		return false
	}

	shape, isShape := el.(*document.ShapeElement)
	if !isShape || (shape.FillType != document.FillOutline && shape.ShapeType != document.ShapeLine) {
		return r.Contains(p.X, p.Y)
	}

	cx, cy := r.Center()
	lx, ly := RotateAbout(shape.Rotation, cx, cy).Invert().TransformPoint(p.X, p.Y)

	switch shape.ShapeType {
	case document.ShapeLine:
		return math.Abs(lx-cx) <= r.Width/2+HitTolerance &&
			math.Abs(ly-cy) <= r.Height/2+HitTolerance
	case document.ShapeRectangle:
		band := shape.StrokeWidth + HitTolerance
		if !r.Expand(band).Contains(lx, ly) {
			return false
		}
		edge := min(math.Abs(lx-r.X), math.Abs(lx-r.Right()), math.Abs(ly-r.Y), math.Abs(ly-r.Bottom()))
		return edge <= band
	case document.ShapeCircle:
		rx := max(r.Width/2, minSourceSize)
		ry := max(r.Height/2, minSourceSize)
		dx, dy := (lx-cx)/rx, (ly-cy)/ry
		d := math.Hypot(dx, dy)
		band := (shape.StrokeWidth/2 + HitTolerance) / min(rx, ry)
		return math.Abs(d-1) <= band
	default:
		return false
	}
}

// HitTestScene returns the id of the topmost element under p, or "".
func HitTestScene(s *document.Scene, p Point, m TextMeasurer) string {
	for i := len(s.Elements) - 1; i >= 0; i-- {
		if PointInElement(p, s.Elements[i], m) {
			return s.Elements[i].Common().ID
		}
	}
	return ""
}

// hitHandle returns the handle of r within HandleSize/2 of p.
func hitHandle(r Rect, p Point) (HandleID, bool) {
	for _, h := range ResizeHandles(r).All() {
		if math.Hypot(p.X-h.X, p.Y-h.Y) <= HandleSize/2 {
			return h.ID, true
		}
	}
	return "", false
}
