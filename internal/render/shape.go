package render

import (
	"fmt"

	"github.com/gogpu/gg"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

func paintShape(l layer, s *document.ShapeElement, box engine.Rect) error {
	local := l.local(box)
	cx, cy := local.Center()

	var path func(dc *gg.Context)
	switch s.ShapeType {
	case document.ShapeRectangle:
		radii := clampRadii(s.BorderRadius, local.Width, local.Height)
		path = func(dc *gg.Context) { roundedRect(dc, local, radii) }
	case document.ShapeCircle:
		path = func(dc *gg.Context) { dc.DrawEllipse(cx, cy, local.Width/2, local.Height/2) }
	case document.ShapeStar:
		path = func(dc *gg.Context) { starPath(dc, cx, cy, local.Width/2, local.Height/2, s.Spikes) }
	case document.ShapeLine:
	default:
		return fmt.Errorf("%w: shape %q", document.ErrUnknownElement, s.ShapeType)
	}

	var draw func(*gg.Context) error
	switch {
	case s.ShapeType == document.ShapeLine:
		// A segment through the middle of the box, as thick as the box.
		draw = func(dc *gg.Context) error {
			dc.SetLineCap(gg.LineCapButt)
			dc.SetLineWidth(local.Height)
			dc.MoveTo(local.X, cy)
			dc.LineTo(local.Right(), cy)
			return dc.Stroke()
		}
	case s.FillType == document.FillOutline:
		draw = strokePath(s.StrokeWidth, path)
	default:
		draw = fillPath(path)
	}

	size := l.img.Bounds().Size()
	mask, err := coverage(size.X, size.Y, draw)
	if err != nil {
		return err
	}
	shade(l.img, mask, newFill(s.ColorType, s.Colors, s.GradientAngle, box), l.origin)
	return nil
}
