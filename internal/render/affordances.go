package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gg"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

// HandleRadius is the drawn radius of a resize or crop handle.
const HandleRadius = 6

var (
	selectionColor = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	guideColor     = color.NRGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff}
	glowColor      = color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0x99}
	cropShade      = color.NRGBA{A: 0x80}
)

// Outline is an element box drawn rotated about its pivot.
type Outline struct {
	Rect     engine.Rect  `json:"rect"`
	Rotation float64      `json:"rotation"`
	Pivot    engine.Point `json:"pivot"`
}

func (o Outline) corners() [4]engine.Point {
	m := engine.RotateAbout(o.Rotation, o.Pivot.X, o.Pivot.Y)
	var pts [4]engine.Point
	for i, h := range engine.ResizeHandles(o.Rect).All() {
		x, y := m.TransformPoint(h.X, h.Y)
		pts[i] = engine.Point{X: x, Y: y}
	}
	return pts
}

// CropOverlay is the crop session as drawn: the full source box and the
// current crop frame inside it.
type CropOverlay struct {
	Box   engine.Rect `json:"box"`
	Frame engine.Rect `json:"frame"`
}

// Affordances are the editing aids drawn over a preview frame. The zero
// value draws nothing.
type Affordances struct {
	Selection []Outline
	// Active gets corner handles. It is nil for text.
	Active   *Outline
	Guides   engine.Guides
	EdgeGlow bool
	Crop     *CropOverlay
}

func (a Affordances) empty() bool {
	return len(a.Selection) == 0 && a.Active == nil && a.Crop == nil &&
		!a.EdgeGlow && !a.Guides.Vertical && !a.Guides.Horizontal
}

// AffordancesFrom collects the affordances for the engine's current state.
// Edge glow is shown while a gesture is in progress.
func AffordancesFrom(e *engine.Engine) Affordances {
	var a Affordances
	s := e.Scene()
	for i, id := range e.Selection() {
		el := s.Find(id)
		if el == nil {
			continue
		}
		r, ok := engine.BoundingRect(el, e.Measurer())
		if !ok {
			continue
		}
		o := Outline{Rect: r, Rotation: el.Common().Rotation, Pivot: engine.Pivot(el, r)}
		a.Selection = append(a.Selection, o)
		if _, isText := el.(*document.TextElement); i == 0 && !isText {
			a.Active = &o
		}
	}
	a.Guides = e.Guides()
	a.EdgeGlow = e.Gesture().Kind != engine.GestureIdle
	if c := e.Crop(); c != nil {
		a.Crop = &CropOverlay{Box: c.Box, Frame: c.Frame()}
		a.Active = nil
	}
	return a
}

func (r *Renderer) paintAffordances(dst *image.RGBA, s *document.Scene, a Affordances) error {
	w, h := float64(s.CanvasWidth), float64(s.CanvasHeight)
	size := dst.Bounds().Size()
	paint := func(c color.NRGBA, draw func(dc *gg.Context) error) error {
		mask, err := coverage(size.X, size.Y, draw)
		if err != nil {
			return err
		}
		shade(dst, mask, solidFill(c), image.Point{})
		return nil
	}

	if a.EdgeGlow {
		if err := paint(glowColor, fillPath(func(dc *gg.Context) {
			r.edgeGlow(dc, s, w, h)
		})); err != nil {
			return err
		}
	}

	if a.Guides.Vertical || a.Guides.Horizontal {
		if err := paint(guideColor, func(dc *gg.Context) error {
			dc.SetLineWidth(1)
			dc.SetDash(8, 6)
			if a.Guides.Vertical {
				dc.DrawLine(w/2, 0, w/2, h)
			}
			if a.Guides.Horizontal {
				dc.DrawLine(0, h/2, w, h/2)
			}
			return dc.Stroke()
		}); err != nil {
			return err
		}
	}

	if len(a.Selection) > 0 {
		if err := paint(selectionColor, func(dc *gg.Context) error {
			dc.SetLineWidth(2)
			dc.SetDash(6, 4)
			for _, o := range a.Selection {
				polygon(dc, o.corners())
			}
			return dc.Stroke()
		}); err != nil {
			return err
		}
	}

	if a.Active != nil {
		if err := paintHandles(paint, a.Active.corners()); err != nil {
			return err
		}
	}

	if c := a.Crop; c != nil {
		if err := paint(cropShade, func(dc *gg.Context) error {
			dc.SetFillRule(gg.FillRuleEvenOdd)
			dc.DrawRectangle(c.Box.X, c.Box.Y, c.Box.Width, c.Box.Height)
			dc.DrawRectangle(c.Frame.X, c.Frame.Y, c.Frame.Width, c.Frame.Height)
			return dc.Fill()
		}); err != nil {
			return err
		}
		if err := paint(white, strokePath(2, func(dc *gg.Context) {
			dc.DrawRectangle(c.Frame.X, c.Frame.Y, c.Frame.Width, c.Frame.Height)
		})); err != nil {
			return err
		}
		frame := Outline{Rect: c.Frame}
		if err := paintHandles(paint, frame.corners()); err != nil {
			return err
		}
	}
	return nil
}

// edgeGlow adds one band per canvas edge that any element crosses.
func (r *Renderer) edgeGlow(dc *gg.Context, s *document.Scene, w, h float64) {
	const band = 6
	var left, top, right, bottom bool
	for _, el := range s.Elements {
		b, ok := engine.VisualBounds(el, r.fonts)
		if !ok {
			continue
		}
		left = left || b.X < 0 && b.Right() > 0
		top = top || b.Y < 0 && b.Bottom() > 0
		right = right || b.X < w && b.Right() > w
		bottom = bottom || b.Y < h && b.Bottom() > h
	}
	if left {
		dc.DrawRectangle(0, 0, band, h)
	}
	if top {
		dc.DrawRectangle(0, 0, w, band)
	}
	if right {
		dc.DrawRectangle(w-band, 0, band, h)
	}
	if bottom {
		dc.DrawRectangle(0, h-band, w, band)
	}
}

func paintHandles(paint func(color.NRGBA, func(*gg.Context) error) error, pts [4]engine.Point) error {
	dots := func(dc *gg.Context) {
		for _, p := range pts {
			dc.DrawCircle(p.X, p.Y, HandleRadius)
		}
	}
	if err := paint(white, fillPath(dots)); err != nil {
		return err
	}
	return paint(selectionColor, strokePath(1.5, dots))
}

// polygon adds a closed outline through the tl, tr, bl, br corners.
func polygon(dc *gg.Context, c [4]engine.Point) {
	dc.MoveTo(c[0].X, c[0].Y)
	dc.LineTo(c[1].X, c[1].Y)
	dc.LineTo(c[3].X, c[3].Y)
	dc.LineTo(c[2].X, c[2].Y)
	dc.ClosePath()
}
