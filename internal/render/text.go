package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/gg/text"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

var ErrNoFont = errors.New("no font available")

// paintText draws each line with its top at y + i·size·lineHeight, aligned
// on the anchor x within the text box.
func (r *Renderer) paintText(l layer, t *document.TextElement, box engine.Rect) error {
	face := r.fonts.Face(t)
	if face == nil {
		return ErrNoFont
	}
	ascent := face.Metrics().Ascent
	anchorX := t.X - float64(l.origin.X)
	top := t.Y - float64(l.origin.Y)

	mask := image.NewAlpha(l.img.Bounds())
	for i, line := range t.Lines() {
		if line == "" {
			continue
		}
		x := anchorX
		switch t.TextAlign {
		case document.AlignCenter:
			x -= face.Advance(line) / 2
		case document.AlignRight:
			x -= face.Advance(line)
		}
		baseline := top + float64(i)*t.Size*t.LineHeight + ascent
		text.Draw(mask, line, face, x, baseline, color.White)
	}
	shade(l.img, mask, newFill(t.ColorType, t.Colors, t.GradientAngle, box), l.origin)
	return nil
}
