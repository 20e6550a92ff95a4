package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gg"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

var black = color.NRGBA{A: 0xff}

var namedColors = map[string]color.NRGBA{
	"black":       black,
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"transparent": {},
}

// parseColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba() and a
// few color names.
func parseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHex(hex)
	}
	if args, ok := cutFunc(s, "rgba"); ok {
		return parseRGBFunc(args, true)
	}
	if args, ok := cutFunc(s, "rgb"); ok {
		return parseRGBFunc(args, false)
	}
	return color.NRGBA{}, false
}

func cutFunc(s, name string) (string, bool) {
	rest, ok := strings.CutPrefix(s, name+"(")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ")")
}

func parseHex(hex string) (color.NRGBA, bool) {
	switch len(hex) {
	case 3, 4:
		hex = expandShortHex(hex)
	case 6, 8:
	default:
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func expandShortHex(hex string) string {
	var b strings.Builder
	for _, r := range hex {
		b.WriteRune(r)
		b.WriteRune(r)
	}
	return b.String()
}

func parseRGBFunc(args string, alpha bool) (color.NRGBA, bool) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 || !alpha && len(parts) == 4 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := range 3 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(math.Round(clamp01(v/255) * 255))
	}
	a := 1.0
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		a = clamp01(v)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(math.Round(a * 255))}, true
}

// colorOr parses s, returning fallback when it is not a color.
func colorOr(s string, fallback color.NRGBA) color.NRGBA {
	if c, ok := parseColor(s); ok {
		return c
	}
	return fallback
}

// withAlphaHex rewrites c as #rrggbbaa with its alpha replaced by opacity.
func withAlphaHex(c string, opacity float64) string {
	n := colorOr(c, black)
	a := uint8(math.Round(clamp01(opacity) * 255))
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, a)
}

func toRGBA(c color.NRGBA) gg.RGBA {
	return gg.RGBA{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// gradientAxis returns the end points of a linear gradient at angle degrees
// across box. The axis length is |W·cosθ|+|H·sinθ| centered on the box, so
// 0° runs left to right and 90° top to bottom.
func gradientAxis(box engine.Rect, angle float64) (x0, y0, x1, y1 float64) {
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	half := (math.Abs(box.Width*cos) + math.Abs(box.Height*sin)) / 2
	cx, cy := box.Center()
	return cx - cos*half, cy - sin*half, cx + cos*half, cy + sin*half
}

// fill is a resolved paint: one color, or a gradient brush when brush is set.
type fill struct {
	solid color.NRGBA
	brush gg.Brush
}

func solidFill(c color.NRGBA) fill { return fill{solid: c} }

// newFill resolves a color list into a paint over box. A gradient needs at
// least two valid colors; otherwise it falls back to a solid fill with the
// first color, or black.
func newFill(ct document.ColorType, colors []string, angle float64, box engine.Rect) fill {
	first := black
	if len(colors) > 0 {
		first = colorOr(colors[0], black)
	}
	if ct != document.ColorGradient || len(colors) < 2 {
		return solidFill(first)
	}

	stops := make([]color.NRGBA, len(colors))
	for i, s := range colors {
		c, ok := parseColor(s)
		if !ok {
			return solidFill(first)
		}
		stops[i] = c
	}
	g := gg.NewLinearGradientBrush(gradientAxis(box, angle))
	last := float64(len(stops) - 1)
	for i, c := range stops {
		g.AddColorStop(float64(i)/last, toRGBA(c))
	}
	return fill{solid: first, brush: g}
}

// source returns an image that paints f for a destination whose pixel (0,0)
// sits at origin in canvas coordinates.
func (f fill) source(origin image.Point) image.Image {
	if f.brush == nil {
		return image.NewUniform(f.solid)
	}
	return &brushImage{brush: f.brush, origin: origin}
}

// brushImage samples a gg brush at pixel centers.
type brushImage struct {
	brush  gg.Brush
	origin image.Point
}

func (b *brushImage) ColorModel() color.Model { return color.NRGBAModel }

func (b *brushImage) Bounds() image.Rectangle {
	return image.Rect(-1<<24, -1<<24, 1<<24, 1<<24)
}

func (b *brushImage) At(x, y int) color.Color {
	return b.brush.ColorAt(float64(x+b.origin.X)+0.5, float64(y+b.origin.Y)+0.5).Color()
}
