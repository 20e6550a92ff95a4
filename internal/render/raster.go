package render

import (
	"image"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498307936

// coverage rasterizes whatever path draw builds into an alpha mask. The path
// is painted opaque white, so the alpha channel is the anti-aliased coverage.
func coverage(w, h int, draw func(dc *gg.Context) error) (*image.Alpha, error) {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.SetRGBA(1, 1, 1, 1)
	if err := draw(dc); err != nil {
		return nil, err
	}
	pix := dc.ResizeTarget().Data()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = pix[i*4+3]
	}
	return mask, nil
}

func fillPath(path func(dc *gg.Context)) func(*gg.Context) error {
	return func(dc *gg.Context) error {
		path(dc)
		return dc.Fill()
	}
}

func strokePath(width float64, path func(dc *gg.Context)) func(*gg.Context) error {
	return func(dc *gg.Context) error {
		dc.SetLineWidth(width)
		path(dc)
		return dc.Stroke()
	}
}

// shade paints f through mask onto dst. origin is the canvas position of
// dst's pixel (0,0), used to place gradients.
func shade(dst *image.RGBA, mask *image.Alpha, f fill, origin image.Point) {
	xdraw.DrawMask(dst, dst.Bounds(), f.source(origin), image.Point{}, mask, image.Point{}, xdraw.Over)
}

// clampRadii limits every corner to half the shorter side.
func clampRadii(r document.CornerRadii, w, h float64) document.CornerRadii {
	limit := math.Max(0, math.Min(w, h)/2)
	c := func(v float64) float64 { return math.Max(0, math.Min(v, limit)) }
	return document.CornerRadii{TL: c(r.TL), TR: c(r.TR), BR: c(r.BR), BL: c(r.BL), PerCorner: r.PerCorner}
}

// roundedRect adds a rectangle with independent corner radii to the path.
// Radii must already be clamped.
func roundedRect(dc *gg.Context, b engine.Rect, r document.CornerRadii) {
	x, y, right, bottom := b.X, b.Y, b.Right(), b.Bottom()
	dc.MoveTo(x+r.TL, y)
	dc.LineTo(right-r.TR, y)
	if r.TR > 0 {
		dc.CubicTo(right-r.TR+r.TR*kappa, y, right, y+r.TR-r.TR*kappa, right, y+r.TR)
	}
	dc.LineTo(right, bottom-r.BR)
	if r.BR > 0 {
		dc.CubicTo(right, bottom-r.BR+r.BR*kappa, right-r.BR+r.BR*kappa, bottom, right-r.BR, bottom)
	}
	dc.LineTo(x+r.BL, bottom)
	if r.BL > 0 {
		dc.CubicTo(x+r.BL-r.BL*kappa, bottom, x, bottom-r.BL+r.BL*kappa, x, bottom-r.BL)
	}
	dc.LineTo(x, y+r.TL)
	if r.TL > 0 {
		dc.CubicTo(x, y+r.TL-r.TL*kappa, x+r.TL-r.TL*kappa, y, x+r.TL, y)
	}
	dc.ClosePath()
}

// starPath adds a star with the given number of points inscribed in the
// ellipse (rx, ry) around (cx, cy). The first point faces up and the inner
// vertices sit at half the outer radius.
func starPath(dc *gg.Context, cx, cy, rx, ry float64, spikes int) {
	n := max(spikes, 2)
	step := math.Pi / float64(n)
	for i := range 2 * n {
		a := -math.Pi/2 + float64(i)*step
		k := 1.0
		if i%2 == 1 {
			k = 0.5
		}
		x, y := cx+math.Cos(a)*rx*k, cy+math.Sin(a)*ry*k
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

// applyOpacity scales a premultiplied layer by a.
func applyOpacity(img *image.RGBA, a float64) {
	a = clamp01(a)
	if a >= 1 {
		return
	}
	for i, v := range img.Pix {
		img.Pix[i] = uint8(math.Round(float64(v) * a))
	}
}

// blurPad is how far a blur of radius spreads past the painted pixels.
func blurPad(radius float64) int {
	if radius <= 0 {
		return 0
	}
	return int(math.Ceil(radius * 3))
}

// boxBlurSigma is the radius from which gaussianBlur switches to box passes.
const boxBlurSigma = 2

// gaussianBlur blurs a premultiplied layer in place with standard deviation
// sigma. Pixels outside the layer count as transparent. Small radii use a
// direct kernel; larger ones three box passes per axis, whose per-pixel cost
// does not depend on sigma.
func gaussianBlur(img *image.RGBA, sigma float64) {
	if sigma <= 0 {
		return
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	buf := make([]float64, w*h*4)
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i, v := range row {
			buf[y*w*4+i] = float64(v)
		}
	}
	tmp := make([]float64, len(buf))

	if sigma < boxBlurSigma {
		kernel := gaussianKernel(sigma)
		convolve(buf, tmp, w, h, kernel, true)
		convolve(tmp, buf, w, h, kernel, false)
	} else {
		half := boxHalfWidth(sigma)
		for _, horizontal := range []bool{true, true, true, false, false, false} {
			boxPass(buf, tmp, w, h, half, horizontal)
			buf, tmp = tmp, buf
		}
	}

	for y := range h {
		for x := range w * 4 {
			v := math.Round(buf[y*w*4+x])
			img.Pix[y*img.Stride+x] = uint8(math.Max(0, math.Min(255, v)))
		}
	}
}

// boxHalfWidth picks the box size whose triple pass approximates a gaussian
// of sigma, d = floor(sigma * 3 * sqrt(2*pi) / 4 + 0.5), rounded up to odd.
func boxHalfWidth(sigma float64) int {
	d := int(math.Floor(sigma*3*math.Sqrt(2*math.Pi)/4 + 0.5))
	return max(d/2, 1)
}

// pixelIndex locates pos along line in a w-wide buffer of 4-channel pixels.
// Horizontal lines are rows; vertical lines are columns.
func pixelIndex(horizontal bool, w, line, pos int) int {
	if horizontal {
		return (line*w + pos) * 4
	}
	return (pos*w + line) * 4
}

func lineSpan(horizontal bool, w, h int) (lines, n int) {
	if horizontal {
		return h, w
	}
	return w, h
}

func convolve(src, dst []float64, w, h int, kernel []float64, horizontal bool) {
	lines, n := lineSpan(horizontal, w, h)
	half := len(kernel) / 2
	for line := range lines {
		for pos := range n {
			var acc [4]float64
			for k, wt := range kernel {
				sp := pos + k - half
				if sp < 0 || sp >= n {
					continue
				}
				i := pixelIndex(horizontal, w, line, sp)
				acc[0] += src[i] * wt
				acc[1] += src[i+1] * wt
				acc[2] += src[i+2] * wt
				acc[3] += src[i+3] * wt
			}
			copy(dst[pixelIndex(horizontal, w, line, pos):], acc[:])
		}
	}
}

// boxPass averages each pixel with the half pixels on either side using a
// running sum.
func boxPass(src, dst []float64, w, h, half int, horizontal bool) {
	lines, n := lineSpan(horizontal, w, h)
	norm := 1 / float64(2*half+1)
	for line := range lines {
		var sum [4]float64
		for sp := 0; sp <= half && sp < n; sp++ {
			i := pixelIndex(horizontal, w, line, sp)
			for c := range 4 {
				sum[c] += src[i+c]
			}
		}
		for pos := range n {
			o := pixelIndex(horizontal, w, line, pos)
			for c := range 4 {
				dst[o+c] = sum[c] * norm
			}
			if in := pos + half + 1; in < n {
				i := pixelIndex(horizontal, w, line, in)
				for c := range 4 {
					sum[c] += src[i+c]
				}
			}
			if out := pos - half; out >= 0 {
				i := pixelIndex(horizontal, w, line, out)
				for c := range 4 {
					sum[c] -= src[i+c]
				}
			}
		}
	}
}

// gaussianKernel returns a normalized kernel covering three standard
// deviations on each side.
func gaussianKernel(sigma float64) []float64 {
	half := int(math.Ceil(sigma * 3))
	k := make([]float64, 2*half+1)
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}
