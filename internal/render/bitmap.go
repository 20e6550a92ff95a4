package render

import (
	"context"
	"image"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

func (r *Renderer) paintBitmap(ctx context.Context, l layer, ref string, src document.Rect, bm document.Bitmap, box engine.Rect) error {
	img, err := r.loadImage(ctx, ref)
	if err != nil {
		return err
	}

	// Crops are stored against the recorded natural size; map them onto the
	// decoded pixels in case the two disagree.
	b := img.Bounds()
	if bm.NaturalWidth > 0 && bm.NaturalHeight > 0 {
		kx := float64(b.Dx()) / bm.NaturalWidth
		ky := float64(b.Dy()) / bm.NaturalHeight
		src = document.Rect{X: src.X * kx, Y: src.Y * ky, Width: src.Width * kx, Height: src.Height * ky}
	}

	border := solidFill(colorOr(bm.BorderColor, black))
	if g := bm.BorderGradient; g != nil {
		border = newFill(document.ColorGradient, g.Colors, g.Angle, box)
	}
	return drawBitmap(l.img, l.origin, img, src, box, bm.BorderRadius, bm.BorderWidth, border)
}

// drawBitmap scales the src region of img into box, clips it to a rounded
// rect of the given radius and strokes the border along the same path. box
// is in canvas coordinates; origin is the canvas position of dst's (0,0).
func drawBitmap(dst *image.RGBA, origin image.Point, img image.Image, src document.Rect, box engine.Rect, radius, borderWidth float64, border fill) error {
	if src.Width <= 0 || src.Height <= 0 || box.IsEmpty() {
		return nil
	}
	local := box.Offset(-float64(origin.X), -float64(origin.Y))
	size := dst.Bounds().Size()

	sx := local.Width / src.Width
	sy := local.Height / src.Height
	off := img.Bounds().Min
	aff := f64.Aff3{
		sx, 0, local.X - (src.X+float64(off.X))*sx,
		0, sy, local.Y - (src.Y+float64(off.Y))*sy,
	}
	scaled := image.NewRGBA(dst.Bounds())
	xdraw.CatmullRom.Transform(scaled, aff, img, img.Bounds(), xdraw.Src, nil)

	radii := clampRadii(document.Uniform(radius), local.Width, local.Height)
	outline := func(dc *gg.Context) { roundedRect(dc, local, radii) }

	clip, err := coverage(size.X, size.Y, fillPath(outline))
	if err != nil {
		return err
	}
	xdraw.DrawMask(dst, dst.Bounds(), scaled, image.Point{}, clip, image.Point{}, xdraw.Over)

	if borderWidth <= 0 {
		return nil
	}
	ring, err := coverage(size.X, size.Y, strokePath(borderWidth, outline))
	if err != nil {
		return err
	}
	shade(dst, ring, border, origin)
	return nil
}
