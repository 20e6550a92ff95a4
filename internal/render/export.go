package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"

	xdraw "golang.org/x/image/draw"
)

const (
	DefaultJPEGQuality      = 90
	DefaultThumbnailSize    = 50
	DefaultThumbnailQuality = 40
)

// EncodeJPEG writes img as a baseline JPEG. A quality outside 1..100 uses
// DefaultJPEGQuality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// Thumbnail scales img to fit inside a size×size square, keeping its aspect
// ratio. Each side is at least one pixel.
func Thumbnail(img image.Image, size int) *image.RGBA {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	b := img.Bounds()
	w, h := size, size
	if b.Dx() >= b.Dy() {
		h = max(1, b.Dy()*size/max(b.Dx(), 1))
	} else {
		w = max(1, b.Dx()*size/max(b.Dy(), 1))
	}
	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), img, b, xdraw.Src, nil)
	return thumb
}

// EncodeThumbnail writes the thumbnail of img as a JPEG.
func EncodeThumbnail(w io.Writer, img image.Image, size, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultThumbnailQuality
	}
	return EncodeJPEG(w, Thumbnail(img, size), quality)
}
