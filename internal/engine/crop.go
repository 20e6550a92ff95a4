package engine

import (
	"math"

	"github.com/etendy/canvas/backend-go/internal/document"
)

// MinCropPercent is the smallest crop width or height, in percent of the
// source image.
const MinCropPercent = 5

// CropRect is a crop expressed in percent (0-100) of the full source image.
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullCrop covers the whole image.
var FullCrop = CropRect{Width: 100, Height: 100}

func (c CropRect) right() float64  { return c.X + c.Width }
func (c CropRect) bottom() float64 { return c.Y + c.Height }

// clamped keeps c inside [0,100] with both sides at least MinCropPercent.
func (c CropRect) clamped() CropRect {
	c.Width = clamp(c.Width, MinCropPercent, 100)
	c.Height = clamp(c.Height, MinCropPercent, 100)
	c.X = clamp(c.X, 0, 100-c.Width)
	c.Y = clamp(c.Y, 0, 100-c.Height)
	return c
}

// CropAction is what a crop pointer gesture manipulates: one of the corner
// handles or the whole rect.
type CropAction string

const (
	CropNone CropAction = ""
	CropMove CropAction = "move"
)

// CropSession is the crop overlay for a single image element. While open it
// owns pointer input; the element itself only changes on commit.
type CropSession struct {
	ElementID string   `json:"elementId"`
	Rect      CropRect `json:"rect"`
	// Box is the full source image as displayed in canvas coordinates.
	Box Rect `json:"box"`

	naturalW, naturalH float64
	action             CropAction
	start              Point
	startRect          CropRect
}

// NewCropSession opens a crop overlay on img, starting from its current crop.
// The full source is placed so the crop frame covers the image as displayed.
func NewCropSession(img *document.ImageElement) *CropSession {
	natW := max(img.NaturalWidth, minSourceSize)
	natH := max(img.NaturalHeight, minSourceSize)
	rect := FullCrop
	if img.Crop != nil {
		rect = CropRect{
			X:      img.Crop.X / natW * 100,
			Y:      img.Crop.Y / natH * 100,
			Width:  img.Crop.Width / natW * 100,
			Height: img.Crop.Height / natH * 100,
		}.clamped()
	}
	box := centeredBox(img.X, img.Y, natW, natH, img.Scale)
	if img.Crop != nil {
		shown := centeredBox(img.X, img.Y, img.Crop.Width, img.Crop.Height, img.Scale)
		box.X = shown.X - rect.X/100*box.Width
		box.Y = shown.Y - rect.Y/100*box.Height
	}
	return &CropSession{
		ElementID: img.ID,
		Rect:      rect,
		Box:       box,
		naturalW:  natW,
		naturalH:  natH,
	}
}

// Frame returns the crop rect in canvas coordinates.
func (c *CropSession) Frame() Rect {
	return Rect{
		X:      c.Box.X + c.Rect.X/100*c.Box.Width,
		Y:      c.Box.Y + c.Rect.Y/100*c.Box.Height,
		Width:  c.Rect.Width / 100 * c.Box.Width,
		Height: c.Rect.Height / 100 * c.Box.Height,
	}
}

// Active reports whether a crop gesture is in progress.
func (c *CropSession) Active() bool { return c.action != CropNone }

// PointerDown starts a handle or move gesture. It reports false on a miss.
func (c *CropSession) PointerDown(p Point) bool {
	frame := c.Frame()
	if h, ok := hitHandle(frame, p); ok {
		c.action = CropAction(h)
	} else if frame.Contains(p.X, p.Y) {
		c.action = CropMove
	} else {
		return false
	}
	c.start = p
	c.startRect = c.Rect
	return true
}

// PointerMove updates the rect for the active gesture.
func (c *CropSession) PointerMove(p Point) bool {
	if c.action == CropNone {
		return false
	}
	dx := (p.X - c.start.X) / max(c.Box.Width, minSourceSize) * 100
	dy := (p.Y - c.start.Y) / max(c.Box.Height, minSourceSize) * 100
	s := c.startRect

	if c.action == CropMove {
		c.Rect = CropRect{
			X:      clamp(s.X+dx, 0, 100-s.Width),
			Y:      clamp(s.Y+dy, 0, 100-s.Height),
			Width:  s.Width,
			Height: s.Height,
		}
		return true
	}

	h := HandleID(c.action)
	left, top, right, bottom := s.X, s.Y, s.right(), s.bottom()
	if h.left() {
		left = clamp(s.X+dx, 0, right-MinCropPercent)
	} else {
		right = clamp(s.right()+dx, left+MinCropPercent, 100)
	}
	if h.top() {
		top = clamp(s.Y+dy, 0, bottom-MinCropPercent)
	} else {
		bottom = clamp(s.bottom()+dy, top+MinCropPercent, 100)
	}
	c.Rect = CropRect{X: left, Y: top, Width: right - left, Height: bottom - top}
	return true
}

// PointerUp ends the gesture and reports whether there is a change to commit.
func (c *CropSession) PointerUp() bool {
	if c.action == CropNone {
		return false
	}
	c.action = CropNone
	return c.Rect != c.startRect
}

// Set replaces the rect, clamped to the valid range.
func (c *CropSession) Set(r CropRect) {
	c.Rect = r.clamped()
}

// Reset restores the full-image crop.
func (c *CropSession) Reset() {
	c.action = CropNone
	c.Rect = FullCrop
}

// Natural converts the rect to natural pixel units.
func (c *CropSession) Natural() document.Rect {
	return document.Rect{
		X:      c.Rect.X * c.naturalW / 100,
		Y:      c.Rect.Y * c.naturalH / 100,
		Width:  c.Rect.Width * c.naturalW / 100,
		Height: c.Rect.Height * c.naturalH / 100,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
