package document

import (
	"github.com/etendy/canvas/backend-go/internal/typeid"
)

const (
	DefaultCanvasSize = 1500
	DefaultShapeSize  = 200
)

// NewShape returns a shape of the default size centered on a canvas of the
// given dimensions.
func NewShape(shapeType ShapeType, canvasWidth, canvasHeight int) *ShapeElement {
	w, h := float64(DefaultShapeSize), float64(DefaultShapeSize)
	if shapeType == ShapeLine {
		h = 8
	}
	return &ShapeElement{
		Base: Base{
			ID:      typeid.NewElementID(),
			X:       float64(canvasWidth)/2 - w/2,
			Y:       float64(canvasHeight)/2 - h/2,
			Opacity: 1,
		},
		ShapeType:   shapeType,
		Width:       w,
		Height:      h,
		FillType:    FillSolid,
		StrokeWidth: 4,
		ColorType:   ColorSolid,
		Colors:      []string{"#1f2937"},
		Spikes:      5,
	}
}

// NewText returns a single-line text element anchored at the canvas center.
func NewText(content string, canvasWidth, canvasHeight int) *TextElement {
	return &TextElement{
		Base:       centeredBase(canvasWidth, canvasHeight),
		Content:    content,
		Font:       "Go",
		Weight:     "normal",
		Style:      StyleNormal,
		Transform:  TransformNone,
		Size:       64,
		LineHeight: 1.2,
		TextAlign:  AlignCenter,
		ColorType:  ColorSolid,
		Colors:     []string{"#111827"},
	}
}

// NewImage returns an uncropped image centered on the canvas, scaled down to
// fit within 80% of it.
func NewImage(src string, naturalWidth, naturalHeight float64, canvasWidth, canvasHeight int) *ImageElement {
	return &ImageElement{
		Base:   centeredBase(canvasWidth, canvasHeight),
		Bitmap: fittedBitmap(src, naturalWidth, naturalHeight, canvasWidth, canvasHeight),
	}
}

// NewLogo is NewImage for logos.
func NewLogo(src string, naturalWidth, naturalHeight float64, canvasWidth, canvasHeight int) *LogoElement {
	return &LogoElement{
		Base:   centeredBase(canvasWidth, canvasHeight),
		Bitmap: fittedBitmap(src, naturalWidth, naturalHeight, canvasWidth, canvasHeight),
	}
}

func centeredBase(canvasWidth, canvasHeight int) Base {
	return Base{
		ID:      typeid.NewElementID(),
		X:       float64(canvasWidth) / 2,
		Y:       float64(canvasHeight) / 2,
		Opacity: 1,
	}
}

func fittedBitmap(src string, w, h float64, canvasWidth, canvasHeight int) Bitmap {
	scale := 1.0
	if w > 0 && h > 0 {
		scale = min(1, 0.8*float64(canvasWidth)/w, 0.8*float64(canvasHeight)/h)
	}
	return Bitmap{Src: src, Scale: scale, NaturalWidth: w, NaturalHeight: h}
}

// NewSampleScene builds a small demo design with one of each shape and a
// two-line gradient headline.
func NewSampleScene() *Scene {
	s := NewScene(1080, 1080)
	s.Background = Background{
		Type:   BackgroundGradient,
		Colors: []string{"#fdf2f8", "#dbeafe"},
		Angle:  45,
	}
	s.Overlay = Overlay{
		Type:      OverlayGradient,
		Colors:    []string{"#000000", "#000000"},
		Opacities: []float64{0, 0.25},
		Angle:     90,
	}

	card := NewShape(ShapeRectangle, s.CanvasWidth, s.CanvasHeight)
	card.X, card.Y = 140, 140
	card.Width, card.Height = 800, 800
	card.Colors = []string{"#ffffff"}
	card.BorderRadius = CornerRadii{TL: 48, TR: 48, BR: 0, BL: 48, PerCorner: true}
	card.Opacity = 0.9

	ring := NewShape(ShapeCircle, s.CanvasWidth, s.CanvasHeight)
	ring.X, ring.Y = 200, 200
	ring.FillType = FillOutline
	ring.StrokeWidth = 12
	ring.Colors = []string{"#f43f5e"}

	star := NewShape(ShapeStar, s.CanvasWidth, s.CanvasHeight)
	star.X, star.Y = 680, 200
	star.Colors = []string{"#f59e0b"}
	star.Rotation = 15

	rule := NewShape(ShapeLine, s.CanvasWidth, s.CanvasHeight)
	rule.X, rule.Y = 290, 700
	rule.Width = 500
	rule.Colors = []string{"#6366f1"}

	headline := NewText("Hello\ncanvas", s.CanvasWidth, s.CanvasHeight)
	headline.Y = 440
	headline.Weight = "bold"
	headline.Transform = TransformUppercase
	headline.ColorType = ColorGradient
	headline.Colors = []string{"#6366f1", "#ec4899"}

	s.Elements = append(s.Elements, card, ring, star, rule, headline)
	return s
}
