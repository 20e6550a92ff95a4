package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownElement = errors.New("unknown element type")
	ErrDuplicateID    = errors.New("duplicate element id")
	ErrMissingID      = errors.New("element id is required")
	ErrInvalidCanvas  = errors.New("canvas size must be positive")
	ErrCanvasTooLarge = errors.New("canvas size exceeds limit")
	ErrInvalidBlur    = errors.New("blur radius out of range")
)

const (
	// MaxCanvasSize bounds each canvas side, in pixels.
	MaxCanvasSize = 8192
	// MaxBlurRadius bounds an element's blur standard deviation, in pixels.
	MaxBlurRadius = 100
)

// CheckCanvas validates a canvas size.
func CheckCanvas(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidCanvas
	}
	if width > MaxCanvasSize || height > MaxCanvasSize {
		return fmt.Errorf("%w: %dx%d, max %d", ErrCanvasTooLarge, width, height, MaxCanvasSize)
	}
	return nil
}

// CheckBlur validates a blur radius.
func CheckBlur(radius float64) error {
	if !(radius >= 0 && radius <= MaxBlurRadius) {
		return fmt.Errorf("%w: %v, max %d", ErrInvalidBlur, radius, MaxBlurRadius)
	}
	return nil
}

type ElementType string

const (
	ElementTypeImage ElementType = "image"
	ElementTypeLogo  ElementType = "logo"
	ElementTypeText  ElementType = "text"
	ElementTypeShape ElementType = "shape"
)

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeLine      ShapeType = "line"
	ShapeStar      ShapeType = "star"
)

type FillType string

const (
	FillSolid   FillType = "fill"
	FillOutline FillType = "outline"
)

type ColorType string

const (
	ColorSolid    ColorType = "solid"
	ColorGradient ColorType = "gradient"
)

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type FontStyle string

const (
	StyleNormal FontStyle = "normal"
	StyleItalic FontStyle = "italic"
)

type TextTransform string

const (
	TransformNone       TextTransform = "none"
	TransformUppercase  TextTransform = "uppercase"
	TransformCapitalize TextTransform = "capitalize"
)

type BackgroundType string

const (
	BackgroundColor    BackgroundType = "color"
	BackgroundGradient BackgroundType = "gradient"
	BackgroundImage    BackgroundType = "image"
)

type OverlayType string

const (
	OverlayNone     OverlayType = "none"
	OverlaySolid    OverlayType = "solid"
	OverlayGradient OverlayType = "gradient"
)

// Element is one placed object on the canvas. The set of implementations is
// closed: *ImageElement, *LogoElement, *TextElement and *ShapeElement.
type Element interface {
	Type() ElementType
	Common() *Base
	Clone() Element
	json.Marshaler
}

// Base holds the fields shared by every element variant.
type Base struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Opacity    float64 `json:"opacity"`
	BlurRadius float64 `json:"blurRadius"`
	Rotation   float64 `json:"rotation"` // degrees
	GroupID    string  `json:"groupId,omitempty"`
}

// Rect is a crop rectangle in natural pixel units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Gradient struct {
	Colors []string `json:"colors"`
	Angle  float64  `json:"angle"`
}

// Bitmap is the raster part shared by images and logos.
type Bitmap struct {
	Src            string    `json:"src"`
	Scale          float64   `json:"scale"`
	NaturalWidth   float64   `json:"naturalWidth"`
	NaturalHeight  float64   `json:"naturalHeight"`
	BorderRadius   float64   `json:"borderRadius"`
	BorderWidth    float64   `json:"borderWidth"`
	BorderColor    string    `json:"borderColor,omitempty"`
	BorderGradient *Gradient `json:"borderGradient,omitempty"`
}

type ImageElement struct {
	Base
	Bitmap
	Crop *Rect `json:"crop,omitempty"`
}

type LogoElement struct {
	Base
	Bitmap
}

type TextElement struct {
	Base
	Content       string        `json:"content"`
	Font          string        `json:"font"`
	FontSrc       string        `json:"fontSrc,omitempty"` // font file reference; overrides Font when it loads
	Weight        FontWeight    `json:"weight"`
	Style         FontStyle     `json:"style"`
	Transform     TextTransform `json:"transform"`
	Size          float64       `json:"size"`
	LineHeight    float64       `json:"lineHeight"`
	TextAlign     TextAlign     `json:"textAlign"`
	ColorType     ColorType     `json:"colorType"`
	Colors        []string      `json:"colors"`
	GradientAngle float64       `json:"gradientAngle"`
}

type ShapeElement struct {
	Base
	ShapeType     ShapeType   `json:"shapeType"`
	Width         float64     `json:"width"`
	Height        float64     `json:"height"`
	FillType      FillType    `json:"fillType"`
	StrokeWidth   float64     `json:"strokeWidth"`
	ColorType     ColorType   `json:"colorType"`
	Colors        []string    `json:"colors"`
	GradientAngle float64     `json:"gradientAngle"`
	BorderRadius  CornerRadii `json:"borderRadius"`
	Spikes        int         `json:"spikes"`
}

func (e *ImageElement) Type() ElementType { return ElementTypeImage }
func (e *LogoElement) Type() ElementType  { return ElementTypeLogo }
func (e *TextElement) Type() ElementType  { return ElementTypeText }
func (e *ShapeElement) Type() ElementType { return ElementTypeShape }

func (e *ImageElement) Common() *Base { return &e.Base }
func (e *LogoElement) Common() *Base  { return &e.Base }
func (e *TextElement) Common() *Base  { return &e.Base }
func (e *ShapeElement) Common() *Base { return &e.Base }

// Source returns the crop rect, or the full natural rect when the image is
// uncropped.
func (e *ImageElement) Source() Rect {
	if e.Crop != nil {
		return *e.Crop
	}
	return Rect{Width: e.NaturalWidth, Height: e.NaturalHeight}
}

// Background describes the canvas backdrop.
type Background struct {
	Type   BackgroundType   `json:"type"`
	Colors []string         `json:"colors"`
	Angle  float64          `json:"angle"`
	Image  *BackgroundPhoto `json:"image,omitempty"`
}

// BackgroundPhoto is an image background drawn at X,Y (top-left) and Scale.
type BackgroundPhoto struct {
	Src          string  `json:"src"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Scale        float64 `json:"scale"`
	BorderRadius float64 `json:"borderRadius"`
	BorderWidth  float64 `json:"borderWidth"`
	BorderColor  string  `json:"borderColor,omitempty"`
}

// Overlay is a tint painted over the background and under the elements.
// Opacities pairs with Colors by index.
type Overlay struct {
	Type      OverlayType `json:"type"`
	Colors    []string    `json:"colors"`
	Opacities []float64   `json:"opacities"`
	Angle     float64     `json:"angle"`
}

// Scene is the serializable bundle: elements plus canvas, background and
// overlay parameters.
type Scene struct {
	Elements     Elements   `json:"elements"`
	CanvasWidth  int        `json:"canvasWidth"`
	CanvasHeight int        `json:"canvasHeight"`
	Background   Background `json:"background"`
	Overlay      Overlay    `json:"overlay"`
}

// NewScene returns an empty scene with a white background.
func NewScene(width, height int) *Scene {
	return &Scene{
		Elements:     Elements{},
		CanvasWidth:  width,
		CanvasHeight: height,
		Background:   Background{Type: BackgroundColor, Colors: []string{"#ffffff"}},
		Overlay:      Overlay{Type: OverlayNone},
	}
}

// Validate checks canvas size, blur radii and id uniqueness.
func (s *Scene) Validate() error {
	if err := CheckCanvas(s.CanvasWidth, s.CanvasHeight); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Elements))
	for _, el := range s.Elements {
		id := el.Common().ID
		if id == "" {
			return ErrMissingID
		}
		if err := CheckBlur(el.Common().BlurRadius); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return nil
}

// Index returns the z-index of id, or -1.
func (s *Scene) Index(id string) int {
	for i, el := range s.Elements {
		if el.Common().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the element with id, or nil.
func (s *Scene) Find(id string) Element {
	if i := s.Index(id); i >= 0 {
		return s.Elements[i]
	}
	return nil
}

// Add appends el on top of the z-order.
func (s *Scene) Add(el Element) error {
	id := el.Common().ID
	if id == "" {
		return ErrMissingID
	}
	if s.Index(id) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	s.Elements = append(s.Elements, el)
	return nil
}

// Remove drops every element whose id is listed and returns how many were
// removed. Unknown ids are ignored.
func (s *Scene) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make(Elements, 0, len(s.Elements))
	removed := 0
	for _, el := range s.Elements {
		if drop[el.Common().ID] {
			removed++
			continue
		}
		kept = append(kept, el)
	}
	s.Elements = kept
	return removed
}

// GroupMembers returns the ids sharing groupID, in z-order.
func (s *Scene) GroupMembers(groupID string) []string {
	if groupID == "" {
		return nil
	}
	var ids []string
	for _, el := range s.Elements {
		if el.Common().GroupID == groupID {
			ids = append(ids, el.Common().ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	out := &Scene{
		CanvasWidth:  s.CanvasWidth,
		CanvasHeight: s.CanvasHeight,
		Background: Background{
			Type:   s.Background.Type,
			Colors: cloneStrings(s.Background.Colors),
			Angle:  s.Background.Angle,
		},
		Overlay: Overlay{
			Type:      s.Overlay.Type,
			Colors:    cloneStrings(s.Overlay.Colors),
			Opacities: cloneFloats(s.Overlay.Opacities),
			Angle:     s.Overlay.Angle,
		},
	}
	if s.Background.Image != nil {
		photo := *s.Background.Image
		out.Background.Image = &photo
	}
	if s.Elements != nil {
		out.Elements = make(Elements, len(s.Elements))
		for i, el := range s.Elements {
			out.Elements[i] = el.Clone()
		}
	}
	return out
}

func (e *ImageElement) Clone() Element {
	c := *e
	c.Bitmap = e.Bitmap.clone()
	if e.Crop != nil {
		crop := *e.Crop
		c.Crop = &crop
	}
	return &c
}

func (e *LogoElement) Clone() Element {
	c := *e
	c.Bitmap = e.Bitmap.clone()
	return &c
}

func (e *TextElement) Clone() Element {
	c := *e
	c.Colors = cloneStrings(e.Colors)
	return &c
}

func (e *ShapeElement) Clone() Element {
	c := *e
	c.Colors = cloneStrings(e.Colors)
	return &c
}

func (b Bitmap) clone() Bitmap {
	if b.BorderGradient != nil {
		g := Gradient{Colors: cloneStrings(b.BorderGradient.Colors), Angle: b.BorderGradient.Angle}
		b.BorderGradient = &g
	}
	return b
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneFloats(f []float64) []float64 {
	if f == nil {
		return nil
	}
	return append([]float64{}, f...)
}
