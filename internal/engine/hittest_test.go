package engine

import (
	"testing"

	"github.com/etendy/canvas/backend-go/internal/document"
)

func shape(id string, t document.ShapeType, fill document.FillType, x, y, w, h float64) *document.ShapeElement {
	return &document.ShapeElement{
		Base:        document.Base{ID: id, X: x, Y: y, Opacity: 1},
		ShapeType:   t,
		FillType:    fill,
		Width:       w,
		Height:      h,
		StrokeWidth: 4,
		ColorType:   document.ColorSolid,
		Colors:      []string{"#000000"},
		Spikes:      5,
	}
}

func TestPointInElement(t *testing.T) {
	line := shape("line", document.ShapeLine, document.FillSolid, 0, 0, 300, 8)
	line.Rotation = 90 // center (150, 4), axis now vertical

	tall := shape("tall", document.ShapeRectangle, document.FillSolid, 0, 0, 200, 20)
	tall.Rotation = 90

	tests := []struct {
		name string
		el   document.Element
		p    Point
		want bool
	}{
		{"rotated line 5px off axis", line, Point{155, 4}, true},
		{"rotated line 50px off axis", line, Point{200, 4}, false},
		{"rotated line along axis", line, Point{150, 144}, true},
		{"rotated line past its end", line, Point{150, 164}, false},
		{"unrotated position of rotated line", line, Point{20, 4}, false},

		{"filled rect ignores rotation inside", tall, Point{190, 10}, true},
		{"filled rect ignores rotation outside", tall, Point{100, 80}, false},

		{"outline rect center", shape("r", document.ShapeRectangle, document.FillOutline, 0, 0, 100, 100), Point{50, 50}, false},
		{"outline rect on edge", shape("r", document.ShapeRectangle, document.FillOutline, 0, 0, 100, 100), Point{2, 50}, true},
		{"outline rect just outside", shape("r", document.ShapeRectangle, document.FillOutline, 0, 0, 100, 100), Point{-8, 50}, true},
		{"outline rect too far", shape("r", document.ShapeRectangle, document.FillOutline, 0, 0, 100, 100), Point{-10, 50}, false},
		{"outline rect corner", shape("r", document.ShapeRectangle, document.FillOutline, 0, 0, 100, 100), Point{100, 100}, true},

		{"outline circle center", shape("c", document.ShapeCircle, document.FillOutline, 0, 0, 100, 100), Point{50, 50}, false},
		{"outline circle on ring", shape("c", document.ShapeCircle, document.FillOutline, 0, 0, 100, 100), Point{100, 50}, true},
		{"outline circle within band", shape("c", document.ShapeCircle, document.FillOutline, 0, 0, 100, 100), Point{106, 50}, true},
		{"outline circle beyond band", shape("c", document.ShapeCircle, document.FillOutline, 0, 0, 100, 100), Point{50, 108}, false},

		{"outline star never hits", shape("s", document.ShapeStar, document.FillOutline, 0, 0, 100, 100), Point{50, 50}, false},
		{"filled star uses its box", shape("s", document.ShapeStar, document.FillSolid, 0, 0, 100, 100), Point{2, 2}, true},

		{
			"image box",
			&document.ImageElement{
				Base:   document.Base{ID: "img", X: 100, Y: 100},
				Bitmap: document.Bitmap{Scale: 1, NaturalWidth: 40, NaturalHeight: 20},
			},
			Point{119, 109}, true,
		},
		{
			"text box",
			&document.TextElement{Base: document.Base{ID: "txt", X: 0, Y: 0}, Content: "abcd", Size: 10, LineHeight: 1},
			Point{21, 9}, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInElement(tt.p, tt.el, nil); got != tt.want {
				t.Errorf("PointInElement(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestHitTestSceneTopmost(t *testing.T) {
	s := document.NewScene(500, 500)
	s.Elements = document.Elements{
		shape("bottom", document.ShapeRectangle, document.FillSolid, 0, 0, 100, 100),
		shape("top", document.ShapeRectangle, document.FillSolid, 50, 50, 100, 100),
	}

	tests := []struct {
		p    Point
		want string
	}{
		{Point{75, 75}, "top"},
		{Point{25, 25}, "bottom"},
		{Point{400, 400}, ""},
	}
	for _, tt := range tests {
		if got := HitTestScene(s, tt.p, nil); got != tt.want {
			t.Errorf("HitTestScene(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestHitHandle(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	if h, ok := hitHandle(r, Point{104, 103}); !ok || h != HandleBR {
		t.Errorf("hitHandle near br = %q, %v", h, ok)
	}
	if _, ok := hitHandle(r, Point{105, 105}); ok {
		t.Error("hitHandle beyond radius should miss")
	}
}
