package engine

import (
	"math"
	"testing"

	"github.com/etendy/canvas/backend-go/internal/document"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func rectApprox(a, b Rect) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Width, b.Width) && approx(a.Height, b.Height)
}

func TestDefaultRectangleIsCentered(t *testing.T) {
	e := NewEngine()
	id, err := e.AddShape(document.ShapeRectangle)
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	r, ok := BoundingRect(e.Scene().Find(id), nil)
	if !ok {
		t.Fatal("no bounding rect")
	}
	want := Rect{X: 650, Y: 650, Width: 200, Height: 200}
	if r != want {
		t.Errorf("BoundingRect = %+v, want %+v", r, want)
	}
	if got := e.Selection(); len(got) != 1 || got[0] != id {
		t.Errorf("selection = %v, want [%s]", got, id)
	}
}

func TestBoundingRect(t *testing.T) {
	tests := []struct {
		name string
		el   document.Element
		want Rect
	}{
		{
			name: "image uses crop and scale around center",
			el: &document.ImageElement{
				Base:   document.Base{X: 300, Y: 320},
				Bitmap: document.Bitmap{Scale: 0.5, NaturalWidth: 1000, NaturalHeight: 800},
				Crop:   &document.Rect{X: 250, Y: 200, Width: 500, Height: 400},
			},
			want: Rect{X: 175, Y: 220, Width: 250, Height: 200},
		},
		{
			name: "uncropped image uses natural size",
			el: &document.ImageElement{
				Base:   document.Base{X: 500, Y: 500},
				Bitmap: document.Bitmap{Scale: 0.5, NaturalWidth: 1000, NaturalHeight: 800},
			},
			want: Rect{X: 250, Y: 300, Width: 500, Height: 400},
		},
		{
			name: "zero sized image is clamped to one pixel",
			el: &document.ImageElement{
				Base:   document.Base{X: 10, Y: 10},
				Bitmap: document.Bitmap{Scale: 1},
			},
			want: Rect{X: 9.5, Y: 9.5, Width: 1, Height: 1},
		},
		{
			name: "logo uses full natural size",
			el: &document.LogoElement{
				Base:   document.Base{X: 100, Y: 100},
				Bitmap: document.Bitmap{Scale: 2, NaturalWidth: 40, NaturalHeight: 20},
			},
			want: Rect{X: 60, Y: 80, Width: 80, Height: 40},
		},
		{
			name: "shape is verbatim",
			el: &document.ShapeElement{
				Base:  document.Base{X: 12, Y: 34},
				Width: 56, Height: 78,
			},
			want: Rect{X: 12, Y: 34, Width: 56, Height: 78},
		},
		{
			name: "left aligned text",
			el: &document.TextElement{
				Base:    document.Base{X: 100, Y: 50},
				Content: "abcd\nab", Size: 10, LineHeight: 1.5, TextAlign: document.AlignLeft,
			},
			want: Rect{X: 100, Y: 50, Width: 22, Height: 30},
		},
		{
			name: "center aligned text",
			el: &document.TextElement{
				Base:    document.Base{X: 100, Y: 50},
				Content: "abcd", Size: 10, LineHeight: 1, TextAlign: document.AlignCenter,
			},
			want: Rect{X: 89, Y: 50, Width: 22, Height: 10},
		},
		{
			name: "right aligned text",
			el: &document.TextElement{
				Base:    document.Base{X: 100, Y: 50},
				Content: "abcd", Size: 10, LineHeight: 1, TextAlign: document.AlignRight,
			},
			want: Rect{X: 78, Y: 50, Width: 22, Height: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BoundingRect(tt.el, nil)
			if !ok {
				t.Fatal("no bounding rect")
			}
			if !rectApprox(got, tt.want) {
				t.Errorf("BoundingRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoundingRectMinimums(t *testing.T) {
	degenerate := []document.Element{
		&document.ShapeElement{Base: document.Base{ID: "line"}, ShapeType: document.ShapeLine},
		&document.ShapeElement{Base: document.Base{ID: "flat"}, ShapeType: document.ShapeRectangle, Width: 50},
		&document.ShapeElement{Base: document.Base{ID: "negative"}, ShapeType: document.ShapeCircle, Width: -20, Height: -5},
		&document.ImageElement{Base: document.Base{ID: "image"}, Bitmap: document.Bitmap{Scale: 1}},
		&document.LogoElement{Base: document.Base{ID: "logo"}, Bitmap: document.Bitmap{Scale: 0.25, NaturalWidth: -4, NaturalHeight: 2}},
	}
	for _, el := range append(document.NewSampleScene().Elements, degenerate...) {
		if _, ok := el.(*document.TextElement); ok {
			continue
		}
		r, ok := BoundingRect(el, nil)
		if !ok {
			t.Fatalf("%s: no bounding rect", el.Common().ID)
		}
		if r.Width < 1 || r.Height < 1 {
			t.Errorf("%s: size %+v below 1px", el.Common().ID, r)
		}
	}

	line, _ := BoundingRect(degenerate[0], nil)
	if line != (Rect{Width: 1, Height: 1}) {
		t.Errorf("zero-size line = %+v, want 1x1", line)
	}
	flat, _ := BoundingRect(degenerate[1], nil)
	if flat.Width != 50 || flat.Height != 1 {
		t.Errorf("flat rectangle = %+v, want 50x1", flat)
	}

	empty := &document.TextElement{Size: 20, LineHeight: 1}
	r, _ := BoundingRect(empty, nil)
	if r.Width != 0 || r.Height != 20 {
		t.Errorf("empty text = %+v, want zero width and one line", r)
	}
}

func TestResizeHandles(t *testing.T) {
	h := ResizeHandles(Rect{X: 10, Y: 20, Width: 100, Height: 50})
	want := map[HandleID]Handle{
		HandleTL: {ID: HandleTL, X: 10, Y: 20, Cursor: "nwse-resize"},
		HandleTR: {ID: HandleTR, X: 110, Y: 20, Cursor: "nesw-resize"},
		HandleBL: {ID: HandleBL, X: 10, Y: 70, Cursor: "nesw-resize"},
		HandleBR: {ID: HandleBR, X: 110, Y: 70, Cursor: "nwse-resize"},
	}
	for _, got := range h.All() {
		if got != want[got.ID] {
			t.Errorf("handle %s = %+v, want %+v", got.ID, got, want[got.ID])
		}
	}
	for id, opp := range map[HandleID]HandleID{HandleTL: HandleBR, HandleTR: HandleBL, HandleBL: HandleTR, HandleBR: HandleTL} {
		if id.Opposite() != opp {
			t.Errorf("%s.Opposite() = %s, want %s", id, id.Opposite(), opp)
		}
	}
}

func TestVisualBounds(t *testing.T) {
	el := &document.ShapeElement{
		Base:  document.Base{X: 0, Y: 0, Rotation: 90},
		Width: 200, Height: 100,
	}
	got, _ := VisualBounds(el, nil)
	want := Rect{X: 50, Y: -50, Width: 100, Height: 200}
	if !rectApprox(got, want) {
		t.Errorf("VisualBounds = %+v, want %+v", got, want)
	}

	text := &document.TextElement{Base: document.Base{X: 0, Y: 0, Rotation: 180}, Content: "ab", Size: 10, LineHeight: 1}
	got, _ = VisualBounds(text, nil)
	want = Rect{X: -11, Y: -10, Width: 11, Height: 10}
	if !rectApprox(got, want) {
		t.Errorf("text rotates about its anchor: got %+v, want %+v", got, want)
	}
}

func TestMatrixInvert(t *testing.T) {
	m := RotateAbout(37, 12, -4).Multiply(Translate(5, 9))
	x, y := m.TransformPoint(3, 4)
	bx, by := m.Invert().TransformPoint(x, y)
	if math.Abs(bx-3) > eps || math.Abs(by-4) > eps {
		t.Errorf("invert round trip = (%v, %v), want (3, 4)", bx, by)
	}
}
