package document

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func richScene() *Scene {
	s := NewSampleScene()
	s.Elements = append(s.Elements,
		&ImageElement{
			Base: Base{ID: "el_photo", X: 300, Y: 320, Opacity: 0.8, BlurRadius: 2, Rotation: -12, GroupID: "g1"},
			Bitmap: Bitmap{
				Src: "/assets/photo.png", Scale: 0.5, NaturalWidth: 1000, NaturalHeight: 800,
				BorderRadius: 24, BorderWidth: 6,
				BorderGradient: &Gradient{Colors: []string{"#ff0000", "#0000ff"}, Angle: 30},
			},
			Crop: &Rect{X: 250, Y: 200, Width: 500, Height: 400},
		},
		&LogoElement{
			Base:   Base{ID: "el_logo", X: 900, Y: 980, Opacity: 1, GroupID: "g1"},
			Bitmap: Bitmap{Src: "data:image/png;base64,AAAA", Scale: 0.25, NaturalWidth: 400, NaturalHeight: 200, BorderColor: "#ffffff", BorderWidth: 2},
		},
	)
	s.Background.Image = &BackgroundPhoto{Src: "/assets/bg.jpg", X: -10, Y: 4, Scale: 1.5, BorderRadius: 12}
	return s
}

func TestSceneRoundTrip(t *testing.T) {
	original := richScene()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip changed the scene\nwant %s\n got %s", data, mustMarshal(t, decoded))
	}

	again := mustMarshal(t, decoded)
	if !bytes.Equal(data, again) {
		t.Fatalf("second encoding differs\nfirst  %s\nsecond %s", data, again)
	}

	for i := range original.Elements {
		if got, want := decoded.Elements[i].Common().ID, original.Elements[i].Common().ID; got != want {
			t.Errorf("element %d id = %q, want %q", i, got, want)
		}
	}
}

func mustMarshal(t *testing.T, s *Scene) []byte {
	t.Helper()
	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestDecodeElementDefaults(t *testing.T) {
	el, err := DecodeElement([]byte(`{"type":"image","id":"a","src":"x","naturalWidth":10,"naturalHeight":20}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	img, ok := el.(*ImageElement)
	if !ok {
		t.Fatalf("decoded %T, want *ImageElement", el)
	}
	if img.Opacity != 1 || img.Scale != 1 || img.Crop != nil {
		t.Errorf("defaults not applied: opacity=%v scale=%v crop=%v", img.Opacity, img.Scale, img.Crop)
	}

	_, err = DecodeElement([]byte(`{"type":"sticker","id":"b"}`))
	if !errors.Is(err, ErrUnknownElement) {
		t.Errorf("unknown type error = %v, want ErrUnknownElement", err)
	}
}

func TestUpdate(t *testing.T) {
	s := richScene()

	t.Run("shallow merge", func(t *testing.T) {
		ok, err := s.Update("el_photo", Patch{"x": 10.0, "y": 20, "id": "hijack", "type": "shape"})
		if !ok || err != nil {
			t.Fatalf("update = %v, %v", ok, err)
		}
		img := s.Find("el_photo").(*ImageElement)
		if img.X != 10 || img.Y != 20 {
			t.Errorf("position = %v,%v, want 10,20", img.X, img.Y)
		}
		if img.Crop == nil || img.Crop.Width != 500 {
			t.Errorf("crop was lost: %+v", img.Crop)
		}
		if img.BorderGradient == nil {
			t.Error("border gradient was lost")
		}
	})

	t.Run("nested values replace whole", func(t *testing.T) {
		ok, err := s.Update("el_photo", Patch{"crop": Rect{X: 1, Y: 2, Width: 3, Height: 4}})
		if !ok || err != nil {
			t.Fatalf("update = %v, %v", ok, err)
		}
		if got := *s.Find("el_photo").(*ImageElement).Crop; got != (Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
			t.Errorf("crop = %+v", got)
		}
	})

	t.Run("nil removes a field", func(t *testing.T) {
		if _, err := s.Update("el_photo", Patch{"crop": nil}); err != nil {
			t.Fatalf("update: %v", err)
		}
		if c := s.Find("el_photo").(*ImageElement).Crop; c != nil {
			t.Errorf("crop = %+v, want nil", c)
		}
	})

	t.Run("stale id", func(t *testing.T) {
		before := mustMarshal(t, s)
		ok, err := s.Update("el_gone", Patch{"x": 1})
		if ok || err != nil {
			t.Errorf("update = %v, %v, want false, nil", ok, err)
		}
		if !bytes.Equal(before, mustMarshal(t, s)) {
			t.Error("stale update changed the scene")
		}
	})

	t.Run("bad value keeps element", func(t *testing.T) {
		_, err := s.Update("el_photo", Patch{"scale": "huge"})
		if err == nil {
			t.Fatal("expected an error for a string scale")
		}
		if s.Find("el_photo").(*ImageElement).Scale != 0.5 {
			t.Error("element changed after a failed patch")
		}
	})
}

func TestAddRemove(t *testing.T) {
	s := NewScene(100, 100)
	a := NewShape(ShapeRectangle, 100, 100)
	b := NewShape(ShapeCircle, 100, 100)
	if err := s.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(a); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate add = %v, want ErrDuplicateID", err)
	}
	if s.Index(b.ID) != 1 {
		t.Errorf("added element not on top")
	}

	if n := s.Remove(a.ID, "missing"); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if len(s.Elements) != 1 || s.Elements[0] != Element(b) {
		t.Errorf("remaining elements = %v", s.Elements)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		scene *Scene
		want  error
	}{
		{"ok", richScene(), nil},
		{"zero canvas", NewScene(0, 10), ErrInvalidCanvas},
		{"oversized canvas", NewScene(MaxCanvasSize+1, 10), ErrCanvasTooLarge},
		{"largest canvas", &Scene{CanvasWidth: MaxCanvasSize, CanvasHeight: MaxCanvasSize}, nil},
		{"excessive blur", &Scene{CanvasWidth: 1, CanvasHeight: 1, Elements: Elements{
			&ShapeElement{Base: Base{ID: "a", BlurRadius: MaxBlurRadius + 1}},
		}}, ErrInvalidBlur},
		{"negative blur", &Scene{CanvasWidth: 1, CanvasHeight: 1, Elements: Elements{
			&ShapeElement{Base: Base{ID: "a", BlurRadius: -1}},
		}}, ErrInvalidBlur},
		{"duplicate", &Scene{CanvasWidth: 1, CanvasHeight: 1, Elements: Elements{
			&ShapeElement{Base: Base{ID: "a"}}, &TextElement{Base: Base{ID: "a"}},
		}}, ErrDuplicateID},
		{"missing id", &Scene{CanvasWidth: 1, CanvasHeight: 1, Elements: Elements{&ShapeElement{}}}, ErrMissingID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.scene.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := richScene()
	c := s.Clone()
	if !reflect.DeepEqual(s, c) {
		t.Fatal("clone differs from original")
	}

	c.Find("el_photo").(*ImageElement).Crop.X = 999
	c.Find("el_photo").(*ImageElement).BorderGradient.Colors[0] = "#000"
	c.Background.Colors[0] = "#123456"
	c.Elements[0].Common().X = -1

	img := s.Find("el_photo").(*ImageElement)
	if img.Crop.X == 999 || img.BorderGradient.Colors[0] == "#000" {
		t.Error("clone shares image state")
	}
	if s.Background.Colors[0] == "#123456" || s.Elements[0].Common().X == -1 {
		t.Error("clone shares scene state")
	}
}

func TestCornerRadiiJSON(t *testing.T) {
	tests := []struct {
		in   string
		want CornerRadii
	}{
		{`12`, Uniform(12)},
		{`{"tl":1,"tr":2,"br":3,"bl":4}`, CornerRadii{TL: 1, TR: 2, BR: 3, BL: 4, PerCorner: true}},
		{`null`, CornerRadii{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got CornerRadii
			if err := got.UnmarshalJSON([]byte(tt.in)); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTextLines(t *testing.T) {
	tests := []struct {
		transform TextTransform
		want      []string
	}{
		{TransformNone, []string{"hello world", "second line"}},
		{TransformUppercase, []string{"HELLO WORLD", "SECOND LINE"}},
		{TransformCapitalize, []string{"Hello World", "Second Line"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.transform), func(t *testing.T) {
			el := &TextElement{Content: "hello world\nsecond line", Transform: tt.transform}
			if got := el.Lines(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFontWeight(t *testing.T) {
	tests := []struct {
		in   string
		bold bool
	}{
		{`"normal"`, false},
		{`"bold"`, true},
		{`700`, true},
		{`"500"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var w FontWeight
			if err := w.UnmarshalJSON([]byte(tt.in)); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if w.Bold() != tt.bold {
				t.Errorf("%s Bold() = %v, want %v", tt.in, w.Bold(), tt.bold)
			}
		})
	}
}
