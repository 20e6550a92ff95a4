package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/etendy/canvas/backend-go/internal/capability"
	"github.com/etendy/canvas/backend-go/internal/document"
)

func TestCapabilities(t *testing.T) {
	caps := capability.Set{
		BackgroundTypes: []string{"color"},
		ShapeTypes:      []string{"rectangle", "circle"},
		Fonts:           []string{"Go"},
	}

	tests := []struct {
		name string
		op   func(e *Engine) error
		deny bool
	}{
		{"allowed shape", func(e *Engine) error { _, err := e.AddShape(document.ShapeCircle); return err }, false},
		{"disallowed shape", func(e *Engine) error { _, err := e.AddShape(document.ShapeStar); return err }, true},
		{"allowed font", func(e *Engine) error { _, err := e.AddText("hi"); return err }, false},
		{"disallowed font", func(e *Engine) error {
			txt := document.NewText("hi", 100, 100)
			txt.Font = "Comic"
			return e.AddElement(txt)
		}, true},
		{"blur patch", func(e *Engine) error {
			_, err := e.SetProperties("box", document.Patch{"blurRadius": 4})
			return err
		}, true},
		{"shape type patch", func(e *Engine) error {
			_, err := e.SetProperties("box", document.Patch{"shapeType": "star"})
			return err
		}, true},
		{"plain patch", func(e *Engine) error {
			_, err := e.SetProperties("box", document.Patch{"x": 4})
			return err
		}, false},
		{"bordered image", func(e *Engine) error {
			img := document.NewImage("/assets/a.png", 100, 100, 500, 500)
			img.BorderWidth = 3
			return e.AddElement(img)
		}, true},
		{"allowed background", func(e *Engine) error {
			return e.SetBackground(document.Background{Type: document.BackgroundColor, Colors: []string{"#000"}})
		}, false},
		{"disallowed background", func(e *Engine) error {
			return e.SetBackground(document.Background{Type: document.BackgroundGradient, Colors: []string{"#000", "#fff"}})
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithCapabilities(caps))
			s := document.NewScene(500, 500)
			s.Elements = document.Elements{shape("box", document.ShapeRectangle, document.FillSolid, 0, 0, 50, 50)}
			e.SetScene(s)
			before := e.Snapshot()

			err := tt.op(e)
			if tt.deny {
				if !errors.Is(err, capability.ErrNotPermitted) {
					t.Fatalf("err = %v, want ErrNotPermitted", err)
				}
				if e.CanUndo() {
					t.Error("refused operation recorded a checkpoint")
				}
				if b, _ := document.Marshal(before); string(b) != e.GetScene() {
					t.Error("refused operation changed the scene")
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestAddElementAssignsID(t *testing.T) {
	e := NewEngine()
	el := &document.ShapeElement{ShapeType: document.ShapeCircle, Width: 10, Height: 10}
	if err := e.AddElement(el); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if el.ID == "" {
		t.Fatal("no id assigned")
	}
	if err := e.AddElement(el.Clone()); !errors.Is(err, document.ErrDuplicateID) {
		t.Errorf("second add err = %v, want ErrDuplicateID", err)
	}
}

func TestRenderLimits(t *testing.T) {
	e := NewEngine()
	id, err := e.AddShape(document.ShapeRectangle)
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}

	if _, err := e.SetProperties(id, document.Patch{"blurRadius": document.MaxBlurRadius * 2}); !errors.Is(err, document.ErrInvalidBlur) {
		t.Errorf("excessive blur err = %v, want ErrInvalidBlur", err)
	}
	if ok, err := e.SetProperties(id, document.Patch{"blurRadius": 8}); err != nil || !ok {
		t.Errorf("blur 8 = %v, %v", ok, err)
	}

	blurred := &document.ShapeElement{Base: document.Base{BlurRadius: -3}, ShapeType: document.ShapeCircle, Width: 10, Height: 10}
	if err := e.AddElement(blurred); !errors.Is(err, document.ErrInvalidBlur) {
		t.Errorf("negative blur err = %v, want ErrInvalidBlur", err)
	}

	if err := e.SetCanvasSize(document.MaxCanvasSize+1, 100); !errors.Is(err, document.ErrCanvasTooLarge) {
		t.Errorf("oversized canvas err = %v, want ErrCanvasTooLarge", err)
	}
	if err := e.SetCanvasSize(document.MaxCanvasSize, 100); err != nil {
		t.Errorf("largest canvas: %v", err)
	}
}

func TestLoadSceneResetsState(t *testing.T) {
	e := NewEngine()
	e.AddShape(document.ShapeRectangle)

	data, err := document.Marshal(document.NewSampleScene())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := e.LoadScene(data); err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if e.CanUndo() || len(e.Selection()) != 0 {
		t.Errorf("load kept history=%v selection=%v", e.CanUndo(), e.Selection())
	}
	if string(data) != e.GetScene() {
		t.Error("loaded scene does not re-encode identically")
	}

	if err := e.LoadScene([]byte(`{"canvasWidth":0}`)); !errors.Is(err, document.ErrInvalidCanvas) {
		t.Errorf("bad scene err = %v", err)
	}
}

func TestStateJSON(t *testing.T) {
	e := NewEngine()
	id, _ := e.AddShape(document.ShapeRectangle)

	var st struct {
		Selection []string `json:"selection"`
		ActiveID  string   `json:"activeId"`
		Bounds    Rect     `json:"bounds"`
		Handles   *Handles `json:"handles"`
		Gesture   string   `json:"gesture"`
		CanUndo   bool     `json:"canUndo"`
	}
	if err := json.Unmarshal([]byte(e.StateJSON()), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.ActiveID != id || len(st.Selection) != 1 {
		t.Errorf("selection = %v active = %q", st.Selection, st.ActiveID)
	}
	if st.Bounds != (Rect{X: 650, Y: 650, Width: 200, Height: 200}) {
		t.Errorf("bounds = %+v", st.Bounds)
	}
	if st.Handles == nil || st.Handles.BR.X != 850 {
		t.Errorf("handles = %+v", st.Handles)
	}
	if st.Gesture != string(GestureIdle) || !st.CanUndo {
		t.Errorf("gesture = %q canUndo = %v", st.Gesture, st.CanUndo)
	}
	if got := e.GetElementBounds("missing"); got != "null" {
		t.Errorf("GetElementBounds(missing) = %s", got)
	}
}
