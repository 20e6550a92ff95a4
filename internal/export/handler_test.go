package export

import (
	"image"
	_ "image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/etendy/canvas/backend-go/internal/render"
)

const sceneJSON = `{"elements":[{"type":"shape","id":"s1","shapeType":"rectangle","x":10,"y":10,"width":40,"height":20,"colors":["#ff0000"]}],"canvasWidth":200,"canvasHeight":100,"background":{"type":"color","colors":["#ffffff"]},"overlay":{"type":"none"}}`

func TestExportJPEG(t *testing.T) {
	h := NewHandler(render.New(nil), 90, 50, 40)

	tests := []struct {
		name   string
		handle http.HandlerFunc
		path   string
		wantW  int
		wantH  int
		disp   string
	}{
		{"full size", h.ExportJPEG, "/export/jpeg?name=my%20poster", 200, 100, `filename="my-poster.jpg"`},
		{"thumbnail", h.ExportThumbnail, "/export/thumbnail", 50, 25, `filename="design.jpg"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handle(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(sceneJSON)))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			if d := rec.Header().Get("Content-Disposition"); !strings.Contains(d, tt.disp) {
				t.Errorf("Content-Disposition = %q", d)
			}
			cfg, format, err := image.DecodeConfig(rec.Body)
			if err != nil || format != "jpeg" {
				t.Fatalf("decode: %v (%s)", err, format)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestExportRejectsInvalidScene(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero canvas", `{"canvasWidth":0}`},
		{"huge canvas", `{"canvasWidth":100000,"canvasHeight":100000,"elements":[]}`},
		{"huge blur", `{"canvasWidth":100,"canvasHeight":100,"elements":[` +
			`{"type":"shape","id":"el_a","shapeType":"rectangle","x":40,"y":40,"width":20,"height":20,"opacity":1,"blurRadius":5000}]}`},
	}
	h := NewHandler(render.New(nil), 90, 50, 40)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ExportJPEG(rec, httptest.NewRequest(http.MethodPost, "/export/jpeg", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

