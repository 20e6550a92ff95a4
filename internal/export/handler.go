package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/render"
)

const maxSceneSize = 16 << 20

// Exporter flattens a scene to a raster.
type Exporter interface {
	Export(ctx context.Context, s *document.Scene) (*image.RGBA, error)
}

type Handler struct {
	exporter     Exporter
	quality      int
	thumbSize    int
	thumbQuality int
}

func NewHandler(exporter Exporter, quality, thumbSize, thumbQuality int) *Handler {
	return &Handler{exporter: exporter, quality: quality, thumbSize: thumbSize, thumbQuality: thumbQuality}
}

// ExportJPEG renders the posted scene at canvas size.
func (h *Handler) ExportJPEG(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, func(dst io.Writer, img image.Image) error {
		return render.EncodeJPEG(dst, img, h.quality)
	})
}

// ExportThumbnail renders the posted scene and shrinks it to fit the
// thumbnail square.
func (h *Handler) ExportThumbnail(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, func(dst io.Writer, img image.Image) error {
		return render.EncodeThumbnail(dst, img, h.thumbSize, h.thumbQuality)
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, encode func(io.Writer, image.Image) error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSceneSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}

	scene, err := document.Unmarshal(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid scene: %v", err), http.StatusBadRequest)
		return
	}

	frame, err := h.exporter.Export(r.Context(), scene)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, frame); err != nil {
		slog.Error("encode export", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	name := sanitize(r.URL.Query().Get("name"))
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.jpg"`, name))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func sanitize(name string) string {
	if name == "" {
		return "design"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
