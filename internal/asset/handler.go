package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/etendy/canvas/backend-go/internal/resource"
	"github.com/etendy/canvas/backend-go/internal/typeid"
)

// URLPrefix is the path assets are served under and referenced by.
const URLPrefix = "/assets/"

const maxUploadSize = 10 << 20 // 10MB

var extensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
	"bmp":  ".bmp",
}

// UploadResponse is returned from the upload endpoint. The natural size is
// what an image element needs to be placed.
type UploadResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
	Type          string `json:"type"`
	Name          string `json:"name"`
}

// Dir stores uploaded images and resolves "/assets/<file>" references.
type Dir struct {
	dir string
}

// NewDir returns an asset directory rooted at dir, creating it if needed.
func NewDir(dir string) *Dir {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Dir{dir: dir}
}

// Fetch implements resource.Fetcher for asset references.
func (d *Dir) Fetch(_ context.Context, ref string) ([]byte, error) {
	name, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok || name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", resource.ErrInvalidReference, ref)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", name, err)
	}
	return data, nil
}

// Upload handles POST /assets/upload (multipart form with a "file" field).
// The original bytes are stored unchanged.
func (d *Dir) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	width, height, format, err := resource.DecodeSize(data)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	ext, ok := extensions[format]
	if !ok {
		http.Error(w, "unsupported image format: "+format, http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ext
	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0644); err != nil {
		slog.Error("write asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{
		ID:            assetID,
		URL:           URLPrefix + filename,
		NaturalWidth:  width,
		NaturalHeight: height,
		Type:          format,
		Name:          header.Filename,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (d *Dir) Serve() http.Handler {
	fs := http.FileServer(http.Dir(d.dir))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}
