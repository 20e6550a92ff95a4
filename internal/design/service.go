package design

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/render"
	"github.com/etendy/canvas/backend-go/internal/store"
	"github.com/etendy/canvas/backend-go/internal/typeid"
)

var (
	ErrNotFound     = errors.New("design not found")
	ErrInvalidScene = errors.New("invalid scene")
)

// Exporter flattens a scene to a raster.
type Exporter interface {
	Export(ctx context.Context, s *document.Scene) (*image.RGBA, error)
}

type Service struct {
	store        store.Store
	exporter     Exporter
	thumbSize    int
	thumbQuality int
}

func NewService(st store.Store, exporter Exporter, thumbSize, thumbQuality int) *Service {
	if thumbSize <= 0 {
		thumbSize = render.DefaultThumbnailSize
	}
	if thumbQuality <= 0 {
		thumbQuality = render.DefaultThumbnailQuality
	}
	return &Service{store: st, exporter: exporter, thumbSize: thumbSize, thumbQuality: thumbQuality}
}

func (s *Service) List(ctx context.Context) ([]store.Design, error) {
	designs, err := s.store.ListDesigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	if designs == nil {
		designs = []store.Design{}
	}
	return designs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.Design, error) {
	if err := typeid.Validate(id, typeid.PrefixDesign); err != nil {
		return nil, ErrNotFound
	}
	d, err := s.store.GetDesign(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "get design")
	}
	return d, nil
}

// Save validates and stores the scene under id, creating the design when id
// is empty, then re-renders its thumbnail. A thumbnail failure is logged and
// does not fail the save.
func (s *Service) Save(ctx context.Context, id, name string, sceneJSON []byte) (*store.Design, error) {
	scene, err := document.Unmarshal(sceneJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if id == "" {
		id = typeid.NewDesignID()
	} else if err := typeid.Validate(id, typeid.PrefixDesign); err != nil {
		return nil, ErrNotFound
	}

	canonical, err := document.Marshal(scene)
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	d := &store.Design{
		ID:     id,
		Name:   name,
		Width:  scene.CanvasWidth,
		Height: scene.CanvasHeight,
		Scene:  canonical,
	}
	if err := s.store.SaveDesign(ctx, d); err != nil {
		return nil, fmt.Errorf("save design: %w", err)
	}

	if err := s.renderThumbnail(ctx, id, scene); err != nil {
		slog.Error("render thumbnail failed", "designId", id, "error", err)
	}
	return d, nil
}

func (s *Service) renderThumbnail(ctx context.Context, id string, scene *document.Scene) error {
	frame, err := s.exporter.Export(ctx, scene)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render.EncodeThumbnail(&buf, frame, s.thumbSize, s.thumbQuality); err != nil {
		return err
	}
	return s.store.SaveThumbnail(ctx, id, buf.Bytes())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := typeid.Validate(id, typeid.PrefixDesign); err != nil {
		return ErrNotFound
	}
	return mapStoreError(s.store.DeleteDesign(ctx, id), "delete design")
}

func (s *Service) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	if err := typeid.Validate(id, typeid.PrefixDesign); err != nil {
		return nil, ErrNotFound
	}
	data, err := s.store.GetThumbnail(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "get thumbnail")
	}
	return data, nil
}

func mapStoreError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
