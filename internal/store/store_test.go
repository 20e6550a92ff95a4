package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "nested", "canvas.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open(context.Background(), "mysql://localhost/db"); !errors.Is(err, ErrUnsupportedDB) {
		t.Errorf("err = %v, want ErrUnsupportedDB", err)
	}
}

func TestSQLiteDesignLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := &Design{ID: "design_1", Name: "Poster", Width: 800, Height: 600, Scene: json.RawMessage(`{"elements":[]}`)}
	if err := s.SaveDesign(ctx, d); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	if d.Version != 1 || d.CreatedAt.IsZero() {
		t.Errorf("after insert: version=%d created=%v", d.Version, d.CreatedAt)
	}

	d.Name = "Poster v2"
	d.Scene = json.RawMessage(`{"elements":[{"id":"a"}]}`)
	if err := s.SaveDesign(ctx, d); err != nil {
		t.Fatalf("SaveDesign update: %v", err)
	}
	if d.Version != 2 {
		t.Errorf("version = %d, want 2", d.Version)
	}

	got, err := s.GetDesign(ctx, "design_1")
	if err != nil {
		t.Fatalf("GetDesign: %v", err)
	}
	if got.Name != "Poster v2" || string(got.Scene) != `{"elements":[{"id":"a"}]}` || got.Width != 800 {
		t.Errorf("GetDesign = %+v", got)
	}

	if err := s.SaveDesign(ctx, &Design{ID: "design_2", Width: 10, Height: 10, Scene: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListDesigns(ctx)
	if err != nil {
		t.Fatalf("ListDesigns: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	for _, item := range list {
		if item.Scene != nil {
			t.Errorf("listing %s carries a scene", item.ID)
		}
	}

	if _, err := s.GetThumbnail(ctx, "design_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("thumbnail before save: err = %v", err)
	}
	if err := s.SaveThumbnail(ctx, "design_1", []byte{0xff, 0xd8}); err != nil {
		t.Fatalf("SaveThumbnail: %v", err)
	}
	thumb, err := s.GetThumbnail(ctx, "design_1")
	if err != nil || len(thumb) != 2 {
		t.Errorf("GetThumbnail = %v, %v", thumb, err)
	}
	if err := s.SaveThumbnail(ctx, "missing", []byte{1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("thumbnail for missing design: err = %v", err)
	}

	if err := s.DeleteDesign(ctx, "design_1"); err != nil {
		t.Fatalf("DeleteDesign: %v", err)
	}
	if _, err := s.GetDesign(ctx, "design_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v", err)
	}
	if err := s.DeleteDesign(ctx, "design_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost/db": "postgres",
		"postgresql://localhost/db":   "postgres",
		"sqlite:./data/canvas.db":     "sqlite",
		"file:canvas.db":              "sqlite",
		"mysql://localhost":           "",
	}
	for url, want := range tests {
		if got := Scheme(url); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", url, got, want)
		}
	}
}
