package render

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/resource"
)

// fontCache serves gomono under fonts/mono.ttf and counts fetches.
func fontCache(fetches *atomic.Int32) *resource.Cache {
	return resource.NewCache(resource.FetcherFunc(func(_ context.Context, ref string) ([]byte, error) {
		fetches.Add(1)
		switch ref {
		case "fonts/mono.ttf":
			return gomono.TTF, nil
		case "fonts/broken.ttf":
			return []byte("not a font"), nil
		}
		return nil, resource.ErrNotFound
	}))
}

func TestFontBookMeasure(t *testing.T) {
	b := NewFontBook()
	el := &document.TextElement{Font: "Go", Size: 20, Weight: "normal"}

	if got := b.MeasureLine("", el); got != 0 {
		t.Errorf("empty line width = %v", got)
	}
	short, long := b.MeasureLine("ab", el), b.MeasureLine("abab", el)
	if short <= 0 || long <= short {
		t.Errorf("widths ab=%v abab=%v", short, long)
	}

	mono := &document.TextElement{Font: "go mono", Size: 20}
	if a, m := b.MeasureLine("iiii", mono), b.MeasureLine("MMMM", mono); a != m {
		t.Errorf("monospace widths differ: %v vs %v", a, m)
	}

	unknown := &document.TextElement{Font: "Nope", Size: 20, Weight: "normal"}
	if got := b.MeasureLine("abab", unknown); got != long {
		t.Errorf("unknown family width = %v, want fallback %v", got, long)
	}
}

func TestFontBookAsMeasurer(t *testing.T) {
	b := NewFontBook()
	e := engine.NewEngine(engine.WithMeasurer(b))
	id, err := e.AddText("hello")
	if err != nil {
		t.Fatalf("AddText: %v", err)
	}
	el := e.Scene().Find(id).(*document.TextElement)
	r, _ := engine.BoundingRect(el, b)
	if want := b.MeasureLine("hello", el); r.Width != want {
		t.Errorf("box width = %v, want %v", r.Width, want)
	}
}

func TestFontBookLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Brand-Bold.ttf", "Plain.ttf", "Odd-Heavy.ttf"} {
		if err := os.WriteFile(filepath.Join(dir, name), goregular.TTF, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewFontBook()
	n, err := b.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d fonts, want 2", n)
	}
	for _, name := range []string{"brand", "Plain"} {
		if !b.Has(name) {
			t.Errorf("family %q not registered", name)
		}
	}
	if b.Has("Odd") {
		t.Error("file with unknown variant was registered")
	}

	// Only the bold variant exists, so regular text falls back to it.
	el := &document.TextElement{Font: "Brand", Size: 12}
	if b.Face(el) == nil {
		t.Error("no face for a family with only a bold variant")
	}
}

func TestFontBookRegisterRef(t *testing.T) {
	var fetches atomic.Int32
	cache := fontCache(&fetches)
	b := NewFontBook()
	ctx := context.Background()

	el := &document.TextElement{Font: "Brand", FontSrc: "fonts/mono.ttf", Size: 20}
	mono := &document.TextElement{Font: "Go Mono", Size: 20}
	fallback := b.MeasureLine("iiii", el)

	for range 2 {
		if err := b.RegisterRef(ctx, cache, el.FontSrc); err != nil {
			t.Fatalf("RegisterRef: %v", err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	got := b.MeasureLine("iiii", el)
	if want := b.MeasureLine("iiii", mono); got != want {
		t.Errorf("width with font source = %v, want monospace %v", got, want)
	}
	if got == fallback {
		t.Error("font source did not change the measurement")
	}

	bold := &document.TextElement{Font: "Brand", FontSrc: "fonts/mono.ttf", Size: 20, Weight: "bold", Style: document.StyleItalic}
	if b.Face(bold) == nil {
		t.Error("no face for a bold italic element using a font source")
	}
	if b.Has("Brand") || b.Has("fonts/mono.ttf") {
		t.Error("font source registered as a named family")
	}
	if plain := (&document.TextElement{Font: "Brand", Size: 20}); b.MeasureLine("iiii", plain) != fallback {
		t.Error("text without the font source picked it up")
	}

	for _, ref := range []string{"fonts/missing.ttf", "fonts/broken.ttf"} {
		if err := b.RegisterRef(ctx, cache, ref); err == nil {
			t.Errorf("%s: registered without error", ref)
		}
	}
}

func TestFontBookConcurrentUse(t *testing.T) {
	var fetches atomic.Int32
	cache := fontCache(&fetches)
	b := NewFontBook()
	el := &document.TextElement{Font: "Late", FontSrc: "fonts/mono.ttf", Size: 16, Weight: "bold"}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				b.MeasureLine("measure me", el)
			}
			if i%2 == 0 {
				if err := b.Register("Late", Variant(i/2), gomono.TTF); err != nil {
					t.Errorf("Register: %v", err)
				}
			} else if err := b.RegisterRef(context.Background(), cache, el.FontSrc); err != nil {
				t.Errorf("RegisterRef: %v", err)
			}
		}()
	}
	wg.Wait()

	if !b.Has("Late") {
		t.Error("family registered under contention is missing")
	}
}

func TestAffordancesFrom(t *testing.T) {
	e := engine.NewEngine()
	shapeID, _ := e.AddShape(document.ShapeRectangle)
	a := AffordancesFrom(e)
	if len(a.Selection) != 1 || a.Active == nil {
		t.Fatalf("shape selection: %+v", a)
	}
	if a.Active.Rect != (engine.Rect{X: 650, Y: 650, Width: 200, Height: 200}) {
		t.Errorf("active rect = %+v", a.Active.Rect)
	}
	if a.EdgeGlow {
		t.Error("edge glow while idle")
	}

	textID, _ := e.AddText("hi")
	a = AffordancesFrom(e)
	if len(a.Selection) != 1 || a.Active != nil {
		t.Errorf("text selection should have no handles: %+v", a)
	}

	e.SetSelection([]string{shapeID, textID})
	if a = AffordancesFrom(e); len(a.Selection) != 2 || a.Active == nil {
		t.Errorf("mixed selection: %+v", a)
	}
}
