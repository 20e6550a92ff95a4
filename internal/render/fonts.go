package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/resource"
)

// DefaultFamily is used for text whose font is not registered.
const DefaultFamily = "Go"

var ErrUnknownVariant = errors.New("unknown font variant")

type Variant int

const (
	Regular Variant = iota
	Bold
	Italic
	BoldItalic
)

var variantNames = map[string]Variant{
	"regular":    Regular,
	"bold":       Bold,
	"italic":     Italic,
	"bolditalic": BoldItalic,
}

// ParseVariant maps a file-name suffix such as "BoldItalic" to a Variant.
func ParseVariant(s string) (Variant, error) {
	v, ok := variantNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	return v, nil
}

func variantOf(el *document.TextElement) Variant {
	v := Regular
	if el.Weight.Bold() {
		v = Bold
	}
	if el.Style == document.StyleItalic {
		v |= Italic
	}
	return v
}

type family struct {
	name    string
	sources [4]*text.FontSource
}

// pick returns the closest registered variant, degrading to regular.
func (f *family) pick(v Variant) *text.FontSource {
	for _, c := range []Variant{v, v &^ Italic, v &^ Bold, Regular} {
		if s := f.sources[c]; s != nil {
			return s
		}
	}
	for _, s := range f.sources {
		if s != nil {
			return s
		}
	}
	return nil
}

// FontBook maps font families to parsed font sources. It is safe for
// concurrent use and also serves as the engine's text measurer.
//
// Fonts loaded by reference are kept apart from the named families: the book
// is shared by every scene, and one scene's font file must not replace a
// family another scene names.
type FontBook struct {
	mu       sync.RWMutex
	families map[string]*family
	refs     map[resource.Key]*family
}

// NewFontBook returns a book holding the Go fonts as "Go" and "Go Mono".
func NewFontBook() *FontBook {
	b := &FontBook{
		families: make(map[string]*family),
		refs:     make(map[resource.Key]*family),
	}
	builtin := []struct {
		family  string
		variant Variant
		data    []byte
	}{
		{"Go", Regular, goregular.TTF},
		{"Go", Bold, gobold.TTF},
		{"Go", Italic, goitalic.TTF},
		{"Go", BoldItalic, gobolditalic.TTF},
		{"Go Mono", Regular, gomono.TTF},
		{"Go Mono", Bold, gomonobold.TTF},
		{"Go Mono", Italic, gomonoitalic.TTF},
		{"Go Mono", BoldItalic, gomonobolditalic.TTF},
	}
	for _, f := range builtin {
		if err := b.Register(f.family, f.variant, f.data); err != nil {
			slog.Error("register builtin font", "family", f.family, "error", err)
		}
	}
	return b
}

// Register parses font data and adds it as one variant of family.
func (b *FontBook) Register(name string, v Variant, data []byte) error {
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", name, err)
	}
	key := strings.ToLower(name)

	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.families[key]
	if !ok {
		f = &family{name: name}
		b.families[key] = f
	}
	f.sources[v] = src
	return nil
}

// RegisterRef loads the font file behind ref through the resource cache.
// Text whose fontSrc is ref uses it for every weight and style. Each
// reference is parsed once.
func (b *FontBook) RegisterRef(ctx context.Context, c *resource.Cache, ref string) error {
	if b.hasRef(ref) {
		return nil
	}
	data, err := c.Bytes(ctx, ref)
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := resource.KeyOf(ref)
	if _, ok := b.refs[key]; !ok {
		f := &family{name: ref}
		f.sources[Regular] = src
		b.refs[key] = f
	}
	return nil
}

func (b *FontBook) hasRef(ref string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.refs[resource.KeyOf(ref)]
	return ok
}

// LoadDir registers every "<Family>-<Variant>.ttf" or ".otf" file in dir.
// Files without a variant suffix register as Regular.
func (b *FontBook) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		name, suffix, found := strings.Cut(stem, "-")
		v := Regular
		if found {
			if v, err = ParseVariant(suffix); err != nil {
				slog.Warn("skip font file", "file", e.Name(), "error", err)
				continue
			}
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, fmt.Errorf("read font %s: %w", e.Name(), err)
		}
		if err := b.Register(name, v, data); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Families lists the registered family names.
func (b *FontBook) Families() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.families))
	for _, f := range b.families {
		names = append(names, f.name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is registered.
func (b *FontBook) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.families[strings.ToLower(name)]
	return ok
}

// Face returns the face for el's font, weight, style and size. A loaded
// fontSrc wins over the family name; unknown families use DefaultFamily.
func (b *FontBook) Face(el *document.TextElement) text.Face {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f := b.lookup(el)
	if f == nil {
		return nil
	}
	src := f.pick(variantOf(el))
	if src == nil {
		return nil
	}
	return src.Face(max(el.Size, 1))
}

// lookup requires b.mu held.
func (b *FontBook) lookup(el *document.TextElement) *family {
	if el.FontSrc != "" {
		if f, ok := b.refs[resource.KeyOf(el.FontSrc)]; ok {
			return f
		}
	}
	if f, ok := b.families[strings.ToLower(el.Font)]; ok {
		return f
	}
	return b.families[strings.ToLower(DefaultFamily)]
}

// MeasureLine returns the advance width of line in el's face.
func (b *FontBook) MeasureLine(line string, el *document.TextElement) float64 {
	face := b.Face(el)
	if face == nil {
		return 0
	}
	return face.Advance(line)
}
