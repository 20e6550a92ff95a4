package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/sync/errgroup"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/resource"
)

// DefaultPrefetchWorkers bounds concurrent resource loads per frame.
const DefaultPrefetchWorkers = 8

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Renderer paints scenes into raster frames. It is safe for concurrent use;
// the resource cache and font book are shared between frames.
type Renderer struct {
	cache   *resource.Cache
	fonts   *FontBook
	log     *slog.Logger
	workers int
}

type Option func(*Renderer)

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

func WithFonts(b *FontBook) Option {
	return func(r *Renderer) { r.fonts = b }
}

func WithPrefetchWorkers(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New returns a renderer loading images through cache. A nil cache renders
// every image-backed element as missing.
func New(cache *resource.Cache, opts ...Option) *Renderer {
	r := &Renderer{
		cache:   cache,
		log:     slog.Default(),
		workers: DefaultPrefetchWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fonts == nil {
		r.fonts = NewFontBook()
	}
	return r
}

// Fonts returns the font book, which doubles as the text measurer.
func (r *Renderer) Fonts() *FontBook { return r.fonts }

// Export paints background, overlay and elements into a canvas-sized frame.
func (r *Renderer) Export(ctx context.Context, s *document.Scene) (*image.RGBA, error) {
	if err := document.CheckCanvas(s.CanvasWidth, s.CanvasHeight); err != nil {
		return nil, err
	}
	r.prefetch(ctx, s)

	frame := image.NewRGBA(image.Rect(0, 0, s.CanvasWidth, s.CanvasHeight))
	xdraw.Draw(frame, frame.Bounds(), image.NewUniform(white), image.Point{}, xdraw.Src)

	r.paintBackground(ctx, frame, s)
	paintOverlay(frame, s)
	for _, el := range s.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.paintElement(ctx, frame, el)
	}
	return frame, nil
}

// Preview paints the export frame and then draws the editing affordances on
// a copy of it, so everything under the affordances is identical to Export.
func (r *Renderer) Preview(ctx context.Context, s *document.Scene, a Affordances) (*image.RGBA, error) {
	frame, err := r.Export(ctx, s)
	if err != nil {
		return nil, err
	}
	if a.empty() {
		return frame, nil
	}
	out := image.NewRGBA(frame.Bounds())
	copy(out.Pix, frame.Pix)
	if err := r.paintAffordances(out, s, a); err != nil {
		r.log.Warn("paint affordances", "error", err)
	}
	return out, nil
}

// prefetch starts every referenced load without waiting. Element paints wait
// on their own resource only.
func (r *Renderer) prefetch(ctx context.Context, s *document.Scene) {
	if r.cache == nil {
		return
	}
	refs := sceneRefs(s)
	if len(refs) == 0 {
		return
	}
	go func() {
		var g errgroup.Group
		g.SetLimit(r.workers)
		for _, ref := range refs {
			g.Go(func() error {
				_, err := r.cache.Bytes(context.WithoutCancel(ctx), ref)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			r.log.Debug("prefetch incomplete", "error", err)
		}
	}()
}

// sceneRefs lists the distinct resource references of s in paint order.
func sceneRefs(s *document.Scene) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	if s.Background.Type == document.BackgroundImage && s.Background.Image != nil {
		add(s.Background.Image.Src)
	}
	for _, el := range s.Elements {
		switch e := el.(type) {
		case *document.ImageElement:
			add(e.Src)
		case *document.LogoElement:
			add(e.Src)
		case *document.TextElement:
			add(e.FontSrc)
		}
	}
	return refs
}

func (r *Renderer) loadImage(ctx context.Context, ref string) (image.Image, error) {
	if r.cache == nil {
		return nil, fmt.Errorf("%w: no resource cache", resource.ErrNotFound)
	}
	return r.cache.Image(ctx, ref)
}

func (r *Renderer) loadFont(ctx context.Context, ref string) error {
	if r.cache == nil {
		return fmt.Errorf("%w: no resource cache", resource.ErrNotFound)
	}
	return r.fonts.RegisterRef(ctx, r.cache, ref)
}

func (r *Renderer) paintBackground(ctx context.Context, frame *image.RGBA, s *document.Scene) {
	bg := s.Background
	canvas := engine.Rect{Width: float64(s.CanvasWidth), Height: float64(s.CanvasHeight)}

	switch bg.Type {
	case document.BackgroundColor, document.BackgroundGradient:
		ct := document.ColorSolid
		if bg.Type == document.BackgroundGradient {
			ct = document.ColorGradient
		}
		f := newFill(ct, bg.Colors, bg.Angle, canvas)
		xdraw.Draw(frame, frame.Bounds(), f.source(image.Point{}), image.Point{}, xdraw.Over)

	case document.BackgroundImage:
		photo := bg.Image
		if photo == nil || photo.Src == "" {
			return
		}
		img, err := r.loadImage(ctx, photo.Src)
		if err != nil {
			r.log.Warn("skip background image", "error", err)
			return
		}
		b := img.Bounds()
		scale := photo.Scale
		if scale <= 0 {
			scale = 1
		}
		box := engine.Rect{
			X:      photo.X,
			Y:      photo.Y,
			Width:  float64(b.Dx()) * scale,
			Height: float64(b.Dy()) * scale,
		}
		src := document.Rect{Width: float64(b.Dx()), Height: float64(b.Dy())}
		border := solidFill(colorOr(photo.BorderColor, black))
		if err := drawBitmap(frame, image.Point{}, img, src, box, photo.BorderRadius, photo.BorderWidth, border); err != nil {
			r.log.Warn("paint background image", "error", err)
		}
	}
}

func paintOverlay(frame *image.RGBA, s *document.Scene) {
	o := s.Overlay
	if o.Type == document.OverlayNone || o.Type == "" || len(o.Colors) == 0 {
		return
	}
	colors := make([]string, len(o.Colors))
	for i, c := range o.Colors {
		opacity := 1.0
		if i < len(o.Opacities) {
			opacity = o.Opacities[i]
		}
		colors[i] = withAlphaHex(c, opacity)
	}
	ct := document.ColorSolid
	if o.Type == document.OverlayGradient {
		ct = document.ColorGradient
	}
	canvas := engine.Rect{Width: float64(s.CanvasWidth), Height: float64(s.CanvasHeight)}
	f := newFill(ct, colors, o.Angle, canvas)
	xdraw.Draw(frame, frame.Bounds(), f.source(image.Point{}), image.Point{}, xdraw.Over)
}

// layer is an element painted in isolation before compositing. Pixel (0,0)
// of img sits at origin in unrotated canvas coordinates.
type layer struct {
	img    *image.RGBA
	origin image.Point
}

// newLayer sizes a layer for box grown by pad, limited to the clip region.
// It reports false when nothing of the element can reach the clip.
func newLayer(box engine.Rect, pad int, clip engine.Rect) (layer, bool) {
	x0 := max(int(math.Floor(box.X))-pad, int(math.Floor(clip.X)))
	y0 := max(int(math.Floor(box.Y))-pad, int(math.Floor(clip.Y)))
	x1 := min(int(math.Ceil(box.Right()))+pad, int(math.Ceil(clip.Right())))
	y1 := min(int(math.Ceil(box.Bottom()))+pad, int(math.Ceil(clip.Bottom())))
	if x1 <= x0 || y1 <= y0 {
		return layer{}, false
	}
	return layer{
		img:    image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0)),
		origin: image.Pt(x0, y0),
	}, true
}

// visibleRegion is the part of the unrotated element plane that lands on
// frame once rotated about pivot, grown by blur so edge pixels still blur
// in from outside the frame.
func visibleRegion(frame image.Rectangle, degrees float64, pivot engine.Point, blur int) engine.Rect {
	canvas := engine.Rect{
		X:      float64(frame.Min.X),
		Y:      float64(frame.Min.Y),
		Width:  float64(frame.Dx()),
		Height: float64(frame.Dy()),
	}
	if math.Mod(degrees, 360) != 0 {
		canvas = engine.RotateAbout(-degrees, pivot.X, pivot.Y).TransformRect(canvas)
	}
	return canvas.Expand(float64(blur))
}

// local converts a canvas rect into layer pixel coordinates.
func (l layer) local(r engine.Rect) engine.Rect {
	return r.Offset(-float64(l.origin.X), -float64(l.origin.Y))
}

// paintElement paints one element. Any failure, including a panic, skips the
// element and leaves the frame as it was.
func (r *Renderer) paintElement(ctx context.Context, frame *image.RGBA, el document.Element) {
	base := el.Common()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("paint element panicked", "id", base.ID, "panic", p)
		}
	}()

	if t, ok := el.(*document.TextElement); ok && t.FontSrc != "" {
		if err := r.loadFont(ctx, t.FontSrc); err != nil {
			r.log.Warn("skip element", "id", base.ID, "error", err)
			return
		}
	}

	box, ok := engine.BoundingRect(el, r.fonts)
	if !ok {
		r.log.Warn("skip element", "id", base.ID, "error", document.ErrUnknownElement)
		return
	}
	if base.Opacity <= 0 {
		return
	}

	blur := blurPad(base.BlurRadius)
	pivot := engine.Pivot(el, box)
	l, ok := newLayer(box, spill(el)+blur, visibleRegion(frame.Bounds(), base.Rotation, pivot, blur))
	if !ok {
		return
	}
	var err error
	switch e := el.(type) {
	case *document.ImageElement:
		err = r.paintBitmap(ctx, l, e.Src, e.Source(), e.Bitmap, box)
	case *document.LogoElement:
		src := document.Rect{Width: e.NaturalWidth, Height: e.NaturalHeight}
		err = r.paintBitmap(ctx, l, e.Src, src, e.Bitmap, box)
	case *document.TextElement:
		err = r.paintText(l, e, box)
	case *document.ShapeElement:
		err = paintShape(l, e, box)
	}
	if err != nil {
		r.log.Warn("skip element", "id", base.ID, "error", err)
		return
	}

	applyOpacity(l.img, base.Opacity)
	gaussianBlur(l.img, base.BlurRadius)
	composite(frame, l, base.Rotation, pivot)
}

// spill is how far an element's paint can reach outside its box.
func spill(el document.Element) int {
	switch e := el.(type) {
	case *document.ImageElement:
		return int(math.Ceil(e.BorderWidth/2)) + 2
	case *document.LogoElement:
		return int(math.Ceil(e.BorderWidth/2)) + 2
	case *document.TextElement:
		return int(math.Ceil(e.Size)) + 2
	case *document.ShapeElement:
		if e.FillType == document.FillOutline {
			return int(math.Ceil(e.StrokeWidth/2)) + 2
		}
	}
	return 2
}

// composite draws the layer onto frame, rotated by degrees about pivot.
func composite(frame *image.RGBA, l layer, degrees float64, pivot engine.Point) {
	if math.Mod(degrees, 360) == 0 {
		dst := l.img.Bounds().Add(l.origin)
		xdraw.Draw(frame, dst, l.img, image.Point{}, xdraw.Over)
		return
	}
	m := engine.RotateAbout(degrees, pivot.X, pivot.Y).
		Multiply(engine.Translate(float64(l.origin.X), float64(l.origin.Y)))
	aff := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	xdraw.BiLinear.Transform(frame, aff, l.img, l.img.Bounds(), xdraw.Over, nil)
}
