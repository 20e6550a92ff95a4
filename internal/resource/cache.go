package resource

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Key identifies a resource reference in the cache.
type Key [blake2b.Size256]byte

// KeyOf hashes ref. Data URIs can be megabytes long, so the map never holds
// references themselves.
func KeyOf(ref string) Key {
	return blake2b.Sum256([]byte(ref))
}

// entry is a load that may still be in flight. done is closed once data and
// err are final. The decoded image is produced on first use.
type entry struct {
	done chan struct{}
	data []byte
	err  error

	decodeOnce sync.Once
	img        image.Image
	decodeErr  error
}

func (e *entry) image() (image.Image, error) {
	e.decodeOnce.Do(func() {
		e.img, _, e.decodeErr = DecodeImage(e.data)
	})
	return e.img, e.decodeErr
}

// Cache memoizes resource loads. The first request for a reference starts the
// load; later requests wait on the same future. A load is not tied to the
// context of whoever started it, so a caller giving up never cancels it for
// the others. Failed loads are forgotten and retried on the next request.
type Cache struct {
	fetcher Fetcher
	log     *slog.Logger

	mu      sync.Mutex
	entries map[Key]*entry
}

type CacheOption func(*Cache)

// WithLogger sets the logger used for failed loads.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// NewCache returns an empty cache that loads through f.
func NewCache(f Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: f,
		log:     slog.Default(),
		entries: make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bytes returns the raw data behind ref, waiting for an in-flight load.
func (c *Cache) Bytes(ctx context.Context, ref string) ([]byte, error) {
	e, err := c.wait(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

// Image returns ref decoded as an image. Decoding happens once per entry.
func (c *Cache) Image(ctx context.Context, ref string) (image.Image, error) {
	e, err := c.wait(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.image()
}

// Forget drops ref so the next request loads it again.
func (c *Cache) Forget(ref string) {
	c.mu.Lock()
	delete(c.entries, KeyOf(ref))
	c.mu.Unlock()
}

// Len returns the number of cached or in-flight references.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) wait(ctx context.Context, ref string) (*entry, error) {
	e := c.start(ctx, ref)
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

func (c *Cache) start(ctx context.Context, ref string) *entry {
	key := KeyOf(ref)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e
	}
	e := &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	go c.load(context.WithoutCancel(ctx), key, ref, e)
	return e
}

func (c *Cache) load(ctx context.Context, key Key, ref string, e *entry) {
	defer close(e.done)

	e.data, e.err = c.fetcher.Fetch(ctx, ref)
	if e.err == nil {
		return
	}
	c.log.Warn("resource load failed", "ref", truncate(ref), "error", e.err)

	c.mu.Lock()
	if c.entries[key] == e {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}
