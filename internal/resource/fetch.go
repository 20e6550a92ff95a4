package resource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidReference = errors.New("invalid resource reference")
	ErrNotFound         = errors.New("resource not found")
	ErrTooLarge         = errors.New("resource too large")
)

// DefaultMaxBytes bounds a single fetched resource.
const DefaultMaxBytes = 32 << 20

// Fetcher returns the raw bytes behind a resource reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

// DataURIFetcher decodes RFC 2397 data: references.
type DataURIFetcher struct{}

func (DataURIFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URI", ErrInvalidReference)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URI has no payload", ErrInvalidReference)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return []byte(text), nil
}

// HTTPFetcher loads http and https references.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher whose client times out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", ref, resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, ref)
	}
	return data, nil
}

// Router picks a fetcher by reference scheme. References that are neither
// data: nor http(s) URLs go to Local, typically the asset directory.
type Router struct {
	Data  Fetcher
	HTTP  Fetcher
	Local Fetcher
}

func (r Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	var f Fetcher
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	case strings.HasPrefix(ref, "data:"):
		f = r.Data
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		f = r.HTTP
	default:
		f = r.Local
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no fetcher for %q", ErrInvalidReference, truncate(ref))
	}
	return f.Fetch(ctx, ref)
}

// truncate keeps data URIs out of log lines and error messages.
func truncate(ref string) string {
	const n = 48
	if len(ref) <= n {
		return ref
	}
	return ref[:n] + "…"
}
