package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("design not found")
	ErrUnsupportedDB = errors.New("unsupported database url")
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Design is a saved scene snapshot. Scene is omitted from listings.
type Design struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Version   int             `json:"version"`
	Scene     json.RawMessage `json:"scene,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store persists designs and their thumbnails.
type Store interface {
	// SaveDesign inserts d or replaces the design with the same id, bumping
	// its version. Version and timestamps are filled in on return.
	SaveDesign(ctx context.Context, d *Design) error
	GetDesign(ctx context.Context, id string) (*Design, error)
	ListDesigns(ctx context.Context) ([]Design, error)
	DeleteDesign(ctx context.Context, id string) error
	SaveThumbnail(ctx context.Context, id string, jpeg []byte) error
	GetThumbnail(ctx context.Context, id string) ([]byte, error)
	Close() error
}

// Open connects to the database named by url and applies the schema.
// postgres:// and postgresql:// URLs use Postgres; sqlite: and file: URLs
// open an embedded SQLite database at the given path.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "file:"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDB, url)
	}
}

// Scheme names the backend url selects, without exposing credentials.
func Scheme(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(url, "sqlite:"), strings.HasPrefix(url, "file:"):
		return "sqlite"
	default:
		return ""
	}
}

func schema(name string) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	return string(data), nil
}
