package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port             int           `envconfig:"PORT" default:"8080"`
	DatabaseURL      string        `envconfig:"DATABASE_URL" default:"sqlite:./data/canvas.db"`
	CapabilitySecret string        `envconfig:"CAPABILITY_SECRET" default:"dev-secret-change-in-production"`
	AssetDir         string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	FontDir          string        `envconfig:"FONT_DIR"`
	AllowedOrigins   string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	JPEGQuality      int           `envconfig:"JPEG_QUALITY" default:"90"`
	ThumbnailSize    int           `envconfig:"THUMBNAIL_SIZE" default:"50"`
	ThumbnailQuality int           `envconfig:"THUMBNAIL_QUALITY" default:"40"`
	FetchTimeout     time.Duration `envconfig:"RESOURCE_FETCH_TIMEOUT" default:"15s"`
	PrefetchWorkers  int           `envconfig:"PREFETCH_WORKERS" default:"8"`
	HistoryLimit     int           `envconfig:"HISTORY_LIMIT" default:"30"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
