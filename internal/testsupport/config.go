package testsupport

import (
	"path/filepath"
	"testing"

	"recital/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageDir = filepath.Join(base, "recordings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Upload.IngestURL = "http://127.0.0.1:0"
	cfg.Upload.CompletedLinger = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithIngestURL overrides the ingest URL on the test config.
func WithIngestURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Upload.IngestURL = url
	}
}

// WithAttemptTimeout overrides the upload attempt timeout in seconds.
func WithAttemptTimeout(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Upload.AttemptTimeout = seconds
	}
}
