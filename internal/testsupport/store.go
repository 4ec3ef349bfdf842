package testsupport

import (
	"testing"

	"recital/internal/catalog"
	"recital/internal/config"
	"recital/internal/logging"
	"recital/internal/store"
)

// MustOpenStore opens a recording store for tests.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg.Paths.StorageDir, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

// MustOpenCatalog opens a catalog for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		cat.Close()
	})
	return cat
}
