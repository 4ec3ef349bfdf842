package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"recital/internal/config"
	"recital/internal/logging"
)

// Recording is one row of the recordings listing as served by the ingest API.
type Recording struct {
	RecordingID int64  `json:"recording_id"`
	MediaKind   string `json:"media_kind"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	UploadedAt  string `json:"uploaded_at"`
}

// Cache is a fetch-through view of the recordings listing. The first read
// after construction or invalidation fetches from the ingest API; subsequent
// reads serve the cached rows until Invalidate marks them stale. The upload
// manager invalidates on every completed upload so listings pick up new
// artifacts without polling.
type Cache struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.Mutex
	valid   bool
	entries []Recording
}

// NewCache builds a listing cache against cfg.Upload.IngestURL.
func NewCache(cfg *config.Config, logger *slog.Logger) *Cache {
	return &Cache{
		baseURL: strings.TrimRight(cfg.Upload.IngestURL, "/"),
		client:  &http.Client{},
		logger:  logging.NewComponentLogger(logger, "listing"),
	}
}

// Invalidate marks the cached rows stale. The next Recordings call refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.entries = nil
	c.mu.Unlock()
	c.logger.Debug("recordings listing invalidated")
}

// Recordings returns the listing, fetching from the ingest API when the cache
// is stale. Callers receive a copy; mutating it does not poison the cache.
func (c *Cache) Recordings(ctx context.Context) ([]Recording, error) {
	c.mu.Lock()
	if c.valid {
		cached := append([]Recording(nil), c.entries...)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	// Concurrent stale reads collapse into one fetch.
	result, err, _ := c.group.Do("recordings", func() (any, error) {
		entries, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.valid = true
		c.entries = entries
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	entries := result.([]Recording)
	return append([]Recording(nil), entries...), nil
}

func (c *Cache) fetch(ctx context.Context) ([]Recording, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/recordings", nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recordings listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ingest returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var body struct {
		Recordings []Recording `json:"recordings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode recordings listing: %w", err)
	}
	return body.Recordings, nil
}
