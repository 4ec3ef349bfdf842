package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recital/internal/catalog"
	"recital/internal/config"
	"recital/internal/ingest"
	"recital/internal/logging"
	"recital/internal/store"
)

// Daemon coordinates the recording store, catalog, and ingest API, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	catalog *catalog.Catalog
	server  *ingest.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	StorageDir      string
	CatalogPath     string
	LockFilePath    string
	APIAddr         string
	StoredArtifacts int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, cat *catalog.Catalog, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || cat == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, catalog, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "recitald.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		catalog:  cat,
		server:   ingest.NewServer(cfg, st, cat, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, reconciles the catalog against the store,
// and brings up the ingest API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another recital daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.reconcileCatalog(runCtx); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("reconcile catalog: %w", err)
	}
	if err := d.server.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("recital daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()),
	)
	return nil
}

// Stop shuts down the ingest API and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("recital daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// APIAddr returns the bound ingest listener address, or empty before Start.
func (d *Daemon) APIAddr() string {
	return d.server.Addr()
}

// Status reports runtime information for status surfaces.
func (d *Daemon) Status() Status {
	return Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		StorageDir:      d.store.Root(),
		CatalogPath:     d.catalog.Path(),
		LockFilePath:    d.lockPath,
		APIAddr:         d.server.Addr(),
		StoredArtifacts: len(d.store.List()),
	}
}

// reconcileCatalog rebuilds the catalog from the files actually on disk.
// Artifacts written or removed while the daemon was down are picked up here.
func (d *Daemon) reconcileCatalog(ctx context.Context) error {
	entries := d.store.List()
	records := make([]catalog.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, catalog.Record{
			RecordingID: entry.RecordingID,
			Kind:        entry.Kind,
			Filename:    filepath.Base(entry.Path),
			Size:        entry.Size,
			UploadedAt:  entry.ModTime.UTC(),
		})
	}

	reconcileCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := d.catalog.Replace(reconcileCtx, records); err != nil {
		return err
	}
	d.logger.Info("catalog reconciled", logging.Int("artifacts", len(records)))
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
