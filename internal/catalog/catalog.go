package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recital/internal/config"
	"recital/internal/media"
)

// Catalog is the durable metadata index of stored recording artifacts,
// backed by SQLite. It answers listing queries without touching the
// filesystem and is reconciled against the store at daemon startup.
type Catalog struct {
	db   *sql.DB
	path string
}

// Record describes one indexed artifact.
type Record struct {
	RecordingID int64
	Kind        media.Kind
	Filename    string
	Size        int64
	UploadedAt  time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (c *Catalog) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the catalog database inside the config's
// storage directory.
func Open(cfg *config.Config) (*Catalog, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StorageDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cat := &Catalog{db: db, path: dbPath}
	if err := cat.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cat, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the on-disk location of the catalog database.
func (c *Catalog) Path() string {
	return c.path
}

// Upsert records an artifact, replacing any previous row for its key.
func (c *Catalog) Upsert(ctx context.Context, rec Record) error {
	if !rec.Kind.Valid() {
		return fmt.Errorf("catalog: invalid media kind %q", rec.Kind)
	}
	uploadedAt := rec.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	if err := c.execWithRetry(
		ctx,
		`INSERT INTO recordings (recording_id, media_kind, filename, size_bytes, uploaded_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(recording_id, media_kind) DO UPDATE SET
             filename = excluded.filename,
             size_bytes = excluded.size_bytes,
             uploaded_at = excluded.uploaded_at`,
		rec.RecordingID,
		string(rec.Kind),
		rec.Filename,
		rec.Size,
		uploadedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert recording %d/%s: %w", rec.RecordingID, rec.Kind, err)
	}
	return nil
}

// Get returns the record for a key, or nil when none is indexed.
func (c *Catalog) Get(ctx context.Context, recordingID int64, kind media.Kind) (*Record, error) {
	ctx = ensureContext(ctx)
	row := c.db.QueryRowContext(
		ctx,
		`SELECT recording_id, media_kind, filename, size_bytes, uploaded_at
         FROM recordings WHERE recording_id = ? AND media_kind = ?`,
		recordingID,
		string(kind),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording %d/%s: %w", recordingID, kind, err)
	}
	return rec, nil
}

// List returns all indexed artifacts ordered by recording ID then kind.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT recording_id, media_kind, filename, size_bytes, uploaded_at
         FROM recordings ORDER BY recording_id, media_kind`,
	)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return records, nil
}

// Delete removes index rows for a recording, or only the given kinds when any
// are provided. Deleting rows that do not exist is not an error.
func (c *Catalog) Delete(ctx context.Context, recordingID int64, kinds ...media.Kind) error {
	if len(kinds) == 0 {
		if err := c.execWithRetry(
			ctx,
			`DELETE FROM recordings WHERE recording_id = ?`,
			recordingID,
		); err != nil {
			return fmt.Errorf("delete recording %d: %w", recordingID, err)
		}
		return nil
	}
	for _, kind := range kinds {
		if err := c.execWithRetry(
			ctx,
			`DELETE FROM recordings WHERE recording_id = ? AND media_kind = ?`,
			recordingID,
			string(kind),
		); err != nil {
			return fmt.Errorf("delete recording %d/%s: %w", recordingID, kind, err)
		}
	}
	return nil
}

// Replace rebuilds the index from the provided records inside one
// transaction. Used at daemon startup to reconcile against the store.
func (c *Catalog) Replace(ctx context.Context, records []Record) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reconcile: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, `DELETE FROM recordings`); err != nil {
			return fmt.Errorf("clear recordings: %w", err)
		}
		for _, rec := range records {
			uploadedAt := rec.UploadedAt
			if uploadedAt.IsZero() {
				uploadedAt = time.Now().UTC()
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO recordings (recording_id, media_kind, filename, size_bytes, uploaded_at)
                 VALUES (?, ?, ?, ?, ?)`,
				rec.RecordingID,
				string(rec.Kind),
				rec.Filename,
				rec.Size,
				uploadedAt.Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert recording %d/%s: %w", rec.RecordingID, rec.Kind, err)
			}
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var kind string
	var uploadedAt string
	if err := row.Scan(&rec.RecordingID, &kind, &rec.Filename, &rec.Size, &uploadedAt); err != nil {
		return nil, err
	}
	rec.Kind = media.Kind(kind)
	if parsed, err := time.Parse(time.RFC3339Nano, uploadedAt); err == nil {
		rec.UploadedAt = parsed
	}
	return &rec, nil
}
