package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"recital/internal/logging"
	"recital/internal/media"
)

// Store persists recording media on the filesystem under a single root
// directory. Every artifact is addressed by (recording ID, media kind) and
// stored as {id}_{kind}.{ext}; the extension is whatever container the
// recording client produced.
//
// Writes to the same key are serialized through a per-key lock, and lookups go
// through an in-memory index rebuilt from a directory scan at open, so steady
// state reads never hit the directory listing.
type Store struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	index map[key]string // filename within root

	lockMu   sync.Mutex
	keyLocks map[key]*sync.Mutex
}

type key struct {
	recordingID int64
	kind        media.Kind
}

// Entry describes one stored artifact.
type Entry struct {
	RecordingID int64
	Kind        media.Kind
	Path        string
	Size        int64
	ModTime     time.Time
}

// Open ensures the storage root exists and builds the lookup index from the
// files already present.
func Open(root string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: root directory must be set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	s := &Store{
		root:     root,
		logger:   logging.NewComponentLogger(logger, "store"),
		index:    make(map[key]string),
		keyLocks: make(map[key]*sync.Mutex),
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes data for the given key and returns the stored path. An existing
// artifact for the same key is superseded; at most one physical file exists
// per key once Save returns. The write lands in a temp file first and is
// renamed into place so an aborted upload never leaves a partial artifact
// under the final name.
func (s *Store) Save(recordingID int64, kind media.Kind, data []byte, extension string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("store: invalid media kind %q", kind)
	}
	ext := media.NormalizeExtension(extension)
	if ext == "" {
		return "", errors.New("store: file extension must be set")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create storage root %q: %w", s.root, err)
	}

	k := key{recordingID: recordingID, kind: kind}
	lock := s.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	filename := fmt.Sprintf("%d_%s.%s", recordingID, kind, ext)
	finalPath := filepath.Join(s.root, filename)

	tmp, err := os.CreateTemp(s.root, "."+filename+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write recording data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("commit recording file: %w", err)
	}

	s.mu.Lock()
	previous, had := s.index[k]
	s.index[k] = filename
	s.mu.Unlock()

	// Last write wins: a re-upload with a different container drops the
	// superseded file so one artifact exists per key.
	if had && previous != filename {
		if err := os.Remove(filepath.Join(s.root, previous)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove superseded recording file failed",
				logging.Error(err),
				logging.String("file", previous),
			)
		}
	}

	return finalPath, nil
}

// Load reads the stored bytes for the given key. A missing artifact, or an
// unreadable storage root, reports absent rather than an error; not-yet-
// uploaded and already-purged are expected steady-state conditions.
func (s *Store) Load(recordingID int64, kind media.Kind) ([]byte, bool) {
	path, ok := s.Locate(recordingID, kind)
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("read recording file failed",
			logging.Error(err),
			logging.Int64(logging.FieldRecordingID, recordingID),
			logging.String(logging.FieldMediaKind, kind.String()),
		)
		return nil, false
	}
	return data, true
}

// Locate resolves the stored path for the given key without reading content,
// for streaming responses. Reports absent when no artifact exists.
func (s *Store) Locate(recordingID int64, kind media.Kind) (string, bool) {
	k := key{recordingID: recordingID, kind: kind}
	s.mu.RLock()
	filename, ok := s.index[k]
	s.mu.RUnlock()
	if ok {
		path := filepath.Join(s.root, filename)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		// Index is stale; fall through to a directory scan.
	}

	filename, found := s.scanFor(k)
	if !found {
		return "", false
	}
	s.mu.Lock()
	s.index[k] = filename
	s.mu.Unlock()
	return filepath.Join(s.root, filename), true
}

// Purge deletes all artifacts for a recording, or only the given kinds when
// any are provided. Each deletion is attempted independently and failures are
// logged, not propagated; a missing storage root means nothing to delete.
func (s *Store) Purge(recordingID int64, kinds ...media.Kind) {
	targets := kinds
	if len(targets) == 0 {
		targets = media.AllKinds()
	}
	for _, kind := range targets {
		k := key{recordingID: recordingID, kind: kind}
		lock := s.lockFor(k)
		lock.Lock()
		s.mu.Lock()
		filename, ok := s.index[k]
		delete(s.index, k)
		s.mu.Unlock()
		if !ok {
			if filename, ok = s.scanFor(k); !ok {
				lock.Unlock()
				continue
			}
		}
		if err := os.Remove(filepath.Join(s.root, filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("delete recording file failed",
				logging.Error(err),
				logging.String("file", filename),
			)
		}
		lock.Unlock()
	}
}

// List enumerates stored artifacts ordered by recording ID then kind.
func (s *Store) List() []Entry {
	s.mu.RLock()
	keys := make([]key, 0, len(s.index))
	names := make(map[key]string, len(s.index))
	for k, name := range s.index {
		keys = append(keys, k)
		names[k] = name
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].recordingID != keys[j].recordingID {
			return keys[i].recordingID < keys[j].recordingID
		}
		return keys[i].kind < keys[j].kind
	})

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		path := filepath.Join(s.root, names[k])
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			RecordingID: k.recordingID,
			Kind:        k.kind,
			Path:        path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		})
	}
	return entries
}

// ContentTypeFor resolves the MIME type for a stored path by extension.
func (s *Store) ContentTypeFor(path string) string {
	return media.ContentTypeForPath(path)
}

func (s *Store) lockFor(k key) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.keyLocks[k]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[k] = lock
	}
	return lock
}

func (s *Store) rebuildIndex() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scan storage root %q: %w", s.root, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if k, ok := parseFilename(entry.Name()); ok {
			s.index[k] = entry.Name()
		}
	}
	return nil
}

func (s *Store) scanFor(k key) (string, bool) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", false
	}
	prefix := fmt.Sprintf("%d_%s", k.recordingID, k.kind)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix+".") || name == prefix {
			return name, true
		}
	}
	return "", false
}

// parseFilename splits {recordingID}_{kind}.{ext} into its key. Files that do
// not match the layout are ignored.
func parseFilename(name string) (key, bool) {
	if strings.HasPrefix(name, ".") {
		return key{}, false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idPart, kindPart, found := strings.Cut(base, "_")
	if !found {
		return key{}, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return key{}, false
	}
	kind, err := media.ParseKind(kindPart)
	if err != nil {
		return key{}, false
	}
	return key{recordingID: id, kind: kind}, true
}
