package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"recital/internal/config"
	"recital/internal/logging"
	"recital/internal/media"
	"recital/internal/notifications"
)

// Manager is the process-wide registry of upload attempts. It admits blobs as
// pending, promotes the oldest pending item whenever the upload slot is free,
// and converts every transport outcome into a status transition. Exactly one
// upload is in flight at any instant: the scheduler never promotes a second
// item while one is uploading.
//
// The manager owns no ambient state; construct it once at application start,
// Start it, and pass the handle to any consumer.
type Manager struct {
	transport       Transport
	notifier        notifications.Service
	invalidator     ListingInvalidator
	logger          *slog.Logger
	attemptTimeout  time.Duration
	completedLinger time.Duration

	mu      sync.Mutex
	items   map[uuid.UUID]*item
	nextSeq uint64

	wake    chan struct{}
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	notifier    notifications.Service
	invalidator ListingInvalidator
}

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(o *managerOptions) {
		o.notifier = notifier
	}
}

// WithListingInvalidator wires the cached recordings listing that must be
// marked stale when an upload completes.
func WithListingInvalidator(invalidator ListingInvalidator) ManagerOption {
	return func(o *managerOptions) {
		o.invalidator = invalidator
	}
}

// NewManager constructs an upload manager.
func NewManager(cfg *config.Config, transport Transport, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		transport:       transport,
		notifier:        notifier,
		invalidator:     options.invalidator,
		logger:          logging.NewComponentLogger(logger, "uploads"),
		attemptTimeout:  time.Duration(cfg.Upload.AttemptTimeout) * time.Second,
		completedLinger: time.Duration(cfg.Upload.CompletedLinger) * time.Second,
		items:           make(map[uuid.UUID]*item),
		wake:            make(chan struct{}, 1),
	}
}

// Start begins the scheduling loop. Items enqueued before Start wait until
// the loop runs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop terminates scheduling, aborts any in-flight upload, and waits for the
// loop and attempt goroutines to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Enqueue admits a recording blob as pending and returns its queue ID. The
// payload is copied so later caller mutations cannot corrupt the upload.
func (m *Manager) Enqueue(recordingID int64, kind media.Kind, payload []byte, filename string) (uuid.UUID, error) {
	if recordingID <= 0 {
		return uuid.Nil, fmt.Errorf("uploads: recording id must be positive, got %d", recordingID)
	}
	if !kind.Valid() {
		return uuid.Nil, fmt.Errorf("uploads: invalid media kind %q", kind)
	}
	if len(payload) == 0 {
		return uuid.Nil, errors.New("uploads: payload must not be empty")
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	now := time.Now()

	m.mu.Lock()
	m.nextSeq++
	it := &item{
		id:          uuid.New(),
		seq:         m.nextSeq,
		recordingID: recordingID,
		kind:        kind,
		filename:    filename,
		payload:     data,
		status:      StatusPending,
		enqueuedAt:  now,
		updatedAt:   now,
	}
	m.items[it.id] = it
	m.mu.Unlock()

	m.logger.Info("upload queued",
		logging.String(logging.FieldUploadID, it.id.String()),
		logging.Int64(logging.FieldRecordingID, recordingID),
		logging.String(logging.FieldMediaKind, kind.String()),
		logging.Int("bytes", len(data)),
	)
	m.notify("upload queued", func(ctx context.Context) error {
		return m.notifier.NotifyUploadQueued(ctx, recordingID, kind, filename, int64(len(data)))
	})
	m.signal()
	return it.id, nil
}

// Retry moves a failed item back to pending and clears its error. The
// scheduler picks it up again once the upload slot frees.
func (m *Manager) Retry(id uuid.UUID) error {
	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownUpload
	}
	if it.status != StatusFailed {
		status := it.status
		m.mu.Unlock()
		return fmt.Errorf("%w (status %s)", ErrNotRetryable, status)
	}
	it.status = StatusPending
	it.errMsg = ""
	it.updatedAt = time.Now()
	recordingID, kind, filename, size := it.recordingID, it.kind, it.filename, int64(len(it.payload))
	m.mu.Unlock()

	m.logger.Info("upload retry requested",
		logging.String(logging.FieldUploadID, id.String()),
		logging.Int64(logging.FieldRecordingID, recordingID),
	)
	m.notify("upload queued", func(ctx context.Context) error {
		return m.notifier.NotifyUploadQueued(ctx, recordingID, kind, filename, size)
	})
	m.signal()
	return nil
}

// Cancel removes an item from the registry regardless of its status. When the
// item is uploading, the in-flight transport call is aborted as well so no
// orphaned write lands in the store.
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownUpload
	}
	cancelAttempt := it.cancelAttempt
	recordingID, kind := it.recordingID, it.kind
	delete(m.items, id)
	m.mu.Unlock()

	if cancelAttempt != nil {
		cancelAttempt()
	}
	m.logger.Info("upload cancelled",
		logging.String(logging.FieldUploadID, id.String()),
		logging.Int64(logging.FieldRecordingID, recordingID),
	)
	m.notify("upload cancelled", func(ctx context.Context) error {
		return m.notifier.NotifyUploadCancelled(ctx, recordingID, kind)
	})
	m.signal()
	return nil
}

// Outstanding reports whether any item is pending or uploading. The hosting
// page uses this to gate navigation away while recordings would be lost.
func (m *Manager) Outstanding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.status.Active() {
			return true
		}
	}
	return false
}

// Snapshot returns display projections of all registry items in enqueue order.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.Lock()
	snapshots := make([]Snapshot, 0, len(m.items))
	seqs := make(map[uuid.UUID]uint64, len(m.items))
	for _, it := range m.items {
		snapshots = append(snapshots, it.snapshot())
		seqs[it.id] = it.seq
	}
	m.mu.Unlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return seqs[snapshots[i].ID] < seqs[snapshots[j].ID]
	})
	return snapshots
}

// Get returns the display projection for one item.
func (m *Manager) Get(id uuid.UUID) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Snapshot{}, false
	}
	return it.snapshot(), true
}

// Drain blocks until no item is pending or uploading, or ctx is done.
func (m *Manager) Drain(ctx context.Context) error {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !m.Outstanding() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		m.promote(ctx)
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}
	}
}

// promote moves the oldest pending item into uploading when the slot is
// free. Failed items never block later pending items; they simply stay in
// the registry awaiting retry or cancel.
func (m *Manager) promote(ctx context.Context) {
	m.mu.Lock()
	for _, it := range m.items {
		if it.status == StatusUploading {
			m.mu.Unlock()
			return
		}
	}
	var next *item
	for _, it := range m.items {
		if it.status != StatusPending {
			continue
		}
		if next == nil || it.seq < next.seq {
			next = it
		}
	}
	if next == nil {
		m.mu.Unlock()
		return
	}

	next.status = StatusUploading
	next.updatedAt = time.Now()
	attemptCtx, cancelAttempt := context.WithTimeout(ctx, m.attemptTimeout)
	next.cancelAttempt = cancelAttempt
	id := next.id
	req := Request{
		RecordingID: next.recordingID,
		Kind:        next.kind,
		Filename:    next.filename,
		Payload:     next.payload,
	}
	m.mu.Unlock()

	m.logger.Info("upload started",
		logging.String(logging.FieldUploadID, id.String()),
		logging.Int64(logging.FieldRecordingID, req.RecordingID),
		logging.String(logging.FieldMediaKind, req.Kind.String()),
	)
	m.wg.Add(1)
	go m.attempt(attemptCtx, cancelAttempt, id, req)
}

func (m *Manager) attempt(ctx context.Context, cancel context.CancelFunc, id uuid.UUID, req Request) {
	defer m.wg.Done()
	defer cancel()

	ack, err := m.transport.Upload(ctx, req)
	m.finish(id, req, ack, err)
	m.signal()
}

func (m *Manager) finish(id uuid.UUID, req Request, ack Ack, err error) {
	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		// Cancelled mid-flight; the registry entry is already gone.
		m.mu.Unlock()
		return
	}
	it.cancelAttempt = nil
	it.updatedAt = time.Now()

	if err == nil {
		it.status = StatusCompleted
		it.errMsg = ""
		m.mu.Unlock()

		m.logger.Info("upload completed",
			logging.String(logging.FieldUploadID, id.String()),
			logging.Int64(logging.FieldRecordingID, req.RecordingID),
			logging.String("stored_as", ack.StoredAs),
			logging.Int64("bytes", ack.Size),
		)
		if m.invalidator != nil {
			m.invalidator.Invalidate()
		}
		m.notify("upload completed", func(ctx context.Context) error {
			return m.notifier.NotifyUploadCompleted(ctx, req.RecordingID, req.Kind, ack.Size)
		})
		m.evictAfterLinger(id)
		return
	}

	message := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		message = fmt.Sprintf("upload timed out after %s", m.attemptTimeout)
	}
	it.status = StatusFailed
	it.errMsg = message
	m.mu.Unlock()

	m.logger.Warn("upload failed",
		logging.String(logging.FieldUploadID, id.String()),
		logging.Int64(logging.FieldRecordingID, req.RecordingID),
		logging.String(logging.FieldMediaKind, req.Kind.String()),
		logging.String("reason", message),
	)
	m.notify("upload failed", func(ctx context.Context) error {
		return m.notifier.NotifyUploadFailed(ctx, req.RecordingID, req.Kind, message)
	})
}

// evictAfterLinger removes a completed item after the configured grace
// period, leaving time for status surfaces to show the success.
func (m *Manager) evictAfterLinger(id uuid.UUID) {
	time.AfterFunc(m.completedLinger, func() {
		m.mu.Lock()
		if it, ok := m.items[id]; ok && it.status == StatusCompleted {
			delete(m.items, id)
		}
		m.mu.Unlock()
	})
}

// notify delivers one notification with its own deadline; the attempt ctx may
// already be dead when the event fires.
func (m *Manager) notify(event string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.logger.Warn("notification delivery failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, event),
		)
	}
}
