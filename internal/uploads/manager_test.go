package uploads_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"recital/internal/config"
	"recital/internal/logging"
	"recital/internal/media"
	"recital/internal/testsupport"
	"recital/internal/uploads"
)

// stubTransport is a controllable transport. With blocking set, Upload waits
// for a value on release (nil means success) or ctx cancellation.
type stubTransport struct {
	mu       sync.Mutex
	calls    []uploads.Request
	blocking bool
	started  chan int64
	release  chan error
	err      error
}

func newBlockingTransport() *stubTransport {
	return &stubTransport{
		blocking: true,
		started:  make(chan int64, 16),
		release:  make(chan error),
	}
}

func (s *stubTransport) Upload(ctx context.Context, req uploads.Request) (uploads.Ack, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	err := s.err
	s.mu.Unlock()
	if s.started != nil {
		s.started <- req.RecordingID
	}
	if s.blocking {
		select {
		case err := <-s.release:
			if err != nil {
				return uploads.Ack{}, err
			}
		case <-ctx.Done():
			return uploads.Ack{}, ctx.Err()
		}
	} else if err != nil {
		return uploads.Ack{}, err
	}
	return uploads.Ack{
		StoredAs: fmt.Sprintf("%d_%s.webm", req.RecordingID, req.Kind),
		Size:     int64(len(req.Payload)),
	}, nil
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// recordingNotifier captures emitted notification events by name.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) record(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingNotifier) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func (r *recordingNotifier) NotifyUploadQueued(_ context.Context, _ int64, _ media.Kind, _ string, _ int64) error {
	r.record("queued")
	return nil
}

func (r *recordingNotifier) NotifyUploadCompleted(_ context.Context, _ int64, _ media.Kind, _ int64) error {
	r.record("completed")
	return nil
}

func (r *recordingNotifier) NotifyUploadFailed(_ context.Context, _ int64, _ media.Kind, _ string) error {
	r.record("failed")
	return nil
}

func (r *recordingNotifier) NotifyUploadCancelled(_ context.Context, _ int64, _ media.Kind) error {
	r.record("cancelled")
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, _ error, _ string) error {
	r.record("error")
	return nil
}

func (r *recordingNotifier) TestNotification(_ context.Context) error {
	r.record("test")
	return nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingInvalidator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func newManager(t *testing.T, tr uploads.Transport, opts ...uploads.ManagerOption) (*uploads.Manager, *recordingNotifier) {
	t.Helper()
	return newManagerWithConfig(t, testsupport.NewConfig(t), tr, opts...)
}

func newManagerWithConfig(t *testing.T, cfg *config.Config, tr uploads.Transport, opts ...uploads.ManagerOption) (*uploads.Manager, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	opts = append([]uploads.ManagerOption{uploads.WithNotifier(notifier)}, opts...)
	mgr := uploads.NewManager(cfg, tr, logging.NewNop(), opts...)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr, notifier
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func statusOf(mgr *uploads.Manager, id uuid.UUID) (uploads.Status, bool) {
	snap, ok := mgr.Get(id)
	return snap.Status, ok
}

func TestEnqueueCompletesAndInvalidatesListing(t *testing.T) {
	tr := &stubTransport{}
	inv := &countingInvalidator{}
	mgr, notifier := newManager(t, tr, uploads.WithListingInvalidator(inv))

	id, err := mgr.Enqueue(7, media.KindVideo, []byte("payload"), "consult.webm")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, "upload completion", func() bool {
		status, ok := statusOf(mgr, id)
		return !ok || status == uploads.StatusCompleted
	})

	if inv.calls() != 1 {
		t.Fatalf("listing invalidated %d times, want 1", inv.calls())
	}
	if !notifier.has("queued") || !notifier.has("completed") {
		t.Fatalf("missing notifications: %v", notifier.all())
	}
	if mgr.Outstanding() {
		t.Fatal("Outstanding true after completion")
	}
}

func TestSingleFlightFIFO(t *testing.T) {
	tr := newBlockingTransport()
	mgr, _ := newManager(t, tr)

	idA, err := mgr.Enqueue(1, media.KindVideo, make([]byte, 10*1024), "a.webm")
	if err != nil {
		t.Fatalf("Enqueue A failed: %v", err)
	}
	idB, err := mgr.Enqueue(2, media.KindAudio, make([]byte, 2*1024), "b.wav")
	if err != nil {
		t.Fatalf("Enqueue B failed: %v", err)
	}

	if got := <-tr.started; got != 1 {
		t.Fatalf("first pickup = recording %d, want 1", got)
	}

	// While A is in flight, B must stay pending and only A may be uploading.
	waitFor(t, time.Second, "A uploading", func() bool {
		status, _ := statusOf(mgr, idA)
		return status == uploads.StatusUploading
	})
	uploading := 0
	for _, snap := range mgr.Snapshot() {
		if snap.Status == uploads.StatusUploading {
			uploading++
		}
	}
	if uploading != 1 {
		t.Fatalf("%d items uploading, want 1", uploading)
	}
	if status, _ := statusOf(mgr, idB); status != uploads.StatusPending {
		t.Fatalf("B status = %s while A in flight, want pending", status)
	}

	tr.release <- nil
	if got := <-tr.started; got != 2 {
		t.Fatalf("second pickup = recording %d, want 2", got)
	}
	tr.release <- nil

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mgr.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
}

func TestFailureThenRetry(t *testing.T) {
	tr := &stubTransport{err: errors.New("connection reset by peer")}
	mgr, notifier := newManager(t, tr)

	id, err := mgr.Enqueue(3, media.KindAudio, []byte("bytes"), "a.wav")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, "failed status", func() bool {
		status, _ := statusOf(mgr, id)
		return status == uploads.StatusFailed
	})
	snap, _ := mgr.Get(id)
	if snap.Error != "connection reset by peer" {
		t.Fatalf("error message = %q", snap.Error)
	}
	if !notifier.has("failed") {
		t.Fatalf("missing failed notification: %v", notifier.all())
	}
	// A failed item does not hold the upload slot.
	if mgr.Outstanding() {
		t.Fatal("Outstanding true with only a failed item")
	}

	tr.mu.Lock()
	tr.err = nil
	tr.mu.Unlock()

	if err := mgr.Retry(id); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	snap, ok := mgr.Get(id)
	if ok && snap.Status == uploads.StatusFailed {
		t.Fatalf("retry left item failed: %+v", snap)
	}
	if ok && snap.Error != "" {
		t.Fatalf("retry did not clear error: %q", snap.Error)
	}

	waitFor(t, 2*time.Second, "completion after retry", func() bool {
		status, ok := statusOf(mgr, id)
		return !ok || status == uploads.StatusCompleted
	})
	if tr.callCount() != 2 {
		t.Fatalf("transport called %d times, want 2", tr.callCount())
	}
}

func TestRetryRequiresFailedStatus(t *testing.T) {
	tr := newBlockingTransport()
	mgr, _ := newManager(t, tr)

	id, err := mgr.Enqueue(4, media.KindVideo, []byte("x"), "v.webm")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-tr.started

	if err := mgr.Retry(id); !errors.Is(err, uploads.ErrNotRetryable) {
		t.Fatalf("Retry on uploading item = %v, want ErrNotRetryable", err)
	}
	if err := mgr.Retry(uuid.New()); !errors.Is(err, uploads.ErrUnknownUpload) {
		t.Fatalf("Retry on unknown id = %v, want ErrUnknownUpload", err)
	}
	tr.release <- nil
}

func TestCancelPendingItem(t *testing.T) {
	tr := newBlockingTransport()
	mgr, notifier := newManager(t, tr)

	if _, err := mgr.Enqueue(1, media.KindVideo, []byte("x"), "a.webm"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-tr.started
	idB, err := mgr.Enqueue(2, media.KindAudio, []byte("y"), "b.wav")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := mgr.Cancel(idB); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, ok := mgr.Get(idB); ok {
		t.Fatal("cancelled item still in registry")
	}
	if !notifier.has("cancelled") {
		t.Fatalf("missing cancelled notification: %v", notifier.all())
	}
	if err := mgr.Cancel(idB); !errors.Is(err, uploads.ErrUnknownUpload) {
		t.Fatalf("second Cancel = %v, want ErrUnknownUpload", err)
	}
	tr.release <- nil
}

func TestCancelUploadingAbortsTransport(t *testing.T) {
	tr := newBlockingTransport()
	mgr, _ := newManager(t, tr)

	idA, err := mgr.Enqueue(1, media.KindVideo, []byte("x"), "a.webm")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-tr.started
	idB, err := mgr.Enqueue(2, media.KindAudio, []byte("y"), "b.wav")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Cancelling the in-flight item aborts its transport call; the stub sees
	// ctx.Done and returns, and the scheduler promotes B.
	if err := mgr.Cancel(idA); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, ok := mgr.Get(idA); ok {
		t.Fatal("cancelled uploading item still in registry")
	}

	if got := <-tr.started; got != 2 {
		t.Fatalf("next pickup = recording %d, want 2", got)
	}
	tr.release <- nil

	waitFor(t, 2*time.Second, "B completion", func() bool {
		status, ok := statusOf(mgr, idB)
		return !ok || status == uploads.StatusCompleted
	})
}

func TestAttemptTimeoutFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAttemptTimeout(1))
	tr := newBlockingTransport()
	mgr, notifier := newManagerWithConfig(t, cfg, tr)

	id, err := mgr.Enqueue(5, media.KindVideo, []byte("slow"), "v.webm")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-tr.started

	waitFor(t, 3*time.Second, "timeout failure", func() bool {
		status, _ := statusOf(mgr, id)
		return status == uploads.StatusFailed
	})
	snap, _ := mgr.Get(id)
	if snap.Error != "upload timed out after 1s" {
		t.Fatalf("timeout message = %q", snap.Error)
	}
	if !notifier.has("failed") {
		t.Fatalf("missing failed notification: %v", notifier.all())
	}
}

func TestCompletedItemEvictedAfterLinger(t *testing.T) {
	tr := &stubTransport{}
	mgr, _ := newManager(t, tr)

	id, err := mgr.Enqueue(6, media.KindAudio, []byte("x"), "a.ogg")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Test config uses a one second linger; the item shows completed first,
	// then leaves the registry.
	waitFor(t, 2*time.Second, "completion", func() bool {
		status, ok := statusOf(mgr, id)
		return !ok || status == uploads.StatusCompleted
	})
	waitFor(t, 3*time.Second, "eviction", func() bool {
		_, ok := mgr.Get(id)
		return !ok
	})
}

func TestOutstandingGuard(t *testing.T) {
	tr := newBlockingTransport()
	mgr, _ := newManager(t, tr)

	if mgr.Outstanding() {
		t.Fatal("Outstanding true on empty queue")
	}
	id, err := mgr.Enqueue(1, media.KindVideo, []byte("x"), "a.webm")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !mgr.Outstanding() {
		t.Fatal("Outstanding false with pending item")
	}
	<-tr.started
	if !mgr.Outstanding() {
		t.Fatal("Outstanding false with uploading item")
	}
	tr.release <- nil

	waitFor(t, 2*time.Second, "completion", func() bool {
		status, ok := statusOf(mgr, id)
		return !ok || status == uploads.StatusCompleted
	})
	if mgr.Outstanding() {
		t.Fatal("Outstanding true after completion")
	}
}

func TestEnqueueValidation(t *testing.T) {
	tr := &stubTransport{}
	mgr, _ := newManager(t, tr)

	if _, err := mgr.Enqueue(0, media.KindVideo, []byte("x"), "a.webm"); err == nil {
		t.Fatal("expected error for zero recording id")
	}
	if _, err := mgr.Enqueue(1, media.Kind("screen"), []byte("x"), "a.webm"); err == nil {
		t.Fatal("expected error for invalid media kind")
	}
	if _, err := mgr.Enqueue(1, media.KindVideo, nil, "a.webm"); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestSnapshotPreservesEnqueueOrder(t *testing.T) {
	tr := newBlockingTransport()
	mgr, _ := newManager(t, tr)

	var ids []uuid.UUID
	for i := int64(1); i <= 3; i++ {
		id, err := mgr.Enqueue(i, media.KindAudio, []byte("x"), fmt.Sprintf("%d.wav", i))
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		ids = append(ids, id)
	}
	<-tr.started

	snaps := mgr.Snapshot()
	if len(snaps) != 3 {
		t.Fatalf("Snapshot returned %d items, want 3", len(snaps))
	}
	for i, snap := range snaps {
		if snap.ID != ids[i] {
			t.Fatalf("snapshot order mismatch at %d: %+v", i, snap)
		}
	}
	tr.release <- nil
}

func TestStartTwiceFails(t *testing.T) {
	mgr := uploads.NewManager(testsupport.NewConfig(t), &stubTransport{}, logging.NewNop(),
		uploads.WithNotifier(&recordingNotifier{}))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(context.Background()); !errors.Is(err, uploads.ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
}
