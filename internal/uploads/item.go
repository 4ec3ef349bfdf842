package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recital/internal/media"
)

// Status represents the lifecycle of a queued upload.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	statuses := make([]Status, len(allStatuses))
	copy(statuses, allStatuses)
	return statuses
}

// Active reports whether the status still requires the upload slot or the
// unload guard: pending items await pickup, uploading items hold the slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusUploading
}

// item is the registry entry for one submitted recording blob. All fields are
// guarded by the manager's mutex; the scheduler and the public mutation calls
// are the only writers.
type item struct {
	id          uuid.UUID
	seq         uint64
	recordingID int64
	kind        media.Kind
	filename    string
	payload     []byte
	status      Status
	errMsg      string
	enqueuedAt  time.Time
	updatedAt   time.Time

	// cancelAttempt aborts the in-flight transport call; set only while the
	// item is uploading.
	cancelAttempt context.CancelFunc
}

// Snapshot is the read-only projection of a queue item for display surfaces.
type Snapshot struct {
	ID          uuid.UUID
	RecordingID int64
	Kind        media.Kind
	Filename    string
	Size        int64
	Status      Status
	Error       string
	EnqueuedAt  time.Time
	UpdatedAt   time.Time
}

func (it *item) snapshot() Snapshot {
	return Snapshot{
		ID:          it.id,
		RecordingID: it.recordingID,
		Kind:        it.kind,
		Filename:    it.filename,
		Size:        int64(len(it.payload)),
		Status:      it.status,
		Error:       it.errMsg,
		EnqueuedAt:  it.enqueuedAt,
		UpdatedAt:   it.updatedAt,
	}
}
