package uploads

import (
	"context"

	"recital/internal/media"
)

// Request carries one recording blob to the ingest boundary.
type Request struct {
	RecordingID int64
	Kind        media.Kind
	Filename    string
	Payload     []byte
}

// Ack is the server acknowledgment for a stored blob.
type Ack struct {
	StoredAs string
	Size     int64
}

// Transport moves a single blob to durable storage. Implementations must
// honor ctx cancellation and deadlines so in-flight uploads can be aborted.
type Transport interface {
	Upload(ctx context.Context, req Request) (Ack, error)
}

// ListingInvalidator marks a cached recordings listing stale so dependent
// views refetch after an upload lands.
type ListingInvalidator interface {
	Invalidate()
}
