// Package uploads is the client-side queue that delivers recorded session
// media to durable storage.
//
// Enqueued blobs move through pending, uploading, and completed or failed.
// A single scheduling goroutine reacts to discrete events (enqueue, transport
// completion, cancel, retry) via a reschedule signal, so transitions never
// interleave and at most one transport call is in flight across the whole
// queue. Failures are never retried automatically; they wait for an explicit
// caller retry, and every transition emits a user-facing notification.
package uploads
