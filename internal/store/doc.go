// Package store is the durable filesystem persistence layer for session
// recording media.
//
// Artifacts are keyed by (recording ID, media kind) and live as flat files
// named {id}_{kind}.{ext} under one storage root. The store is independent of
// the upload pipeline's retry logic: it saves, locates, loads, enumerates,
// and purges artifacts, and treats a missing artifact as an expected absent
// condition rather than an error.
package store
