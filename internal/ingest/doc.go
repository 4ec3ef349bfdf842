// Package ingest serves the recital daemon's HTTP API: media upload and
// retrieval backed by the content store, the recordings listing backed by the
// catalog, a health probe, and the clinical analytics endpoints.
package ingest
