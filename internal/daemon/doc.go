// Package daemon wires the recital background services together: the content
// store, the catalog, and the ingest API, guarded by a single-instance lock.
package daemon
