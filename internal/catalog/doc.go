// Package catalog maintains the SQLite-backed metadata index of stored
// recording artifacts.
//
// The filesystem store remains the source of truth for bytes; the catalog
// indexes (recording ID, media kind) keys with filename, size, and upload
// time so listing queries never walk the storage directory. The daemon
// reconciles the catalog against the store at startup.
package catalog
