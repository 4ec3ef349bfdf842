// Package listing caches the recordings listing served by the ingest API.
package listing
