// Package transport carries recording blobs from the upload queue to the
// ingest API. The client encodes each attempt as a multipart form and leaves
// deadline control to the caller's context.
package transport
