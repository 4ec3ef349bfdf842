// Command recital is the operator CLI for the recital recording pipeline:
// queueing media uploads, listing stored recordings, and checking the ingest
// service.
package main
