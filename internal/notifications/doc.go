// Package notifications delivers upload pipeline events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Upload queue code
// depends only on the Service interface, so alternative transports can be
// added without touching the pipeline.
package notifications
