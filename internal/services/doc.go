// Package services holds the shared error taxonomy and context annotations
// used by the ingest, codec, watcher, and archive components.
package services
