package watcher

import "context"

// Watcher monitors an inbox directory for new audio files.
type Watcher interface {
	// Start blocks until ctx ends, then waits for in-flight handlers.
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler is called once per new audio file.
type EventHandler func(ctx context.Context, filePath string) error
