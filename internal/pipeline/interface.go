package pipeline

import "context"

// Pipeline turns an audio upload into a normalized transcript and a summary.
type Pipeline interface {
	// Start initializes every capability that holds process-wide state.
	Start(ctx context.Context) error
	// Run transcribes, normalizes and summarizes. It does no recovery of
	// its own: any capability error is returned as a *StageError.
	Run(ctx context.Context, audioLocation string) (Result, error)
	// Shutdown releases what Start acquired.
	Shutdown(ctx context.Context) error
}

// Lifecycle is implemented by capabilities that must be loaded once per
// process, such as a model handle or an API client pool.
type Lifecycle interface {
	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Result is the output of a successful Run.
type Result struct {
	Transcript string
	Summary    string
}
