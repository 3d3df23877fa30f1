package ledger

import "context"

// Ledger persists jobs. Every mutation is atomic: a concurrent Get of the
// same id sees either the whole previous row or the whole new one.
type Ledger interface {
	// Create inserts a PROCESSING job with empty transcript and summary.
	Create(ctx context.Context, id, title, audioLocation string) (Job, error)
	// RecordSuccess moves a PROCESSING job to COMPLETED.
	RecordSuccess(ctx context.Context, id, transcript, summary string) (Job, error)
	// RecordFailure moves a PROCESSING job to FAILED with description as its summary.
	RecordFailure(ctx context.Context, id, description string) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	// FailStale moves every PROCESSING job to FAILED with description as its
	// summary and returns their ids. Jobs left over from a process that died
	// mid-run would otherwise never reach a terminal state.
	FailStale(ctx context.Context, description string) ([]string, error)
	Close() error
}
