// Package jobs is the boundary between callers and the lecture pipeline.
// It drives the ledger through PROCESSING -> COMPLETED | FAILED and is the
// only place where pipeline failures and panics are recovered.
package jobs

import (
	"context"

	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
)

// FailurePrefix starts the summary of every FAILED job.
const FailurePrefix = "Processing failed: "

// Service creates, processes and reports lecture jobs.
type Service interface {
	CreateJob(ctx context.Context, id, title, audioLocation string) (ledger.Job, error)
	// ProcessJob runs the pipeline for an existing PROCESSING job and
	// records the outcome. A pipeline error or panic becomes a FAILED job;
	// the returned error is non-nil only when the ledger itself fails.
	ProcessJob(ctx context.Context, id, audioLocation string) (ledger.Job, error)
	GetJob(ctx context.Context, id string) (ledger.Job, error)
	// Submit creates the job and hands it to the Dispatcher.
	Submit(ctx context.Context, id, title, audioLocation string) (ledger.Job, error)
	// Ingest imports an audio file from disk under a fresh id and submits it.
	Ingest(ctx context.Context, path string) (ledger.Job, error)
	// FailInterrupted marks every job still PROCESSING as FAILED. It is meant
	// for startup, before any job is submitted, and returns the affected ids.
	FailInterrupted(ctx context.Context) ([]string, error)
	// Close waits for dispatched work to finish. When ctx ends first, running
	// and queued jobs are cancelled and recorded as FAILED.
	Close(ctx context.Context) error
}

// RunFunc processes one job and returns its final record.
type RunFunc func(ctx context.Context) (ledger.Job, error)

// Dispatcher decides where and when a created job is processed.
type Dispatcher interface {
	// Dispatch schedules run for job. It returns the terminal record when
	// run completes in-line, or job itself when it was queued.
	Dispatch(ctx context.Context, job ledger.Job, run RunFunc) (ledger.Job, error)
	Close(ctx context.Context) error
}

// Importer moves an audio file into upload storage.
type Importer interface {
	Import(jobID, srcPath string) (string, error)
}
