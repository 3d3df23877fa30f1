package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/pipeline"
)

// ErrNoImporter is returned by Ingest when the service has no audio store.
var ErrNoImporter = errors.New("no audio importer configured")

// interrupted describes a job stopped by shutdown rather than by its own failure.
const interrupted = "interrupted"

func newJobID() string {
	return uuid.NewString()
}

func (s *implService) CreateJob(ctx context.Context, id, title, audioLocation string) (ledger.Job, error) {
	job, err := s.ledger.Create(ctx, id, title, audioLocation)
	if err != nil {
		return ledger.Job{}, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info(logger.WithJob(ctx, id), "Job created: %s", title)
	return job, nil
}

func (s *implService) ProcessJob(ctx context.Context, id, audioLocation string) (ledger.Job, error) {
	ctx = logger.WithJob(ctx, id)

	current, err := s.ledger.Get(ctx, id)
	if err != nil {
		return ledger.Job{}, err
	}
	if current.Status != ledger.StatusProcessing {
		return ledger.Job{}, fmt.Errorf("%w: %s is %s", ledger.ErrJobFinalized, id, current.Status)
	}

	s.logger.Info(ctx, "Processing %s", audioLocation)

	result, err := s.run(ctx, audioLocation)

	// Outcomes are recorded even when ctx was cancelled or timed out.
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		s.logger.Error(ctx, "Processing failed: %v", err)
		job, recErr := s.ledger.RecordFailure(recordCtx, id, FailurePrefix+err.Error())
		if recErr != nil {
			return ledger.Job{}, fmt.Errorf("record failure: %w", recErr)
		}
		return job, nil
	}

	job, err := s.ledger.RecordSuccess(recordCtx, id, result.Transcript, result.Summary)
	if err != nil {
		return ledger.Job{}, fmt.Errorf("record success: %w", err)
	}
	s.logger.Info(ctx, "Job completed (%d transcript chars, %d summary chars)",
		len(result.Transcript), len(result.Summary))
	return job, nil
}

type runOutcome struct {
	result pipeline.Result
	err    error
}

// run executes the pipeline on its own goroutine so that a timeout ends the
// job even if a capability ignores ctx. Panics surface as errors.
func (s *implService) run(ctx context.Context, audioLocation string) (pipeline.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return pipeline.Result{}, fmt.Errorf("%s: %w", interrupted, err)
	}

	done := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := s.pipeline.Run(ctx, audioLocation)
		done <- runOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pipeline.Result{}, fmt.Errorf("timed out after %s: %w", s.timeout, ctx.Err())
		}
		return pipeline.Result{}, fmt.Errorf("%s: %w", interrupted, ctx.Err())
	}
}

func (s *implService) GetJob(ctx context.Context, id string) (ledger.Job, error) {
	return s.ledger.Get(ctx, id)
}

func (s *implService) Submit(ctx context.Context, id, title, audioLocation string) (ledger.Job, error) {
	job, err := s.CreateJob(ctx, id, title, audioLocation)
	if err != nil {
		return ledger.Job{}, err
	}

	out, err := s.dispatcher.Dispatch(ctx, job, func(ctx context.Context) (ledger.Job, error) {
		return s.ProcessJob(ctx, job.ID, job.AudioLocation)
	})
	if errors.Is(err, ErrDispatcherClosed) {
		failed, recErr := s.ledger.RecordFailure(context.WithoutCancel(ctx), job.ID, FailurePrefix+err.Error())
		if recErr != nil {
			return ledger.Job{}, fmt.Errorf("record failure: %w", recErr)
		}
		return failed, nil
	}
	return out, err
}

func (s *implService) Ingest(ctx context.Context, path string) (ledger.Job, error) {
	if s.importer == nil {
		return ledger.Job{}, ErrNoImporter
	}

	id := s.newID()
	location, err := s.importer.Import(id, path)
	if err != nil {
		return ledger.Job{}, fmt.Errorf("import %s: %w", path, err)
	}

	return s.Submit(ctx, id, filepath.Base(path), location)
}

func (s *implService) FailInterrupted(ctx context.Context) ([]string, error) {
	ids, err := s.ledger.FailStale(ctx, FailurePrefix+interrupted)
	if err != nil {
		return nil, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	for _, id := range ids {
		s.logger.Warn(logger.WithJob(ctx, id), "Job was interrupted by a previous shutdown, marked FAILED")
	}
	return ids, nil
}

func (s *implService) Close(ctx context.Context) error {
	return s.dispatcher.Close(ctx)
}
