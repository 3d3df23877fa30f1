package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/lecture-flow/internal/transcript"
)

func (p *implPipeline) Start(ctx context.Context) error {
	for _, h := range p.handles {
		if err := h.Init(ctx); err != nil {
			// Release what was already started.
			shutdownErr := p.Shutdown(ctx)
			return errors.Join(fmt.Errorf("init capability: %w", err), shutdownErr)
		}
		p.started = append(p.started, h)
	}
	return nil
}

func (p *implPipeline) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.started) - 1; i >= 0; i-- {
		if err := p.started[i].Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.started = nil
	return errors.Join(errs...)
}

// Run executes transcribe -> normalize -> summarize.
func (p *implPipeline) Run(ctx context.Context, audioLocation string) (Result, error) {
	startTime := time.Now()

	raw, err := p.transcriber.Transcribe(ctx, audioLocation)
	if err != nil {
		return Result{}, &StageError{Stage: StageTranscription, Err: err}
	}

	text := transcript.Normalize(raw)
	p.logger.Info(ctx, "Transcript ready: %d chars", len(text))

	summary, err := p.summarizer.Summarize(ctx, text, p.maxChars)
	if err != nil {
		return Result{}, &StageError{Stage: StageSummarization, Err: err}
	}

	p.logger.Info(ctx, "Pipeline finished in %s", time.Since(startTime))
	return Result{Transcript: text, Summary: summary}, nil
}
