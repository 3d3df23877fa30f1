package jobs

import (
	"time"

	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/pipeline"
)

// Options configures a Service.
type Options struct {
	// Timeout bounds a single pipeline run. Zero means no limit.
	Timeout time.Duration
	// Dispatcher defaults to in-line processing.
	Dispatcher Dispatcher
	// Importer is required by Ingest only.
	Importer Importer
}

type implService struct {
	ledger     ledger.Ledger
	pipeline   pipeline.Pipeline
	logger     logger.Logger
	timeout    time.Duration
	dispatcher Dispatcher
	importer   Importer
	newID      func() string
}

// New creates a Service.
func New(ld ledger.Ledger, p pipeline.Pipeline, log logger.Logger, opts Options) Service {
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewSyncDispatcher()
	}

	return &implService{
		ledger:     ld,
		pipeline:   p,
		logger:     log,
		timeout:    opts.Timeout,
		dispatcher: opts.Dispatcher,
		importer:   opts.Importer,
		newID:      newJobID,
	}
}
