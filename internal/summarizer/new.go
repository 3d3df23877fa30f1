package summarizer

import (
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

// Options tunes the summarizer. The zero value gives one sequential map
// pass and a single reduce call.
type Options struct {
	// MapConcurrency bounds parallel chunk calls. Values below 2 run sequentially.
	MapConcurrency int
	// RecursiveReduce re-chunks the combined chunk summaries when they exceed
	// the chunk budget instead of reducing them in one call.
	RecursiveReduce bool
	// MaxReduceDepth caps RecursiveReduce. Defaults to 3.
	MaxReduceDepth int
}

type implSummarizer struct {
	model  Model
	logger logger.Logger
	opts   Options
}

// New creates a hierarchical Summarizer over model.
func New(model Model, log logger.Logger, opts Options) Summarizer {
	if opts.MaxReduceDepth <= 0 {
		opts.MaxReduceDepth = 3
	}
	return &implSummarizer{
		model:  model,
		logger: log,
		opts:   opts,
	}
}
