package pipeline

import (
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/summarizer"
	"github.com/nguyentantai21042004/lecture-flow/internal/transcriber"
)

// DefaultMaxCharsPerChunk is the chunk budget used when none is configured.
const DefaultMaxCharsPerChunk = 1500

// Options configures a Pipeline.
type Options struct {
	MaxCharsPerChunk int
	// Handles are extra lifecycle-managed capabilities shared by the
	// transcriber and summarizer, such as a Gemini client.
	Handles []Lifecycle
}

type implPipeline struct {
	transcriber transcriber.Transcriber
	summarizer  summarizer.Summarizer
	logger      logger.Logger
	maxChars    int
	handles     []Lifecycle
	started     []Lifecycle
}

// New creates a Pipeline. If tr implements Lifecycle it is started after
// opts.Handles.
func New(tr transcriber.Transcriber, sum summarizer.Summarizer, log logger.Logger, opts Options) Pipeline {
	if opts.MaxCharsPerChunk <= 0 {
		opts.MaxCharsPerChunk = DefaultMaxCharsPerChunk
	}

	handles := append([]Lifecycle(nil), opts.Handles...)
	if lc, ok := tr.(Lifecycle); ok {
		handles = append(handles, lc)
	}

	return &implPipeline{
		transcriber: tr,
		summarizer:  sum,
		logger:      log,
		maxChars:    opts.MaxCharsPerChunk,
		handles:     handles,
	}
}
