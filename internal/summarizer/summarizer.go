package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nguyentantai21042004/lecture-flow/internal/transcript"
)

// Length bounds passed to the Model for chunk (map) and combined (reduce) calls.
const (
	ChunkMinLength  = 60
	ChunkMaxLength  = 200
	ReduceMinLength = 80
	ReduceMaxLength = 250
)

// Summarize chunks text, summarizes every chunk, and reduces the chunk
// summaries with one more Model call when there is more than one chunk.
// Model errors are returned as they are.
func (s *implSummarizer) Summarize(ctx context.Context, text string, maxCharsPerChunk int) (string, error) {
	return s.summarize(ctx, text, maxCharsPerChunk, 0)
}

func (s *implSummarizer) summarize(ctx context.Context, text string, maxChars, depth int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	chunks := transcript.Chunk(text, maxChars)
	s.logger.Debug(ctx, "Summarizing %d chars as %d chunk(s) (depth %d)", utf8.RuneCountInString(text), len(chunks), depth)

	summaries, err := s.mapChunks(ctx, chunks)
	if err != nil {
		return "", err
	}

	// A single chunk is already short; reducing it again over-compresses.
	if len(summaries) == 1 {
		return summaries[0], nil
	}

	combined := strings.Join(summaries, " ")
	if s.shouldRecurse(combined, maxChars, depth) {
		s.logger.Debug(ctx, "Combined summaries exceed %d chars, reducing recursively", maxChars)
		return s.summarize(ctx, combined, maxChars, depth+1)
	}

	s.logger.Debug(ctx, "Reducing %d chunk summaries", len(summaries))
	return s.model.Summarize(ctx, combined, ReduceMinLength, ReduceMaxLength)
}

func (s *implSummarizer) shouldRecurse(combined string, maxChars, depth int) bool {
	if !s.opts.RecursiveReduce || depth >= s.opts.MaxReduceDepth {
		return false
	}
	if utf8.RuneCountInString(combined) <= maxChars {
		return false
	}
	// Recursing on text that cannot be split would skip the reduce bounds.
	return len(transcript.Chunk(combined, maxChars)) > 1
}

// mapChunks summarizes each chunk, keeping results in chunk order.
func (s *implSummarizer) mapChunks(ctx context.Context, chunks []string) ([]string, error) {
	summaries := make([]string, len(chunks))

	if s.opts.MapConcurrency < 2 || len(chunks) < 2 {
		for i, chunk := range chunks {
			summary, err := s.model.Summarize(ctx, chunk, ChunkMinLength, ChunkMaxLength)
			if err != nil {
				return nil, err
			}
			summaries[i] = summary
		}
		return summaries, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := newSemaphore(s.opts.MapConcurrency)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i, chunk := range chunks {
		if err := sem.acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			defer sem.release()

			fail := func(err error) {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
			// A panicking model must not take the process down from a worker.
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("panic: %v", r))
				}
			}()

			summary, err := s.model.Summarize(ctx, chunk, ChunkMinLength, ChunkMaxLength)
			if err != nil {
				fail(err)
				return
			}
			summaries[i] = summary
		}(i, chunk)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	// The parent context ended before every chunk was started.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
