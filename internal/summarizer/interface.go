package summarizer

import "context"

// Model is the summarization capability: it condenses text to a summary
// whose length falls roughly within [minLength, maxLength] words.
type Model interface {
	Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, text string, minLength, maxLength int) (string, error)

func (f ModelFunc) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	return f(ctx, text, minLength, maxLength)
}

// Summarizer turns an arbitrarily long transcript into one summary while
// keeping every Model call within maxCharsPerChunk characters of input.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxCharsPerChunk int) (string, error)
}
