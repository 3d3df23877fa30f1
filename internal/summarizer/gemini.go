package summarizer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/lecture-flow/internal/gemini"
)

const summaryPrompt = `You are a teaching assistant condensing a university lecture transcript.
Write a summary of the excerpt below in roughly %d to %d words.

Requirements:
- Keep the order in which topics appear
- Keep definitions, formulas and worked examples that the lecturer stresses
- Keep technical terms exactly as spoken
- Plain prose, no headings, no preamble

Lecture excerpt:
---
%s
---`

type geminiModel struct {
	client *gemini.Client
}

// NewGeminiModel returns a Model backed by Gemini. The client's lifecycle is
// owned by the caller.
func NewGeminiModel(client *gemini.Client) Model {
	return &geminiModel{client: client}
}

func (m *geminiModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	prompt := fmt.Sprintf(summaryPrompt, minLength, maxLength, text)

	out, err := m.client.Generate(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}
