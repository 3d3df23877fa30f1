// Package gemini wraps the Gemini API behind a process-wide handle that
// rotates through several API keys when one hits its quota.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

// ErrNotInitialized is returned when Generate is called before Init.
var ErrNotInitialized = errors.New("gemini client not initialized")

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is shared by the summarization and transcription capabilities.
type Client struct {
	apiKeys []string
	model   string
	logger  logger.Logger

	newGenerator func(ctx context.Context, apiKey string) (generator, error)

	mu         sync.Mutex
	currentKey int
	generators []generator
}

// New creates a Client. No network work happens until Init.
func New(apiKeys []string, model string, log logger.Logger) *Client {
	return &Client{
		apiKeys:      apiKeys,
		model:        model,
		logger:       log,
		newGenerator: newGenAIGenerator,
	}
}

func newGenAIGenerator(ctx context.Context, apiKey string) (generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// Init creates one API client per key. Calling it twice is a no-op.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generators != nil {
		return nil
	}
	if len(c.apiKeys) == 0 {
		return fmt.Errorf("gemini: no API keys configured")
	}

	gens := make([]generator, 0, len(c.apiKeys))
	for i, key := range c.apiKeys {
		g, err := c.newGenerator(ctx, key)
		if err != nil {
			return fmt.Errorf("create client for key %d: %w", i+1, err)
		}
		gens = append(gens, g)
	}

	c.generators = gens
	c.logger.Info(ctx, "Gemini client ready (model %s, %d keys)", c.model, len(gens))
	return nil
}

// Shutdown releases the API clients.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generators = nil
	return nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends contents to the model and returns the concatenated text of
// the first candidate. Quota errors rotate to the next key; any other error
// is returned immediately.
func (c *Client) Generate(ctx context.Context, contents []*genai.Content) (string, error) {
	c.mu.Lock()
	attempts := len(c.generators)
	c.mu.Unlock()

	if attempts == 0 {
		return "", ErrNotInitialized
	}

	var lastErr error
	for range attempts {
		idx, gen := c.current()
		if gen == nil {
			return "", ErrNotInitialized
		}

		result, err := gen.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			if isQuotaError(err) {
				c.logger.Warn(ctx, "Key %d rate limited, rotating...", idx+1)
				c.rotateFrom(idx)
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		return responseText(result)
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (c *Client) current() (int, generator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.generators) == 0 {
		return 0, nil
	}
	return c.currentKey, c.generators[c.currentKey]
}

// rotateFrom advances past idx unless another caller already rotated.
func (c *Client) rotateFrom(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.generators) == 0 || c.currentKey != idx {
		return
	}
	c.currentKey = (c.currentKey + 1) % len(c.generators)
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		return text.String(), nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}
