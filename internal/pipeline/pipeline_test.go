package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/summarizer"
	"github.com/nguyentantai21042004/lecture-flow/internal/transcriber"
)

func testLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

func identitySummarizer() summarizer.Summarizer {
	return summarizer.New(summarizer.ModelFunc(func(ctx context.Context, text string, minLength, maxLength int) (string, error) {
		return text, nil
	}), testLogger(), summarizer.Options{})
}

type recordingSummarizer struct {
	text     string
	maxChars int
}

func (r *recordingSummarizer) Summarize(ctx context.Context, text string, maxCharsPerChunk int) (string, error) {
	r.text = text
	r.maxChars = maxCharsPerChunk
	return "summary", nil
}

func TestRunNormalizesAndSummarizes(t *testing.T) {
	tr := transcriber.Func(func(ctx context.Context, audioLocation string) (string, error) {
		if audioLocation != "/uploads/a.wav" {
			t.Errorf("audioLocation = %q", audioLocation)
		}
		return "Hello   world.\n\nThis is   a test.", nil
	})
	sum := &recordingSummarizer{}

	got, err := New(tr, sum, testLogger(), Options{}).Run(context.Background(), "/uploads/a.wav")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.Transcript != "Hello world. This is a test." {
		t.Errorf("Transcript = %q", got.Transcript)
	}
	if got.Summary != "summary" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if sum.text != got.Transcript {
		t.Errorf("summarizer input = %q, want normalized transcript", sum.text)
	}
	if sum.maxChars != DefaultMaxCharsPerChunk {
		t.Errorf("maxChars = %d, want %d", sum.maxChars, DefaultMaxCharsPerChunk)
	}
}

func TestRunUsesConfiguredChunkBudget(t *testing.T) {
	tr := transcriber.Func(func(ctx context.Context, audioLocation string) (string, error) { return "x", nil })
	sum := &recordingSummarizer{}

	if _, err := New(tr, sum, testLogger(), Options{MaxCharsPerChunk: 700}).Run(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if sum.maxChars != 700 {
		t.Errorf("maxChars = %d, want 700", sum.maxChars)
	}
}

func TestRunWithIdentitySummarizer(t *testing.T) {
	tr := transcriber.Func(func(ctx context.Context, audioLocation string) (string, error) {
		return "Hello   world.\n\nThis is   a test.", nil
	})

	got, err := New(tr, identitySummarizer(), testLogger(), Options{}).Run(context.Background(), "a")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Summary != "Hello world. This is a test." {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestRunTranscriptionFailure(t *testing.T) {
	boom := errors.New("decoder exploded")
	tr := transcriber.Func(func(ctx context.Context, audioLocation string) (string, error) { return "", boom })
	sum := &recordingSummarizer{}

	_, err := New(tr, sum, testLogger(), Options{}).Run(context.Background(), "a")

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageTranscription {
		t.Fatalf("Run() error = %v, want transcription StageError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Run() error does not wrap the upstream error")
	}
	if sum.text != "" {
		t.Error("summarizer called after transcription failure")
	}
}

func TestRunSummarizationFailure(t *testing.T) {
	boom := errors.New("model overloaded")
	tr := transcriber.Func(func(ctx context.Context, audioLocation string) (string, error) { return "text", nil })
	sum := summarizer.New(summarizer.ModelFunc(func(ctx context.Context, text string, minLength, maxLength int) (string, error) {
		return "", boom
	}), testLogger(), summarizer.Options{})

	_, err := New(tr, sum, testLogger(), Options{}).Run(context.Background(), "a")

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageSummarization {
		t.Fatalf("Run() error = %v, want summarization StageError", err)
	}
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Run() error = %v, want upstream message", err)
	}
}

type fakeHandle struct {
	name    string
	initErr error
	events  *[]string
}

func (f *fakeHandle) Init(ctx context.Context) error {
	*f.events = append(*f.events, "init "+f.name)
	return f.initErr
}

func (f *fakeHandle) Shutdown(ctx context.Context) error {
	*f.events = append(*f.events, "shutdown "+f.name)
	return nil
}

type lifecycleTranscriber struct {
	fakeHandle
}

func (l *lifecycleTranscriber) Transcribe(ctx context.Context, audioLocation string) (string, error) {
	return "", nil
}

func TestStartAndShutdownOrder(t *testing.T) {
	var events []string
	client := &fakeHandle{name: "client", events: &events}
	tr := &lifecycleTranscriber{fakeHandle{name: "transcriber", events: &events}}

	p := New(tr, &recordingSummarizer{}, testLogger(), Options{Handles: []Lifecycle{client}})
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"init client", "init transcriber", "shutdown transcriber", "shutdown client"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestStartFailureReleasesStartedHandles(t *testing.T) {
	var events []string
	client := &fakeHandle{name: "client", events: &events}
	tr := &lifecycleTranscriber{fakeHandle{name: "transcriber", events: &events, initErr: errors.New("model missing")}}

	p := New(tr, &recordingSummarizer{}, testLogger(), Options{Handles: []Lifecycle{client}})
	err := p.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "model missing") {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"init client", "init transcriber", "shutdown client"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}
