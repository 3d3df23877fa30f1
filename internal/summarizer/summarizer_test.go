package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

type call struct {
	text     string
	min, max int
}

type recordingModel struct {
	mu    sync.Mutex
	calls []call
	fn    func(text string) (string, error)
}

func (m *recordingModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{text: text, min: minLength, max: maxLength})
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(text)
	}
	return "sum(" + text + ")", nil
}

func newTestSummarizer(m Model, opts Options) Summarizer {
	return New(m, logger.NewWithWriter(io.Discard, "error"), opts)
}

// fourSentences splits into two chunks at a 25 character budget.
const fourSentences = "Aaaaaaaaa. Bbbbbbbbb. Ccccccccc. Ddddddddd."

func TestSummarizeEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		m := &recordingModel{}
		got, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), text, 1500)
		if err != nil {
			t.Fatalf("Summarize(%q) error = %v", text, err)
		}
		if got != "" {
			t.Errorf("Summarize(%q) = %q, want empty", text, got)
		}
		if len(m.calls) != 0 {
			t.Errorf("model called %d times for empty input", len(m.calls))
		}
	}
}

func TestSummarizeSingleChunkShortcut(t *testing.T) {
	m := &recordingModel{}
	text := "Short lecture. Only two sentences."

	got, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), text, 1500)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if len(m.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(m.calls))
	}
	if c := m.calls[0]; c.text != text || c.min != ChunkMinLength || c.max != ChunkMaxLength {
		t.Errorf("call = %+v, want chunk bounds over full text", c)
	}
	if got != "sum("+text+")" {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestSummarizeMultiChunkReduce(t *testing.T) {
	m := &recordingModel{}

	got, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), fourSentences, 25)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if len(m.calls) != 3 {
		t.Fatalf("model calls = %d, want k+1 = 3", len(m.calls))
	}
	for _, c := range m.calls[:2] {
		if c.min != ChunkMinLength || c.max != ChunkMaxLength {
			t.Errorf("chunk call bounds = (%d, %d)", c.min, c.max)
		}
	}

	reduce := m.calls[2]
	wantCombined := "sum(Aaaaaaaaa. Bbbbbbbbb.) sum(Ccccccccc. Ddddddddd.)"
	if reduce.text != wantCombined {
		t.Errorf("reduce input = %q, want %q", reduce.text, wantCombined)
	}
	if reduce.min != ReduceMinLength || reduce.max != ReduceMaxLength {
		t.Errorf("reduce bounds = (%d, %d)", reduce.min, reduce.max)
	}
	if got != "sum("+wantCombined+")" {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestSummarizeCallCountMatchesChunks(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d talks about topic %d", i, i%7))
	}
	text := strings.Join(sentences, ". ") + "."

	for _, maxChars := range []int{50, 120, 400, 5000} {
		m := &recordingModel{}
		if _, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), text, maxChars); err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}

		k := 0
		for _, c := range m.calls {
			if c.min == ChunkMinLength {
				k++
			}
		}
		want := k + 1
		if k == 1 {
			want = 1
		}
		if len(m.calls) != want {
			t.Errorf("maxChars=%d: calls = %d with %d chunks, want %d", maxChars, len(m.calls), k, want)
		}
	}
}

func TestSummarizeChunkErrorPropagates(t *testing.T) {
	boom := errors.New("model unavailable")
	m := &recordingModel{fn: func(string) (string, error) { return "", boom }}

	_, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), fourSentences, 25)
	if err != boom {
		t.Fatalf("Summarize() error = %v, want the model error unchanged", err)
	}
	if len(m.calls) != 1 {
		t.Errorf("model calls = %d, want 1 (no retry)", len(m.calls))
	}
}

func TestSummarizeReduceErrorPropagates(t *testing.T) {
	boom := errors.New("reduce failed")
	m := &recordingModel{fn: func(text string) (string, error) {
		if strings.HasPrefix(text, "ok") {
			return "", boom
		}
		return "ok.", nil
	}}

	_, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), fourSentences, 25)
	if !errors.Is(err, boom) {
		t.Fatalf("Summarize() error = %v, want %v", err, boom)
	}
}

func TestSummarizeConcurrentMapKeepsOrder(t *testing.T) {
	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, fmt.Sprintf("Part %02d", i))
	}
	text := strings.Join(sentences, ". ")

	m := &recordingModel{fn: func(text string) (string, error) {
		return "[" + text + "]", nil
	}}

	got, err := newTestSummarizer(m, Options{MapConcurrency: 4}).Summarize(context.Background(), text, 10)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(m.calls) != 21 {
		t.Fatalf("model calls = %d, want 21", len(m.calls))
	}

	var want []string
	for _, s := range sentences[:19] {
		want = append(want, "["+s+".]")
	}
	want = append(want, "["+sentences[19]+"]")
	wantCombined := strings.Join(want, " ")
	if got != "["+wantCombined+"]" {
		t.Errorf("Summarize() = %q, want reduce over %q", got, wantCombined)
	}
}

func TestSummarizeConcurrentMapError(t *testing.T) {
	boom := errors.New("chunk 3 failed")
	m := &recordingModel{fn: func(text string) (string, error) {
		if strings.Contains(text, "Part 03") {
			return "", boom
		}
		return "ok", nil
	}}

	text := "Part 00. Part 01. Part 02. Part 03. Part 04. Part 05"
	_, err := newTestSummarizer(m, Options{MapConcurrency: 3}).Summarize(context.Background(), text, 10)
	if err != boom {
		t.Fatalf("Summarize() error = %v, want %v", err, boom)
	}
}

func TestSummarizeConcurrentMapPanicBecomesError(t *testing.T) {
	m := &recordingModel{fn: func(text string) (string, error) {
		if strings.Contains(text, "Part 02") {
			panic("model crashed")
		}
		return "ok", nil
	}}

	text := "Part 00. Part 01. Part 02. Part 03. Part 04. Part 05"
	got, err := newTestSummarizer(m, Options{MapConcurrency: 3}).Summarize(context.Background(), text, 10)
	if err == nil {
		t.Fatalf("Summarize() = %q, want an error", got)
	}
	if !strings.Contains(err.Error(), "panic: model crashed") {
		t.Errorf("Summarize() error = %v, want the panic value", err)
	}
}

func TestSummarizeRecursiveReduce(t *testing.T) {
	identity := func(text string) (string, error) { return text, nil }

	m := &recordingModel{fn: identity}
	if _, err := newTestSummarizer(m, Options{}).Summarize(context.Background(), fourSentences, 25); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(m.calls) != 3 {
		t.Fatalf("baseline calls = %d, want 3", len(m.calls))
	}

	// Combined summaries never shrink, so recursion runs until the depth cap:
	// three map passes of two chunks, then one reduce.
	m = &recordingModel{fn: identity}
	opts := Options{RecursiveReduce: true, MaxReduceDepth: 2}
	if _, err := newTestSummarizer(m, opts).Summarize(context.Background(), fourSentences, 25); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(m.calls) != 7 {
		t.Fatalf("recursive calls = %d, want 7", len(m.calls))
	}
	if last := m.calls[6]; last.min != ReduceMinLength {
		t.Errorf("last call bounds = (%d, %d), want reduce bounds", last.min, last.max)
	}

	// Short chunk summaries fit the budget, so no recursion happens.
	m = &recordingModel{fn: func(string) (string, error) { return "ok.", nil }}
	if _, err := newTestSummarizer(m, opts).Summarize(context.Background(), fourSentences, 25); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(m.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(m.calls))
	}
}

func TestModelFunc(t *testing.T) {
	var f Model = ModelFunc(func(ctx context.Context, text string, minLength, maxLength int) (string, error) {
		return fmt.Sprintf("%s:%d-%d", text, minLength, maxLength), nil
	})
	got, _ := f.Summarize(context.Background(), "x", 1, 2)
	if got != "x:1-2" {
		t.Errorf("ModelFunc.Summarize() = %q", got)
	}
}
