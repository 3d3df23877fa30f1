package transcriber

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
	"github.com/nguyentantai21042004/lecture-flow/internal/gemini"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

type fakeExecutor struct {
	calls      [][]string
	transcript string
	failOn     string
}

// Execute mimics ffmpeg and whisper.cpp by creating the files they would write.
func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if name == f.failOn {
		return "", errors.New(name + " crashed")
	}

	switch name {
	case "ffmpeg":
		out := args[len(args)-1]
		return "", os.WriteFile(out, []byte("RIFF"), 0644)
	case "whisper-cli":
		for i, a := range args {
			if a == "--output-file" {
				return "", os.WriteFile(args[i+1]+".txt", []byte(f.transcript), 0644)
			}
		}
		return "", errors.New("missing --output-file")
	}
	return "", nil
}

func testLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

func whisperConfig(tmp string) config.TranscriberConfig {
	return config.TranscriberConfig{
		Backend: config.BackendWhisper,
		Whisper: config.WhisperConfig{
			ModelPath:  filepath.Join(tmp, "ggml-base.bin"),
			BinaryPath: "whisper-cli",
			Language:   "en",
			Prompt:     "calculus",
			Threads:    4,
		},
		FFmpeg: config.FFmpegConfig{
			BinaryPath: "ffmpeg",
			TempDir:    tmp,
		},
	}
}

func TestWhisperTranscribe(t *testing.T) {
	tmp := t.TempDir()
	exec := &fakeExecutor{transcript: " Hello   world.\n"}
	w := NewWhisper(whisperConfig(tmp), exec, testLogger())

	got, err := w.Transcribe(context.Background(), "/uploads/lecture.mp3")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != " Hello   world.\n" {
		t.Errorf("Transcribe() = %q, want raw whisper output", got)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("executor calls = %d, want 2", len(exec.calls))
	}
	if exec.calls[0][0] != "ffmpeg" || exec.calls[0][2] != "/uploads/lecture.mp3" {
		t.Errorf("ffmpeg call = %v", exec.calls[0])
	}
	whisperArgs := strings.Join(exec.calls[1], " ")
	for _, want := range []string{"-otxt", "-nt", "-l en", "-t 4", "--prompt calculus"} {
		if !strings.Contains(whisperArgs, want) {
			t.Errorf("whisper args %q missing %q", whisperArgs, want)
		}
	}

	// The work dir is removed after the run.
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir not cleaned up: %v", entries)
	}
}

func TestWhisperTranscribeFailures(t *testing.T) {
	for _, failOn := range []string{"ffmpeg", "whisper-cli"} {
		t.Run(failOn, func(t *testing.T) {
			tmp := t.TempDir()
			exec := &fakeExecutor{failOn: failOn}
			w := NewWhisper(whisperConfig(tmp), exec, testLogger())

			_, err := w.Transcribe(context.Background(), "/uploads/lecture.wav")
			if err == nil || !strings.Contains(err.Error(), failOn+" crashed") {
				t.Fatalf("Transcribe() error = %v, want %s failure", err, failOn)
			}
		})
	}
}

func TestWhisperInit(t *testing.T) {
	tmp := t.TempDir()
	cfg := whisperConfig(tmp)
	found := func(file string) (string, error) { return "/usr/bin/" + file, nil }

	w := newWhisper(cfg, &fakeExecutor{}, testLogger())
	w.lookPath = found
	if err := w.Init(context.Background()); err == nil {
		t.Fatal("Init() should fail when the model file is missing")
	}

	if err := os.WriteFile(cfg.Whisper.ModelPath, []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	w.lookPath = func(file string) (string, error) {
		if file == "ffmpeg" {
			return "", errors.New("not found")
		}
		return file, nil
	}
	if err := w.Init(context.Background()); err == nil || !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("Init() error = %v, want ffmpeg lookup failure", err)
	}
}

func TestAudioMIMEType(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a.wav", "audio/wav", false},
		{"b.MP3", "audio/mp3", false},
		{"c.m4a", "audio/aac", false},
		{"d.ogg", "audio/ogg", false},
		{"e.txt", "", true},
	}
	for _, tt := range tests {
		got, err := audioMIMEType(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("audioMIMEType(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestGeminiTranscribeErrors(t *testing.T) {
	client := gemini.New([]string{"key"}, "test-model", testLogger())
	tr := NewGemini(client, testLogger())
	ctx := context.Background()

	if _, err := tr.Transcribe(ctx, "notes.pdf"); err == nil {
		t.Error("Transcribe() should reject unsupported formats")
	}
	if _, err := tr.Transcribe(ctx, filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Transcribe() should fail on unreadable audio")
	}

	path := filepath.Join(t.TempDir(), "lecture.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transcribe(ctx, path); !errors.Is(err, gemini.ErrNotInitialized) {
		t.Errorf("Transcribe() error = %v, want ErrNotInitialized", err)
	}
}

func TestGeminiTranscribeRejectsOversizedAudio(t *testing.T) {
	client := gemini.New([]string{"key"}, "test-model", testLogger())
	tr := NewGemini(client, testLogger()).(*implGemini)
	tr.maxInline = 3
	read := false
	tr.readFile = func(name string) ([]byte, error) {
		read = true
		return os.ReadFile(name)
	}

	path := filepath.Join(t.TempDir(), "lecture.mp3")
	if err := os.WriteFile(path, []byte("ID3!"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := tr.Transcribe(context.Background(), path)
	if !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("Transcribe() error = %v, want ErrAudioTooLarge", err)
	}
	if read {
		t.Error("oversized audio was read into memory")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	client := gemini.New([]string{"key"}, "m", testLogger())

	cfg := &config.Config{Transcriber: config.TranscriberConfig{Backend: config.BackendWhisper}}
	tr, err := New(cfg, &fakeExecutor{}, client, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := tr.(*implWhisper); !ok {
		t.Errorf("New() = %T, want whisper backend", tr)
	}

	cfg.Transcriber.Backend = config.BackendGemini
	tr, err = New(cfg, &fakeExecutor{}, client, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := tr.(*implGemini); !ok {
		t.Errorf("New() = %T, want gemini backend", tr)
	}

	cfg.Transcriber.Backend = "vosk"
	if _, err := New(cfg, &fakeExecutor{}, client, testLogger()); err == nil {
		t.Error("New() should reject unknown backends")
	}
}
