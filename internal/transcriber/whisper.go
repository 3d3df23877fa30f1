package transcriber

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var lookPath = exec.LookPath

// Init checks that the model and both binaries are present so a missing
// install fails at startup instead of on the first job.
func (w *implWhisper) Init(ctx context.Context) error {
	if _, err := w.stat(w.whisper.ModelPath); err != nil {
		return fmt.Errorf("whisper model: %w", err)
	}
	if _, err := w.lookPath(w.whisper.BinaryPath); err != nil {
		return fmt.Errorf("whisper binary: %w", err)
	}
	if _, err := w.lookPath(w.ffmpeg.BinaryPath); err != nil {
		return fmt.Errorf("ffmpeg binary: %w", err)
	}
	w.logger.Info(ctx, "Whisper ready: model=%s threads=%d language=%s", w.whisper.ModelPath, w.whisper.Threads, w.whisper.Language)
	return nil
}

func (w *implWhisper) Shutdown(ctx context.Context) error {
	return nil
}

// Transcribe converts the audio to WAV, runs whisper.cpp with plain text
// output and returns the raw transcript.
func (w *implWhisper) Transcribe(ctx context.Context, audioLocation string) (string, error) {
	workDir, err := os.MkdirTemp(w.ffmpeg.TempDir, "transcribe-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer w.cleanupDir(ctx, workDir)

	wavPath, err := w.extractAudio(ctx, audioLocation, workDir)
	if err != nil {
		return "", err
	}

	return w.runWhisper(ctx, wavPath)
}

// extractAudio converts any supported upload to 16kHz mono PCM, the input
// format whisper.cpp expects.
func (w *implWhisper) extractAudio(ctx context.Context, audioPath, workDir string) (string, error) {
	wavPath := filepath.Join(workDir, "audio.wav")

	w.logger.Info(ctx, "Extracting audio: %s", audioPath)

	args := []string{
		"-i", audioPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-threads", "0",
		"-y",
		wavPath,
	}

	if _, err := w.executor.Execute(ctx, w.ffmpeg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	return wavPath, nil
}

func (w *implWhisper) runWhisper(ctx context.Context, wavPath string) (string, error) {
	outputPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))

	w.logger.Info(ctx, "Starting transcription with %d threads: %s", w.whisper.Threads, wavPath)

	// -otxt: plain text output, -nt: no timestamps, -bo 5: best of 5
	args := []string{
		"-m", w.whisper.ModelPath,
		"-f", wavPath,
		"-otxt",
		"-nt",
		"-l", w.whisper.Language,
		"-t", strconv.Itoa(w.whisper.Threads),
		"-bo", "5",
		"--output-file", outputPrefix,
	}
	if w.whisper.Prompt != "" {
		args = append(args, "--prompt", w.whisper.Prompt)
	}

	if _, err := w.executor.Execute(ctx, w.whisper.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	txtPath := outputPrefix + ".txt"
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	w.logger.Info(ctx, "Transcription completed: %d bytes", len(data))
	return string(data), nil
}

func (w *implWhisper) cleanupDir(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		w.logger.Warn(ctx, "Failed to cleanup work dir %s: %v", dir, err)
	} else {
		w.logger.Debug(ctx, "Cleaned up work dir: %s", dir)
	}
}
