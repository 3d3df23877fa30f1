package transcriber

import (
	"fmt"
	"os"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
	"github.com/nguyentantai21042004/lecture-flow/internal/gemini"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/pkg/executor"
)

type implWhisper struct {
	whisper  config.WhisperConfig
	ffmpeg   config.FFmpegConfig
	executor executor.Executor
	logger   logger.Logger

	stat     func(name string) (os.FileInfo, error)
	lookPath func(file string) (string, error)
}

type implGemini struct {
	client    *gemini.Client
	logger    logger.Logger
	maxInline int64
	stat      func(name string) (os.FileInfo, error)
	readFile  func(name string) ([]byte, error)
}

// NewWhisper creates a Transcriber that runs whisper.cpp on a 16kHz mono
// WAV produced by ffmpeg.
func NewWhisper(cfg config.TranscriberConfig, exec executor.Executor, log logger.Logger) Transcriber {
	return newWhisper(cfg, exec, log)
}

func newWhisper(cfg config.TranscriberConfig, exec executor.Executor, log logger.Logger) *implWhisper {
	return &implWhisper{
		whisper:  cfg.Whisper,
		ffmpeg:   cfg.FFmpeg,
		executor: exec,
		logger:   log,
		stat:     os.Stat,
		lookPath: lookPath,
	}
}

// NewGemini creates a Transcriber that sends the audio to Gemini inline.
// Files above MaxInlineAudioBytes are rejected with ErrAudioTooLarge.
func NewGemini(client *gemini.Client, log logger.Logger) Transcriber {
	return &implGemini{
		client:    client,
		logger:    log,
		maxInline: MaxInlineAudioBytes,
		stat:      os.Stat,
		readFile:  os.ReadFile,
	}
}

// New picks the backend named in cfg.Transcriber.Backend.
func New(cfg *config.Config, exec executor.Executor, client *gemini.Client, log logger.Logger) (Transcriber, error) {
	switch cfg.Transcriber.Backend {
	case config.BackendWhisper:
		return NewWhisper(cfg.Transcriber, exec, log), nil
	case config.BackendGemini:
		return NewGemini(client, log), nil
	default:
		return nil, fmt.Errorf("unknown transcriber backend %q", cfg.Transcriber.Backend)
	}
}
