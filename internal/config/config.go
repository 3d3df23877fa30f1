package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendWhisper = "whisper"
	BackendGemini  = "gemini"

	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"

	ModeSync  = "sync"
	ModeAsync = "async"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Watcher     WatcherConfig     `yaml:"watcher"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	UploadDir   string `yaml:"upload_dir"`
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type PipelineConfig struct {
	MaxCharsPerChunk int           `yaml:"max_chars_per_chunk"`
	MapConcurrency   int           `yaml:"map_concurrency"`
	RecursiveReduce  bool          `yaml:"recursive_reduce"`
	MaxReduceDepth   int           `yaml:"max_reduce_depth"`
	Timeout          time.Duration `yaml:"timeout"`
	Mode             string        `yaml:"mode"`
	Workers          int           `yaml:"workers"`
}

type TranscriberConfig struct {
	Backend string        `yaml:"backend"`
	Whisper WhisperConfig `yaml:"whisper"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Language   string `yaml:"language"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	TempDir    string `yaml:"temp_dir"`
}

type GeminiConfig struct {
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`
}

type WatcherConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Inbox         string `yaml:"inbox"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if keys := strings.TrimSpace(os.Getenv("GEMINI_API_KEYS")); keys != "" {
		c.Gemini.APIKeys = nil
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Gemini.APIKeys = append(c.Gemini.APIKeys, k)
			}
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.PostgresDSN = dsn
	}
}

func (c *Config) Validate() error {
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Transcriber.Backend == "" {
		c.Transcriber.Backend = BackendWhisper
	}
	switch c.Transcriber.Backend {
	case BackendWhisper:
		if c.Transcriber.Whisper.ModelPath == "" {
			return fmt.Errorf("transcriber.whisper.model_path is required")
		}
		if c.Transcriber.Whisper.BinaryPath == "" {
			return fmt.Errorf("transcriber.whisper.binary_path is required")
		}
	case BackendGemini:
	default:
		return fmt.Errorf("unknown transcriber.backend %q", c.Transcriber.Backend)
	}

	// Summaries always go through Gemini.
	if len(c.Gemini.APIKeys) == 0 {
		return fmt.Errorf("gemini.api_keys is required")
	}

	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = ModeSync
	}
	if c.Pipeline.Mode != ModeSync && c.Pipeline.Mode != ModeAsync {
		return fmt.Errorf("unknown pipeline.mode %q", c.Pipeline.Mode)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("pipeline.timeout must not be negative")
	}

	if c.Watcher.Enabled && c.Watcher.Inbox == "" {
		return fmt.Errorf("watcher.inbox is required when the watcher is enabled")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:5000"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 200
	}
	if c.Pipeline.MaxCharsPerChunk == 0 {
		c.Pipeline.MaxCharsPerChunk = 1500
	}
	if c.Pipeline.MapConcurrency == 0 {
		c.Pipeline.MapConcurrency = 1
	}
	if c.Pipeline.MaxReduceDepth == 0 {
		c.Pipeline.MaxReduceDepth = 3
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 2
	}
	if c.Transcriber.Whisper.Language == "" {
		c.Transcriber.Whisper.Language = "en"
	}
	if c.Transcriber.Whisper.Threads == 0 {
		c.Transcriber.Whisper.Threads = 8
	}
	if c.Transcriber.FFmpeg.BinaryPath == "" {
		c.Transcriber.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Watcher.MaxConcurrent == 0 {
		c.Watcher.MaxConcurrent = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB * 1024 * 1024
}
