package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
	"github.com/nguyentantai21042004/lecture-flow/internal/gemini"
	httpserver "github.com/nguyentantai21042004/lecture-flow/internal/http"
	"github.com/nguyentantai21042004/lecture-flow/internal/jobs"
	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/pipeline"
	"github.com/nguyentantai21042004/lecture-flow/internal/storage"
	"github.com/nguyentantai21042004/lecture-flow/internal/summarizer"
	"github.com/nguyentantai21042004/lecture-flow/internal/transcriber"
	"github.com/nguyentantai21042004/lecture-flow/internal/watcher"
	"github.com/nguyentantai21042004/lecture-flow/pkg/executor"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Lecture Transcription Service")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s, %d CPU cores", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Transcriber: %s, summaries: %s", cfg.Transcriber.Backend, cfg.Gemini.Model)
	log.Info(ctx, "Ledger: %s, dispatch: %s", cfg.Storage.Driver, cfg.Pipeline.Mode)

	client := gemini.New(cfg.Gemini.APIKeys, cfg.Gemini.Model, log)
	tr, err := transcriber.New(cfg, executor.New(), client, log)
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}
	sum := summarizer.New(summarizer.NewGeminiModel(client), log, summarizer.Options{
		MapConcurrency:  cfg.Pipeline.MapConcurrency,
		RecursiveReduce: cfg.Pipeline.RecursiveReduce,
		MaxReduceDepth:  cfg.Pipeline.MaxReduceDepth,
	})

	pipe := pipeline.New(tr, sum, log, pipeline.Options{
		MaxCharsPerChunk: cfg.Pipeline.MaxCharsPerChunk,
		Handles:          []pipeline.Lifecycle{client},
	})
	if err := pipe.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer func() {
		if err := pipe.Shutdown(context.Background()); err != nil {
			log.Error(ctx, "Pipeline shutdown: %v", err)
		}
	}()

	ld, err := ledger.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ld.Close()

	audio, err := storage.NewAudioStore(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	dispatcher, err := jobs.NewDispatcher(cfg.Pipeline.Mode, cfg.Pipeline.Workers, log)
	if err != nil {
		return err
	}
	svc := jobs.New(ld, pipe, log, jobs.Options{
		Timeout:    cfg.Pipeline.Timeout,
		Dispatcher: dispatcher,
		Importer:   audio,
	})

	// Jobs left PROCESSING by a previous process can never finish now.
	stale, err := svc.FailInterrupted(ctx)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		log.Warn(ctx, "Marked %d interrupted job(s) as FAILED", len(stale))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)

	srv := httpserver.NewServer(cfg, svc, audio, log)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	watcherDone := make(chan struct{})
	if cfg.Watcher.Enabled {
		ingest := func(ctx context.Context, filePath string) error {
			_, err := svc.Ingest(ctx, filePath)
			return err
		}
		w, err := watcher.New(cfg.Watcher.Inbox, ingest, log, cfg.Watcher.MaxConcurrent)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer w.Stop()

		go func() {
			defer close(watcherDone)
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("watcher: %w", err)
			}
		}()
	} else {
		close(watcherDone)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info(ctx, "Listening on %s, press Ctrl+C to stop", cfg.Server.Addr)

	var runErr error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case runErr = <-errChan:
		log.Error(ctx, "%v", runErr)
	}

	log.Info(ctx, "Shutting down gracefully...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "HTTP shutdown: %v", err)
	}
	cancel()
	<-watcherDone
	if err := svc.Close(shutdownCtx); err != nil {
		log.Error(ctx, "Jobs shutdown: %v", err)
	}

	log.Info(ctx, "Lecture service stopped")
	return runErr
}
