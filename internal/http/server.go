// Package http exposes the lecture job service over a JSON API.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
	"github.com/nguyentantai21042004/lecture-flow/internal/jobs"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

// cancelGrace is how long Shutdown waits for cancelled requests to finish
// recording their jobs.
const cancelGrace = 5 * time.Second

type Server struct {
	engine *gin.Engine
	srv    *http.Server
	logger logger.Logger

	// cancel ends the base context of every request.
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewServer(cfg *config.Config, svc jobs.Service, audio AudioSaver, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	base, cancel := context.WithCancel(context.Background())
	s := &Server{logger: log, cancel: cancel}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.trackInflight)
	engine.Use(RequestLogger(log))
	engine.Use(MaxBodySize(cfg.MaxUploadBytes()))
	engine.Use(CORS(cfg.Server.AllowedOrigins))
	// Multipart bodies above this spill to temp files.
	engine.MaxMultipartMemory = 32 << 20

	api := NewAPI(svc, audio, log)
	registerRoutes(engine, api)

	s.engine = engine
	s.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	return s
}

func (s *Server) trackInflight(c *gin.Context) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	c.Next()
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until Shutdown is called.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info(context.Background(), "HTTP server listening on %s", ln.Addr())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones. When ctx
// ends first, active requests are cancelled so their jobs are recorded as
// FAILED, and Shutdown waits up to cancelGrace for that to happen.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.cancel()
	if err == nil {
		return nil
	}

	s.logger.Warn(ctx, "Shutdown deadline reached, cancelling in-flight requests")
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(cancelGrace):
		s.logger.Error(ctx, "Requests still running after cancel")
	}
	return err
}
