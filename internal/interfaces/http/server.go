package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/placescope/placescope/internal/config"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

// Server wraps http.Server with graceful shutdown and bound-address
// reporting.
type Server struct {
	srv             *http.Server
	log             logging.Logger
	shutdownTimeout time.Duration

	mu    sync.Mutex
	bound string
}

// NewServer builds a Server from configuration. The handler is typically
// the engine returned by NewRouter.
func NewServer(cfg config.ServerConfig, handler http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log:             log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start listens and serves until Stop is called, returning nil on a clean
// shutdown. The listener is opened explicitly so that callers can bind
// port 0 and discover the chosen port through BoundAddr.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "http listen failed")
	}

	s.mu.Lock()
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	s.log.Info("http server listening", logging.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeInternal, "http serve failed")
	}
	return nil
}

// BoundAddr returns the listening address once Start has bound it, and the
// configured address before that.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != "" {
		return s.bound
	}
	return s.srv.Addr
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "http shutdown failed")
	}
	s.log.Info("http server stopped")
	return nil
}
