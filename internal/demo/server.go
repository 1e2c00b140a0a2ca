package demo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/viewkit/internal/demo/storage/sqlite"
	"github.com/louisbranch/viewkit/tracing"
)

const serviceName = "viewkit-demo"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server hosts the demo project tracker.
type Server struct {
	httpServer *http.Server
	store      *sqlite.Store
}

// NewServer opens the store, wires every route, and prepares the HTTP
// server. Callers own the returned server and must Close it.
func NewServer(cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		return nil, errors.New("http addr is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	handler, err := newHandler(store, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		store: store,
	}, nil
}

// ListenAndServe serves HTTP until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("demo server listening on %s", s.httpServer.Addr)
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the server's store.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Run builds a server from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := tracing.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	server, err := NewServer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("close server: %v", err)
		}
	}()

	return server.ListenAndServe(ctx)
}
