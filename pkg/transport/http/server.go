package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/transport"
)

// Server runs an Adapter in an http.Server and shuts it down gracefully.
type Server struct {
	httpServer *http.Server
	adapter    *Adapter
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Validation      api.ValidationConfig
	Logger          *slog.Logger

	// Middleware wraps the whole HTTP handler, outermost first.
	Middleware []func(http.Handler) http.Handler

	// Routes are served next to the API, e.g. /metrics.
	Routes map[string]http.Handler
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
// WriteTimeout stays zero so long streams are not cut off.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		MaxBodySize:     10 << 20,
		ShutdownTimeout: 30 * time.Second,
		ReadTimeout:     30 * time.Second,
		Validation:      api.DefaultValidationConfig(),
		Logger:          slog.Default(),
		Routes:          map[string]http.Handler{},
	}
}

// ServerOption configures a Server.
type ServerOption func(*ServerConfig)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(c *ServerConfig) { c.Addr = addr }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(c *ServerConfig) { c.MaxBodySize = n }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.ShutdownTimeout = d }
}

// WithTimeouts sets the read and write timeouts of the http.Server.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(c *ServerConfig) { c.ReadTimeout, c.WriteTimeout = read, write }
}

// WithValidation sets the request validation limits.
func WithValidation(v api.ValidationConfig) ServerOption {
	return func(c *ServerConfig) { c.Validation = v }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// WithHTTPMiddleware appends HTTP middleware such as authentication.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(c *ServerConfig) { c.Middleware = append(c.Middleware, mw...) }
}

// WithRoute serves h at pattern next to the API.
func WithRoute(pattern string, h http.Handler) ServerOption {
	return func(c *ServerConfig) { c.Routes[pattern] = h }
}

// NewServer creates a server for creator. The store is optional. Recovery,
// request ID and logging middleware are always applied to the creator.
func NewServer(creator transport.ResponseCreator, store transport.ResponseStore, opts ...ServerOption) *Server {
	cfg := DefaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	adapter := NewAdapter(creator, store,
		Config{MaxBodySize: cfg.MaxBodySize, Validation: cfg.Validation},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(cfg.Logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	for pattern, h := range cfg.Routes {
		mux.Handle(pattern, h)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}

	return &Server{
		adapter: adapter,
		config:  cfg,
		logger:  cfg.Logger,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Handler returns the complete HTTP handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown gracefully shuts down the server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
