// Package server exposes entries over HTTP: a JSON API and a read-only
// detail page.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Options configures a Server.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Server owns the http.Server and its routes.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// Routes registers every endpoint on a new mux.
func Routes(h *EntryHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /entries/{uuid}", h.Page)

	mux.HandleFunc("POST /api/entries", h.Create)
	mux.HandleFunc("GET /api/entries/{uuid}", h.Get)
	mux.HandleFunc("PUT /api/entries/{uuid}", h.Update)
	mux.HandleFunc("DELETE /api/entries/{uuid}", h.Delete)

	mux.HandleFunc("GET /api/tags", h.ListTags)

	return mux
}

// Handler wraps the routes in the standard middleware chain.
func Handler(service EntryService, logger *slog.Logger, allowedOrigins []string) http.Handler {
	return Chain(
		Routes(NewEntryHandler(service, logger)),
		RequestID,
		Logger(logger),
		Recovery(logger),
		CORS(allowedOrigins),
	)
}

func New(service EntryService, logger *slog.Logger, opts Options) *Server {
	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           Handler(service, logger, opts.AllowedOrigins),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		logger: logger,
	}
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}
