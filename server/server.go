// Package server wires the HTTP routes of the embed player.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"pixelplay/alert"
	"pixelplay/config"
	"pixelplay/page"
	"pixelplay/proxy"
	"pixelplay/upstream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server owns the HTTP listener
type Server struct {
	config  *config.Config
	handler http.Handler
	server  *http.Server
	logger  *slog.Logger
}

// New creates a Server serving the download proxy and the embed page
func New(cfg *config.Config, client *upstream.Client, notifier alert.Notifier) *Server {
	return &Server{
		config:  cfg,
		handler: NewRouter(cfg, client, notifier),
		logger:  slog.With("component", "server"),
	}
}

// NewRouter builds the route table.
func NewRouter(cfg *config.Config, client *upstream.Client, notifier alert.Notifier) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(headerPolicy(FramingPolicy))

	download := proxy.NewDownload(client, notifier, cfg.Download.CacheMaxAge, idParam)
	embed := page.NewHandler(client.FileURL, idParam)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	r.Method(http.MethodGet, "/api/download/{id}", download)
	r.Handle(page.AssetPath+"/*", http.StripPrefix(page.AssetPath, page.Assets()))
	r.Method(http.MethodGet, "/embed/{id}", embed)

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
// Serve errors other than a clean shutdown are sent on errc.
func (s *Server) Start(errc chan<- error) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.Server.ReadHeaderTimeout,
		// No write timeout: downloads stream for as long as they take.
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", slog.Any("error", err))
			select {
			case errc <- err:
			default:
			}
		}
	}()

	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// idParam returns the decoded {id} route segment. chi matches against the
// raw path when one is present, so the value may still be escaped.
func idParam(r *http.Request) string {
	v := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func accessLog(next http.Handler) http.Handler {
	logger := slog.With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Info("Request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
