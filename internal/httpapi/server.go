// Package httpapi is the HTTP boundary of the conversion pipeline.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forPelevin/gifcut/internal/deps"
	"github.com/forPelevin/gifcut/internal/metrics"
	"github.com/forPelevin/gifcut/internal/types"
)

type Converter interface {
	Convert(ctx context.Context, req types.ConversionRequest) (types.ConversionResult, error)
}

// Artifacts resolves published artifact names to files.
type Artifacts interface {
	Open(name string) (*os.File, error)
}

// Sweeper is notified after every conversion.
type Sweeper interface {
	Trigger()
}

type Config struct {
	Version        string
	PublicPrefix   string
	RequestTimeout time.Duration
	MetricsEnabled bool

	// Health reports tool availability for /healthz.
	Health func(ctx context.Context) []deps.Status
}

type Server struct {
	cfg       Config
	conv      Converter
	artifacts Artifacts
	sweeper   Sweeper
	logger    *slog.Logger
}

func New(cfg Config, conv Converter, artifacts Artifacts, sweeper Sweeper, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/gifs"
	}
	return &Server{cfg: cfg, conv: conv, artifacts: artifacts, sweeper: sweeper, logger: logger}
}

// Handler returns the routed handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.router()
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.Use(metrics.Middleware)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", s.describe).Methods(http.MethodGet)
	api.HandleFunc("/convert", s.convert).Methods(http.MethodPost)

	r.HandleFunc(s.cfg.PublicPrefix+"/{name}", s.artifact).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "NotFound", "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	})
}
