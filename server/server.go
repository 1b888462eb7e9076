// Package server exposes the generation pipeline over HTTP: a small HTML
// form, a JSON API and operational endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"diploma_generator/config"
	"diploma_generator/generator"
	"diploma_generator/publisher"
)

//go:embed web/templates/*.html
var embeddedTemplates embed.FS

// errNoSlot is returned when the request gave up waiting for a free run slot.
var errNoSlot = errors.New("no generation slot available")

// Generator runs one request through the section pipeline.
type Generator interface {
	Generate(ctx context.Context, req generator.GenerationRequest) (*generator.Run, error)
}

type Server struct {
	gen     Generator
	pub     publisher.Publisher
	store   *runStore
	slots   *semaphore.Weighted
	timeout time.Duration
	pages   *template.Template
	logger  *slog.Logger
}

func New(gen Generator, pub publisher.Publisher, cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	if cfg.MaxConcurrentRuns < 1 {
		return nil, fmt.Errorf("max concurrent runs must be positive, got %d", cfg.MaxConcurrentRuns)
	}
	if cfg.GenerateTimeout <= 0 {
		return nil, fmt.Errorf("generate timeout must be positive, got %s", cfg.GenerateTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := template.ParseFS(embeddedTemplates, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		gen:     gen,
		pub:     pub,
		store:   newStore(),
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		timeout: cfg.GenerateTimeout,
		pages:   pages,
		logger:  logger.With("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleFormSubmit)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/runs/{id}", s.handleRunByID)
		r.Get("/runs/{id}/html", s.handleRunHTML)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// execute waits for a run slot, generates the document under the configured
// timeout and persists it. Every finished run, failed or not, is recorded.
func (s *Server) execute(ctx context.Context, req generator.GenerationRequest) (runRecord, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return runRecord{}, fmt.Errorf("%w: %w", errNoSlot, err)
	}
	defer s.slots.Release(1)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run, err := s.gen.Generate(genCtx, req)
	if run == nil {
		if err == nil {
			err = errors.New("generator returned no run")
		}
		return runRecord{}, err
	}
	rec := runRecord{Run: run}
	if err != nil {
		s.store.set(rec)
		return rec, err
	}

	location, err := s.pub.Publish(ctx, run)
	if err != nil {
		s.store.set(rec)
		return rec, err
	}
	rec.Location = location
	s.store.set(rec)
	return rec, nil
}

// statusFor maps a failed execute call onto an HTTP status.
func statusFor(err error) int {
	var serr *generator.SectionError
	switch {
	case errors.Is(err, errNoSlot):
		return http.StatusServiceUnavailable
	case errors.Is(err, publisher.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, generator.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &serr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to clients; causes stay in the log.
func publicMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "server is busy, try again later"
	case http.StatusGatewayTimeout:
		return "generation timed out or was cancelled"
	case http.StatusBadGateway:
		return "generation failed"
	default:
		return "failed to save the document"
	}
}

func (s *Server) logFailure(r *http.Request, status int, rec runRecord, err error) {
	attrs := []any{
		"status", status,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"error", err,
	}
	if rec.Run != nil {
		attrs = append(attrs, "run_id", rec.Run.ID.String())
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.ErrorContext(r.Context(), "generation request failed", attrs...)
		return
	}
	s.logger.WarnContext(r.Context(), "generation request failed", attrs...)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
