package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/notafiscal/internal/entity"
	"github.com/joseph-ayodele/notafiscal/internal/export"
	"github.com/joseph-ayodele/notafiscal/internal/repository"
)

// BatchProcessor runs one extraction batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, docs []entity.Document) (*entity.BatchResult, error)
}

// Exporter serializes a table to XLSX bytes.
type Exporter interface {
	ExportXLSX(ctx context.Context, t entity.InvoiceTable) ([]byte, error)
}

// Server exposes batch processing and export over HTTP.
type Server struct {
	logger    *slog.Logger
	processor BatchProcessor
	exporter  Exporter
	runs      repository.RunRepository // nil -> run history disabled
	health    *HealthChecker

	maxUploadBytes int64
	exportFilename string
	rowsSchema     *rowsValidator
}

type Option func(*Server)

func WithRunRepository(runs repository.RunRepository) Option {
	return func(s *Server) { s.runs = runs }
}

func WithHealthChecker(h *HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithExportFilename(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.exportFilename = name
		}
	}
}

func NewServer(logger *slog.Logger, proc BatchProcessor, exp Exporter, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := newRowsValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		logger:         logger,
		processor:      proc,
		exporter:       exp,
		maxUploadBytes: 32 << 20,
		exportFilename: export.Filename,
		rowsSchema:     v,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/batches", s.handleProcess)
		r.Post("/batches/export", s.handleProcessExport)
		r.Post("/export", s.handleExport)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{run_id}", s.handleGetRun)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
