package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dgallion1/archindex/internal/config"
	"github.com/dgallion1/archindex/internal/pipeline"
	"github.com/dgallion1/archindex/internal/report"
	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for archindex.
type Server struct {
	router       chi.Router
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	svc          *pipeline.Service
	reports      *report.Assembler
	stats        *stats.Aggregator
	limiter      *ClientLimiter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, orch *pipeline.Orchestrator, reports *report.Assembler, agg *stats.Aggregator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:        st,
		orchestrator: orch,
		svc:          orch.Service(),
		reports:      reports,
		stats:        agg,
		limiter:      NewClientLimiter(cfg.UploadRate, cfg.UploadBurst),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Route("/api/upload", func(r chi.Router) {
			r.With(RateLimit(s.limiter)).Post("/file", s.handleUploadFile)
			r.With(RateLimit(s.limiter)).Post("/files", s.handleUploadFiles)
			r.Get("/files", s.handleListUploads)
			r.Delete("/file/{fileID}", s.handleDeleteUpload)
		})

		r.Route("/api/preprocess", func(r chi.Router) {
			r.Get("/steps", s.handlePreprocessSteps)
			r.Post("/process", s.handlePreprocess)
			r.Post("/step/{step}", s.handlePreprocessStep)
			r.Get("/status/{fileID}", s.handlePreprocessStatus)
		})

		r.Route("/api/ocr", func(r chi.Router) {
			r.Get("/languages", s.handleOCRLanguages)
			r.Get("/model-types", s.handleOCRModelTypes)
			r.Post("/recognize", s.handleRecognize)
			r.Get("/result/{fileID}", s.handleOCRResult)
			r.Get("/results", s.handleOCRResults)
			r.Delete("/result/{fileID}", s.handleDeleteOCRResult)
		})

		r.Route("/api/attributes", func(r chi.Router) {
			r.Get("/types", s.handleAttributeTypes)
			r.Post("/extract", s.handleExtractAttributes)
			r.Post("/validate", s.handleValidateAttributes)
			r.Get("/result/{fileID}", s.handleAttributeResult)
			r.Get("/results", s.handleAttributeResults)
			r.Delete("/result/{fileID}", s.handleDeleteAttributeResult)
		})

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Route("/api/report", func(r chi.Router) {
			r.Get("/types", s.handleReportTypes)
			r.Get("/formats", s.handleReportFormats)
			r.Post("/generate", s.handleGenerateReport)
			r.Get("/download/{reportID}", s.handleDownloadReport)
			r.Get("/list", s.handleListReports)
			r.Delete("/{reportID}", s.handleDeleteReport)
		})

		r.Route("/api/stats", func(r chi.Router) {
			r.Get("/overview", s.handleStatsOverview)
			r.Get("/files", s.handleStatsFiles)
			r.Get("/processing", s.handleStatsProcessing)
			r.Get("/ocr", s.handleStatsOCR)
			r.Get("/attributes", s.handleStatsAttributes)
			r.Get("/reports", s.handleStatsReports)
			r.Get("/latency", s.handleStatsLatency)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	areas := s.store.Check()
	status := "ok"
	for _, ok := range areas {
		if !ok {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"storage":     areas,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// fail maps an error from a lower layer onto a status code. Anything not
// recognized is logged and reported as 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, report.ErrInvalidRequest):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON body into v and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
