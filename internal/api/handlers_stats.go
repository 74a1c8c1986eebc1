package api

import (
	"net/http"
)

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.stats.Overview()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"overview":    ov,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

// section serves one statistics section computed on demand.
func section[T any](s *Server, compute func() (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := compute()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleStatsFiles(w http.ResponseWriter, r *http.Request) {
	section(s, s.stats.Files)(w, r)
}

func (s *Server) handleStatsProcessing(w http.ResponseWriter, r *http.Request) {
	section(s, s.stats.Processing)(w, r)
}

func (s *Server) handleStatsOCR(w http.ResponseWriter, r *http.Request) {
	section(s, s.stats.OCR)(w, r)
}

func (s *Server) handleStatsAttributes(w http.ResponseWriter, r *http.Request) {
	section(s, s.stats.Attributes)(w, r)
}

func (s *Server) handleStatsReports(w http.ResponseWriter, r *http.Request) {
	section(s, s.stats.Reports)(w, r)
}

func (s *Server) handleStatsLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stages": s.stats.Latency().Snapshot()})
}
