package api

import (
	"net/http"

	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/go-chi/chi/v5"
)

type preprocessRequest struct {
	FileID string   `json:"file_id"`
	Steps  []string `json:"steps"`
}

func (s *Server) handlePreprocessSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"steps":         preprocess.Steps(),
		"default_steps": preprocess.DefaultSteps,
	})
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	var req preprocessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FileID == "" {
		jsonError(w, "file_id is required", http.StatusBadRequest)
		return
	}
	steps, err := preprocess.ParseSteps(req.Steps)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.svc.Preprocess(r.Context(), req.FileID, steps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePreprocessStep(w http.ResponseWriter, r *http.Request) {
	steps, err := preprocess.ParseSteps([]string{chi.URLParam(r, "step")})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req preprocessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FileID == "" {
		jsonError(w, "file_id is required", http.StatusBadRequest)
		return
	}

	out, err := s.svc.PreprocessStep(r.Context(), req.FileID, steps[0])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePreprocessStatus(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.PreprocessStatus(chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
