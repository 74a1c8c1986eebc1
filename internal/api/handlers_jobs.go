package api

import (
	"fmt"
	"net/http"

	"github.com/dgallion1/archindex/internal/pipeline"
	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/go-chi/chi/v5"
)

type jobRequest struct {
	FileID    string   `json:"file_id"`
	Language  string   `json:"language"`
	ModelType string   `json:"model_type"`
	Steps     []string `json:"steps"`
}

// handleSubmitJob queues the full preprocess, recognize and extract
// pipeline for an uploaded file.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FileID == "" {
		jsonError(w, "file_id is required", http.StatusBadRequest)
		return
	}
	lang, model, err := s.recognitionParams(req.Language, req.ModelType)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	steps, err := preprocess.ParseSteps(req.Steps)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	src, err := s.store.Find(store.Uploads, req.FileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	job := pipeline.NewJob(req.FileID, src.Name, lang, model, steps)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"file_id":  job.FileID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
