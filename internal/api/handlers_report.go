package api

import (
	"fmt"
	"net/http"

	"github.com/dgallion1/archindex/internal/report"
	"github.com/go-chi/chi/v5"
)

// reportRequest mirrors report.Request with inclusion flags that default
// to true when omitted.
type reportRequest struct {
	FileIDs           []string      `json:"file_ids"`
	Type              report.Type   `json:"report_type"`
	Format            report.Format `json:"format"`
	IncludeOCRText    *bool         `json:"include_ocr_text"`
	IncludeAttributes *bool         `json:"include_attributes"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Server) handleReportTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"report_types": report.Types()})
}

func (s *Server) handleReportFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"report_formats": report.Formats()})
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	meta, err := s.reports.Generate(r.Context(), report.Request{
		FileIDs:           req.FileIDs,
		Type:              req.Type,
		Format:            req.Format,
		IncludeOCRText:    boolOr(req.IncludeOCRText, true),
		IncludeAttributes: boolOr(req.IncludeAttributes, true),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	data, meta, err := s.reports.Open(chi.URLParam(r, "reportID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType(meta.Filename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.reports.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list, "total": len(list)})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	meta, err := s.reports.Delete(chi.URLParam(r, "reportID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report_id": meta.ID, "deleted": meta.Filename})
}
