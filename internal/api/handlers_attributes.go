package api

import (
	"net/http"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/go-chi/chi/v5"
)

type extractRequest struct {
	FileID string `json:"file_id"`
	Text   string `json:"text"`
}

func (s *Server) handleAttributeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"attribute_types": attributes.Types()})
}

// handleExtractAttributes analyzes the posted text, or the stored OCR text
// of file_id when no text is posted. A text without matches is still a 200.
func (s *Server) handleExtractAttributes(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FileID == "" && req.Text == "" {
		jsonError(w, "file_id or text is required", http.StatusBadRequest)
		return
	}

	out, err := s.svc.ExtractAttributes(r.Context(), req.FileID, req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleValidateAttributes(w http.ResponseWriter, r *http.Request) {
	var raw map[string]string
	if !decodeJSON(w, r, &raw) {
		return
	}
	attrs := make(attributes.Attributes, len(raw))
	for name, v := range raw {
		k, err := attributes.ParseKind(name)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		attrs[k] = v
	}

	res := s.svc.Extractor().Validate(attrs)
	allValid := true
	for _, ok := range res {
		allValid = allValid && ok
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"validation_results": res,
		"all_valid":          allValid,
	})
}

func (s *Server) handleAttributeResult(w http.ResponseWriter, r *http.Request) {
	rec, e, err := s.svc.AttributeRecord(chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result_file":     e.Name,
		"attributes_list": nonNil(rec.List()),
		"record":          rec,
	})
}

func nonNil(list []attributes.Attribute) []attributes.Attribute {
	if list == nil {
		return []attributes.Attribute{}
	}
	return list
}

func (s *Server) handleAttributeResults(w http.ResponseWriter, r *http.Request) {
	s.listArea(w, r, store.AttributeResults)
}

func (s *Server) handleDeleteAttributeResult(w http.ResponseWriter, r *http.Request) {
	s.deleteFromArea(w, r, store.AttributeResults)
}
