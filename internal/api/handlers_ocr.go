package api

import (
	"net/http"

	"github.com/dgallion1/archindex/internal/ocr"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/go-chi/chi/v5"
)

type recognizeRequest struct {
	FileID    string `json:"file_id"`
	Language  string `json:"language"`
	ModelType string `json:"model_type"`
}

func (s *Server) handleOCRLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": ocr.Languages(), "default": s.cfg.OCRLanguage})
}

func (s *Server) handleOCRModelTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"model_types": ocr.ModelTypes(), "default": s.cfg.OCRModel})
}

// recognitionParams resolves language and model, falling back to the
// configured defaults.
func (s *Server) recognitionParams(language, model string) (ocr.Language, ocr.ModelType, error) {
	if language == "" {
		language = s.cfg.OCRLanguage
	}
	if model == "" {
		model = s.cfg.OCRModel
	}
	lang, err := ocr.ParseLanguage(language)
	if err != nil {
		return "", "", err
	}
	mt, err := ocr.ParseModelType(model)
	if err != nil {
		return "", "", err
	}
	return lang, mt, nil
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
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

	out, err := s.svc.Recognize(r.Context(), req.FileID, lang, model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOCRResult(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	text, e, err := s.svc.OCRText(fileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id":         fileID,
		"result_file":     e.Name,
		"recognized_text": text,
		"statistics":      ocr.Stats(text),
		"modified_time":   e.ModTime.UTC(),
	})
}

func (s *Server) handleOCRResults(w http.ResponseWriter, r *http.Request) {
	s.listArea(w, r, store.OCRResults)
}

func (s *Server) handleDeleteOCRResult(w http.ResponseWriter, r *http.Request) {
	s.deleteFromArea(w, r, store.OCRResults)
}
