package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/archindex/internal/parser"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/go-chi/chi/v5"
)

// imageExtensions are scans accepted for recognition. Born-digital
// formats are accepted through the parser set.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tiff": true, ".tif": true, ".bmp": true,
}

func allowedExtensions() []string {
	seen := make(map[string]bool)
	var out []string
	for ext := range imageExtensions {
		seen[ext] = true
		out = append(out, ext)
	}
	for ext := range parser.SupportedExtensions {
		if !seen[ext] {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

func allowedUpload(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))] || parser.IsSupportedExtension(filename)
}

type uploaded struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	StoredAs   string    `json:"stored_as"`
	Size       int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// uploadError is a rejected upload and the status to report it with.
type uploadError struct {
	code int
	msg  string
}

func (e *uploadError) Error() string { return e.msg }

func rejectUpload(code int, format string, args ...any) error {
	return &uploadError{code: code, msg: fmt.Sprintf(format, args...)}
}

// saveUpload validates and stores one multipart file.
func (s *Server) saveUpload(fh *multipart.FileHeader) (*uploaded, error) {
	filename := sanitizeFilename(fh.Filename)
	if !allowedUpload(filename) {
		return nil, rejectUpload(http.StatusBadRequest, "unsupported file type: %q (allowed: %s)", filepath.Ext(filename), strings.Join(allowedExtensions(), ", "))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, rejectUpload(http.StatusBadRequest, "failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, rejectUpload(http.StatusBadRequest, "failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, rejectUpload(http.StatusRequestEntityTooLarge, "file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}

	id := store.NewFileID()
	e, err := s.store.Put(store.Uploads, store.UploadName(id, filepath.Ext(filename)), data)
	if err != nil {
		return nil, err
	}
	s.stats.Invalidate()
	s.log.Info("file uploaded", "file_id", id, "filename", filename, "bytes", e.Size)
	return &uploaded{FileID: id, Filename: filename, StoredAs: e.Name, Size: e.Size, UploadedAt: e.ModTime.UTC()}, nil
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	up, err := s.saveUpload(fhs[0])
	if err != nil {
		var rejected *uploadError
		if errors.As(err, &rejected) {
			jsonError(w, rejected.msg, rejected.code)
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxBatchFiles)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*limit+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.MaxBatchFiles {
		jsonError(w, fmt.Sprintf("at most %d files per batch", s.cfg.MaxBatchFiles), http.StatusBadRequest)
		return
	}

	ok := []*uploaded{}
	failed := []uploadFailure{}
	for _, fh := range files {
		up, err := s.saveUpload(fh)
		if err != nil {
			failed = append(failed, uploadFailure{Filename: sanitizeFilename(fh.Filename), Error: err.Error()})
			continue
		}
		ok = append(ok, up)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploaded_files": ok,
		"errors":         failed,
		"total_uploaded": len(ok),
		"total_errors":   len(failed),
	})
}

type fileListing struct {
	FileID string `json:"file_id"`
	store.Entry
}

func (s *Server) listArea(w http.ResponseWriter, r *http.Request, area store.Area) {
	entries, err := s.store.List(area)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]fileListing, 0, len(entries))
	for _, e := range entries {
		out = append(out, fileListing{FileID: store.IDFromName(e.Name), Entry: e})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out, "total": len(out)})
}

func (s *Server) deleteFromArea(w http.ResponseWriter, r *http.Request, area store.Area) {
	fileID := chi.URLParam(r, "fileID")
	e, err := s.store.Delete(area, fileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.stats.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"file_id": fileID, "deleted": e.Name})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	s.listArea(w, r, store.Uploads)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	s.deleteFromArea(w, r, store.Uploads)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
