// Package report assembles stored per-file results into downloadable
// reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
)

type Type string

const (
	Standard Type = "standard"
	Detailed Type = "detailed"
	Summary  Type = "summary"
	Archive  Type = "archive"
)

type Format string

const (
	JSON Format = "json"
	HTML Format = "html"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
	XML  Format = "xml"
)

// TypeInfo describes a report type for API consumers.
type TypeInfo struct {
	Code        Type   `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FormatInfo describes an output format.
type FormatInfo struct {
	Code        Format `json:"code"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

var types = []TypeInfo{
	{Standard, "Стандартный отчёт", "Базовый отчёт с основными данными документа"},
	{Detailed, "Детальный отчёт", "Подробный отчёт со всеми этапами обработки"},
	{Summary, "Сводный отчёт", "Краткий отчёт с ключевыми данными"},
	{Archive, "Архивный отчёт", "Отчёт в формате для архивного хранения"},
}

var formats = []FormatInfo{
	{JSON, "JSON", "application/json"},
	{HTML, "HTML", "text/html; charset=utf-8"},
	{CSV, "CSV", "text/csv; charset=utf-8"},
	{XLSX, "Excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	{PDF, "PDF", "application/pdf"},
	{XML, "XML", "application/xml"},
}

func Types() []TypeInfo     { return append([]TypeInfo(nil), types...) }
func Formats() []FormatInfo { return append([]FormatInfo(nil), formats...) }

// ContentType returns the media type for a stored report name.
func ContentType(name string) string {
	ext := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."))
	for _, f := range formats {
		if f.Code == ext {
			return f.ContentType
		}
	}
	return "application/octet-stream"
}

// ErrInvalidRequest marks a request the caller must fix.
var ErrInvalidRequest = errors.New("invalid report request")

// Request selects files and the shape of the report.
type Request struct {
	FileIDs           []string `json:"file_ids"`
	Type              Type     `json:"report_type"`
	Format            Format   `json:"format"`
	IncludeOCRText    bool     `json:"include_ocr_text"`
	IncludeAttributes bool     `json:"include_attributes"`
}

func (r *Request) normalize(maxFiles int) error {
	if r.Type == "" {
		r.Type = Standard
	}
	if r.Format == "" {
		r.Format = JSON
	}
	if !validType(r.Type) {
		return fmt.Errorf("%w: unsupported report type %q", ErrInvalidRequest, r.Type)
	}
	if !validFormat(r.Format) {
		return fmt.Errorf("%w: unsupported report format %q", ErrInvalidRequest, r.Format)
	}
	if len(r.FileIDs) == 0 {
		return fmt.Errorf("%w: no files selected", ErrInvalidRequest)
	}
	if maxFiles > 0 && len(r.FileIDs) > maxFiles {
		return fmt.Errorf("%w: at most %d files per report", ErrInvalidRequest, maxFiles)
	}
	for _, id := range r.FileIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty file id", ErrInvalidRequest)
		}
	}
	return nil
}

func validType(t Type) bool {
	for _, i := range types {
		if i.Code == t {
			return true
		}
	}
	return false
}

func validFormat(f Format) bool {
	for _, i := range formats {
		if i.Code == f {
			return true
		}
	}
	return false
}

// Info heads every report.
type Info struct {
	Type        Type      `json:"type" xml:"type,attr"`
	Format      Format    `json:"format" xml:"format,attr"`
	GeneratedAt time.Time `json:"generated_at" xml:"generated_at,attr"`
	TotalFiles  int       `json:"total_files" xml:"total_files,attr"`
}

// Data is the collected content of a report before rendering.
type Data struct {
	Info  Info       `json:"report_info"`
	Files []FileData `json:"files"`
}

// Meta describes a generated report.
type Meta struct {
	ID             string    `json:"report_id"`
	Type           Type      `json:"report_type"`
	Format         Format    `json:"report_format"`
	Filename       string    `json:"filename"`
	Size           int64     `json:"file_size"`
	TotalFiles     int       `json:"total_files"`
	ProcessedFiles int       `json:"processed_files"`
	ProcessingTime float64   `json:"processing_time"`
	GeneratedAt    time.Time `json:"generated_at"`
	Data           *Data     `json:"report_data,omitempty"`
}

// Options tune an Assembler. Zero values select defaults.
type Options struct {
	MaxFiles    int
	Concurrency int
}

// Assembler builds reports from the artifacts in a store.
type Assembler struct {
	store *store.Store
	stats *stats.Aggregator
	log   *slog.Logger
	opts  Options
	now   func() time.Time
}

// NewAssembler returns an Assembler. agg may be nil.
func NewAssembler(st *store.Store, agg *stats.Aggregator, opts Options, log *slog.Logger) *Assembler {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Assembler{store: st, stats: agg, log: log, opts: opts, now: time.Now}
}

// Generate collects data for every requested file, renders it and stores
// the result in the reports area.
func (a *Assembler) Generate(ctx context.Context, req Request) (*Meta, error) {
	if err := req.normalize(a.opts.MaxFiles); err != nil {
		return nil, err
	}
	start := time.Now()
	at := a.now()

	files, err := a.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	data := &Data{
		Info:  Info{Type: req.Type, Format: req.Format, GeneratedAt: at.UTC(), TotalFiles: len(req.FileIDs)},
		Files: files,
	}
	shape(data)

	body, err := render(data, req)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", req.Format, err)
	}
	e, err := a.store.Put(store.Reports, store.ReportName(string(req.Type), string(req.Format), at), body)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if a.stats != nil {
		a.stats.Latency().Record(stats.StageReport, elapsed)
		a.stats.Invalidate()
	}

	processed := 0
	for _, f := range files {
		if f.found() {
			processed++
		}
	}
	a.log.Info("report generated", "report", e.Name, "files", len(files), "elapsed_ms", elapsed.Milliseconds())
	return &Meta{
		ID:             reportID(e.Name),
		Type:           req.Type,
		Format:         req.Format,
		Filename:       e.Name,
		Size:           e.Size,
		TotalFiles:     len(req.FileIDs),
		ProcessedFiles: processed,
		ProcessingTime: elapsed.Seconds(),
		GeneratedAt:    at.UTC(),
		Data:           data,
	}, nil
}

// List returns every stored report, oldest name first.
func (a *Assembler) List() ([]Meta, error) {
	entries, err := a.store.List(store.Reports)
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(entries))
	for _, e := range entries {
		out = append(out, metaFromEntry(e))
	}
	return out, nil
}

// Open returns the bytes of a stored report.
func (a *Assembler) Open(id string) ([]byte, Meta, error) {
	data, e, err := a.store.Read(store.Reports, id)
	if err != nil {
		return nil, Meta{}, err
	}
	return data, metaFromEntry(e), nil
}

// Delete removes a stored report.
func (a *Assembler) Delete(id string) (Meta, error) {
	e, err := a.store.Delete(store.Reports, id)
	if err != nil {
		return Meta{}, err
	}
	if a.stats != nil {
		a.stats.Invalidate()
	}
	return metaFromEntry(e), nil
}

func reportID(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// metaFromEntry parses "report_<type>_<unix>.<ext>".
func metaFromEntry(e store.Entry) Meta {
	m := Meta{ID: reportID(e.Name), Filename: e.Name, Size: e.Size, GeneratedAt: e.ModTime.UTC()}
	m.Format = Format(strings.TrimPrefix(filepath.Ext(e.Name), "."))
	rest := strings.TrimPrefix(m.ID, "report_")
	if i := strings.LastIndexByte(rest, '_'); i > 0 {
		m.Type = Type(rest[:i])
	} else {
		m.Type = "unknown"
	}
	return m
}
