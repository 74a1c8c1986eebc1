// Package stats reports usage figures computed from stored artifacts and
// recent stage latencies.
package stats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/dgallion1/archindex/internal/store"
	gocache "github.com/patrickmn/go-cache"
)

type FileStats struct {
	TotalFiles  int            `json:"total_files"`
	TotalSize   int64          `json:"total_size"`
	ByExtension map[string]int `json:"by_extension"`
}

type ProcessingStats struct {
	ProcessedFiles int                     `json:"processed_files"`
	TotalSize      int64                   `json:"total_size"`
	StepCounts     map[preprocess.Step]int `json:"step_counts"`
}

type OCRStats struct {
	TotalResults    int     `json:"total_results"`
	TotalTextLength int     `json:"total_text_length"`
	AvgTextLength   float64 `json:"avg_text_length"`
}

type AttributeStats struct {
	TotalExtractions int                     `json:"total_extractions"`
	ByKind           map[attributes.Kind]int `json:"by_kind"`
	Valid            int                     `json:"valid"`
	Invalid          int                     `json:"invalid"`
	Unreadable       int                     `json:"unreadable"`
}

type ReportStats struct {
	TotalReports int            `json:"total_reports"`
	TotalSize    int64          `json:"total_size"`
	ByType       map[string]int `json:"by_type"`
	ByFormat     map[string]int `json:"by_format"`
}

// Overview bundles every section.
type Overview struct {
	Files       FileStats          `json:"files"`
	Processing  ProcessingStats    `json:"processing"`
	OCR         OCRStats           `json:"ocr"`
	Attributes  AttributeStats     `json:"attributes"`
	Reports     ReportStats        `json:"reports"`
	Latency     map[Stage]Snapshot `json:"latency"`
	GeneratedAt time.Time          `json:"generated_at"`
}

const overviewKey = "overview"

// Aggregator computes statistics from the store. Overview results are
// cached for the configured TTL.
type Aggregator struct {
	store   *store.Store
	latency *Latency
	cache   *gocache.Cache

	mu    sync.Mutex
	steps map[preprocess.Step]int
}

func NewAggregator(st *store.Store, latency *Latency, ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Aggregator{
		store:   st,
		latency: latency,
		cache:   gocache.New(ttl, 2*ttl),
		steps:   make(map[preprocess.Step]int),
	}
}

// Latency returns the latency tracker the aggregator reports on.
func (a *Aggregator) Latency() *Latency {
	return a.latency
}

// RecordSteps counts preprocessing steps as they run. Processed files do
// not record which steps produced them.
func (a *Aggregator) RecordSteps(steps []preprocess.Step) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range steps {
		a.steps[s]++
	}
}

// Invalidate drops the cached overview.
func (a *Aggregator) Invalidate() {
	a.cache.Delete(overviewKey)
}

// Overview returns all sections, from cache when fresh.
func (a *Aggregator) Overview() (Overview, error) {
	if v, ok := a.cache.Get(overviewKey); ok {
		return v.(Overview), nil
	}

	var (
		ov  Overview
		err error
	)
	if ov.Files, err = a.Files(); err != nil {
		return Overview{}, err
	}
	if ov.Processing, err = a.Processing(); err != nil {
		return Overview{}, err
	}
	if ov.OCR, err = a.OCR(); err != nil {
		return Overview{}, err
	}
	if ov.Attributes, err = a.Attributes(); err != nil {
		return Overview{}, err
	}
	if ov.Reports, err = a.Reports(); err != nil {
		return Overview{}, err
	}
	ov.Latency = a.latency.Snapshot()
	ov.GeneratedAt = time.Now().UTC()

	a.cache.SetDefault(overviewKey, ov)
	return ov, nil
}

func (a *Aggregator) Files() (FileStats, error) {
	entries, err := a.store.List(store.Uploads)
	if err != nil {
		return FileStats{}, err
	}
	out := FileStats{ByExtension: make(map[string]int)}
	for _, e := range entries {
		out.TotalFiles++
		out.TotalSize += e.Size
		ext := strings.ToLower(filepath.Ext(e.Name))
		if ext == "" {
			ext = "none"
		}
		out.ByExtension[ext]++
	}
	return out, nil
}

func (a *Aggregator) Processing() (ProcessingStats, error) {
	entries, err := a.store.List(store.Processed)
	if err != nil {
		return ProcessingStats{}, err
	}
	out := ProcessingStats{StepCounts: make(map[preprocess.Step]int)}
	for _, e := range entries {
		out.ProcessedFiles++
		out.TotalSize += e.Size
	}
	a.mu.Lock()
	for k, v := range a.steps {
		out.StepCounts[k] = v
	}
	a.mu.Unlock()
	return out, nil
}

func (a *Aggregator) OCR() (OCRStats, error) {
	entries, err := a.store.List(store.OCRResults)
	if err != nil {
		return OCRStats{}, err
	}
	var out OCRStats
	for _, e := range entries {
		data, err := a.store.ReadEntry(e)
		if err != nil {
			return OCRStats{}, err
		}
		out.TotalResults++
		out.TotalTextLength += utf8.RuneCount(data)
	}
	if out.TotalResults > 0 {
		out.AvgTextLength = float64(out.TotalTextLength) / float64(out.TotalResults)
	}
	return out, nil
}

// Attributes counts filled kinds across stored results. Validity is
// counted only for filled kinds, since an empty value always validates.
func (a *Aggregator) Attributes() (AttributeStats, error) {
	entries, err := a.store.List(store.AttributeResults)
	if err != nil {
		return AttributeStats{}, err
	}
	out := AttributeStats{ByKind: make(map[attributes.Kind]int)}
	for _, k := range attributes.Kinds() {
		out.ByKind[k] = 0
	}
	for _, e := range entries {
		data, err := a.store.ReadEntry(e)
		if err != nil {
			return AttributeStats{}, err
		}
		var rec attributes.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			out.Unreadable++
			continue
		}
		out.TotalExtractions++
		for k, v := range rec.Attributes {
			if v == "" {
				continue
			}
			out.ByKind[k]++
			if valid, ok := rec.Validation[k]; ok {
				if valid {
					out.Valid++
				} else {
					out.Invalid++
				}
			}
		}
	}
	return out, nil
}

func (a *Aggregator) Reports() (ReportStats, error) {
	entries, err := a.store.List(store.Reports)
	if err != nil {
		return ReportStats{}, err
	}
	out := ReportStats{ByType: make(map[string]int), ByFormat: make(map[string]int)}
	for _, e := range entries {
		out.TotalReports++
		out.TotalSize += e.Size
		typ, format := reportKind(e.Name)
		out.ByType[typ]++
		out.ByFormat[format]++
	}
	return out, nil
}

// reportKind splits "report_<type>_<unix>.<ext>".
func reportKind(name string) (typ, format string) {
	format = strings.TrimPrefix(filepath.Ext(name), ".")
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimPrefix(base, "report_")
	if i := strings.LastIndexByte(base, '_'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "unknown"
	}
	if format == "" {
		format = "unknown"
	}
	return base, format
}

func (o Overview) String() string {
	return fmt.Sprintf("files=%d processed=%d ocr=%d extractions=%d reports=%d",
		o.Files.TotalFiles, o.Processing.ProcessedFiles, o.OCR.TotalResults, o.Attributes.TotalExtractions, o.Reports.TotalReports)
}
