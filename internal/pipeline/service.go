package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/ocr"
	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
)

// Deps are the collaborators a Service drives. Stats may be nil.
type Deps struct {
	Store        *store.Store
	Preprocessor preprocess.Preprocessor
	Recognizer   ocr.Recognizer
	Extractor    *attributes.Extractor
	Stats        *stats.Aggregator
}

// Service runs each processing stage against stored files. Every stage
// reads its input from the store and writes its output back.
type Service struct {
	store   *store.Store
	pre     preprocess.Preprocessor
	rec     ocr.Recognizer
	ext     *attributes.Extractor
	stats   *stats.Aggregator
	latency *stats.Latency
	log     *slog.Logger

	backoff func(attempt int) time.Duration
	now     func() time.Time
}

func NewService(d Deps, log *slog.Logger) *Service {
	s := &Service{
		store:   d.Store,
		pre:     d.Preprocessor,
		rec:     d.Recognizer,
		ext:     d.Extractor,
		stats:   d.Stats,
		log:     log,
		backoff: Backoff,
		now:     time.Now,
	}
	if s.pre == nil {
		s.pre = preprocess.Passthrough{}
	}
	if s.rec == nil {
		s.rec = ocr.Stub{}
	}
	if s.ext == nil {
		s.ext = attributes.New(nil)
	}
	if s.stats != nil {
		s.latency = s.stats.Latency()
	}
	return s
}

// Extractor returns the attribute engine the service uses.
func (s *Service) Extractor() *attributes.Extractor {
	return s.ext
}

// Preprocessed describes one preprocessing run.
type Preprocessed struct {
	FileID         string            `json:"file_id"`
	OriginalFile   string            `json:"original_file"`
	ProcessedFile  string            `json:"processed_file,omitempty"`
	Steps          []preprocess.Step `json:"processing_steps"`
	Log            []string          `json:"processing_log"`
	ProcessingTime float64           `json:"processing_time"`
	ProcessedAt    time.Time         `json:"processed_at"`
}

// Preprocess applies steps to the uploaded file and stores the output in
// the processed area.
func (s *Service) Preprocess(ctx context.Context, fileID string, steps []preprocess.Step) (*Preprocessed, error) {
	return s.preprocess(ctx, fileID, steps, true)
}

// PreprocessStep runs a single step for inspection. Its output is not kept.
func (s *Service) PreprocessStep(ctx context.Context, fileID string, step preprocess.Step) (*Preprocessed, error) {
	return s.preprocess(ctx, fileID, []preprocess.Step{step}, false)
}

func (s *Service) preprocess(ctx context.Context, fileID string, steps []preprocess.Step, keep bool) (*Preprocessed, error) {
	data, src, err := s.store.Read(store.Uploads, fileID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.pre.Process(ctx, data, steps)
	elapsed := time.Since(start)
	s.latency.Record(stats.StagePreprocess, elapsed)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", src.Name, err)
	}

	out := &Preprocessed{
		FileID:         fileID,
		OriginalFile:   src.Name,
		Steps:          res.Steps,
		Log:            res.Log,
		ProcessingTime: elapsed.Seconds(),
		ProcessedAt:    s.now().UTC(),
	}
	if !keep {
		return out, nil
	}

	e, err := s.store.Put(store.Processed, store.ProcessedName(fileID, filepath.Ext(src.Name), s.now()), res.Data)
	if err != nil {
		return nil, err
	}
	out.ProcessedFile = e.Name
	if s.stats != nil {
		s.stats.RecordSteps(res.Steps)
		s.stats.Invalidate()
	}
	s.log.Info("preprocessed", "file_id", fileID, "steps", len(res.Steps), "output", e.Name)
	return out, nil
}

// PreprocessStatus lists the processed outputs of an uploaded file.
type PreprocessStatus struct {
	FileID         string        `json:"file_id"`
	OriginalFile   string        `json:"original_file"`
	ProcessedFiles []store.Entry `json:"processed_files"`
	Status         string        `json:"processing_status"`
}

func (s *Service) PreprocessStatus(fileID string) (*PreprocessStatus, error) {
	src, err := s.store.Find(store.Uploads, fileID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.List(store.Processed)
	if err != nil {
		return nil, err
	}
	out := &PreprocessStatus{FileID: fileID, OriginalFile: src.Name, ProcessedFiles: []store.Entry{}, Status: "pending"}
	for _, e := range entries {
		if store.IDFromName(e.Name) == fileID {
			out.ProcessedFiles = append(out.ProcessedFiles, e)
		}
	}
	if len(out.ProcessedFiles) > 0 {
		out.Status = "completed"
	}
	return out, nil
}

// Recognized is the outcome of text recognition for one file.
type Recognized struct {
	FileID     string `json:"file_id"`
	SourceFile string `json:"source_file"`
	ocr.Result
	Stats          ocr.TextStats `json:"statistics"`
	ResultFile     string        `json:"result_file"`
	ProcessingTime float64       `json:"processing_time"`
	RecognizedAt   time.Time     `json:"recognized_at"`
}

// Recognize reads the newest processed version of the file, or the upload
// when none exists, and stores the recognized text.
func (s *Service) Recognize(ctx context.Context, fileID string, lang ocr.Language, model ocr.ModelType) (*Recognized, error) {
	src, err := s.source(fileID)
	if err != nil {
		return nil, err
	}
	data, err := s.store.ReadEntry(src)
	if err != nil {
		return nil, err
	}

	log := s.log.With("file_id", fileID, "source", src.Name)
	start := time.Now()
	res, err := s.recognize(ctx, log, ocr.Input{Filename: src.Name, Data: data, Language: lang, Model: model})
	elapsed := time.Since(start)
	s.latency.Record(stats.StageRecognize, elapsed)
	if err != nil {
		return nil, err
	}

	e, err := s.store.Put(store.OCRResults, store.OCRResultName(fileID, s.now()), []byte(res.Text))
	if err != nil {
		return nil, err
	}
	s.invalidate()
	log.Info("recognized", "source_kind", res.Source, "text_length", utf8.RuneCountInString(res.Text))

	return &Recognized{
		FileID:         fileID,
		SourceFile:     src.Name,
		Result:         *res,
		Stats:          ocr.Stats(res.Text),
		ResultFile:     e.Name,
		ProcessingTime: elapsed.Seconds(),
		RecognizedAt:   s.now().UTC(),
	}, nil
}

func (s *Service) source(fileID string) (store.Entry, error) {
	e, err := s.store.FindLatest(store.Processed, fileID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Entry{}, err
	}
	return s.store.Find(store.Uploads, fileID)
}

func (s *Service) recognize(ctx context.Context, log *slog.Logger, in ocr.Input) (*ocr.Result, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		res, err := s.rec.Recognize(ctx, in)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		log.Warn("retryable recognition error", "attempt", attempt, "error", err)
		select {
		case <-time.After(s.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("recognize %s: %w", in.Filename, lastErr)
}

// OCRText returns the newest recognized text for a file.
func (s *Service) OCRText(fileID string) (string, store.Entry, error) {
	e, err := s.store.FindLatest(store.OCRResults, fileID)
	if err != nil {
		return "", store.Entry{}, err
	}
	data, err := s.store.ReadEntry(e)
	if err != nil {
		return "", store.Entry{}, err
	}
	return string(data), e, nil
}

// Extracted is a stored attribute record plus the views the API returns.
type Extracted struct {
	attributes.Record
	SourceText     string                 `json:"source_text"`
	List           []attributes.Attribute `json:"attributes_list"`
	ResultFile     string                 `json:"result_file,omitempty"`
	ProcessingTime float64                `json:"processing_time"`
}

// ExtractAttributes analyzes text, or the newest recognized text of fileID
// when text is empty, and stores the record when fileID is set.
func (s *Service) ExtractAttributes(ctx context.Context, fileID, text string) (*Extracted, error) {
	if text == "" {
		var err error
		if text, _, err = s.OCRText(fileID); err != nil {
			return nil, fmt.Errorf("recognized text for %q: %w", fileID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := s.ext.Analyze(text)
	elapsed := time.Since(start)
	s.latency.Record(stats.StageExtract, elapsed)

	out := &Extracted{
		Record: attributes.Record{
			FileID:      fileID,
			Result:      res,
			TextLength:  utf8.RuneCountInString(text),
			ExtractedAt: s.now().UTC(),
		},
		SourceText:     text,
		List:           res.List(),
		ProcessingTime: elapsed.Seconds(),
	}
	if out.List == nil {
		out.List = []attributes.Attribute{}
	}
	if fileID == "" {
		return out, nil
	}

	data, err := json.MarshalIndent(out.Record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	e, err := s.store.Put(store.AttributeResults, store.AttributeResultName(fileID, s.now()), data)
	if err != nil {
		return nil, err
	}
	out.ResultFile = e.Name
	s.invalidate()
	s.log.Info("attributes extracted", "file_id", fileID, "filled", res.Summary.Filled)
	return out, nil
}

// AttributeRecord loads the newest stored attribute record for a file.
func (s *Service) AttributeRecord(fileID string) (*attributes.Record, store.Entry, error) {
	e, err := s.store.FindLatest(store.AttributeResults, fileID)
	if err != nil {
		return nil, store.Entry{}, err
	}
	data, err := s.store.ReadEntry(e)
	if err != nil {
		return nil, store.Entry{}, err
	}
	var rec attributes.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, store.Entry{}, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	return &rec, e, nil
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}
