package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Worker processes a single file job.
type Worker struct {
	svc *Service
	log *slog.Logger
}

func NewWorker(svc *Service, log *slog.Logger) *Worker {
	return &Worker{svc: svc, log: log}
}

// Process runs the full pipeline for a job. Each stage reads the previous
// stage's stored output.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file_id", job.FileID)

	// Phase 1: Preprocess
	job.SetStatus(StatusPreprocessing, "preprocessing")
	pre, err := w.svc.Preprocess(ctx, job.FileID, job.Steps)
	if err != nil {
		log.Error("preprocess failed", "error", err)
		job.AddError(fmt.Sprintf("preprocess: %s", err))
		job.SetStatus(StatusFailed, "preprocessing")
		return
	}
	job.setFile(func(a *Artifacts) { a.Processed = pre.ProcessedFile })

	// Phase 2: Recognize
	job.SetStatus(StatusRecognizing, "recognizing")
	rec, err := w.svc.Recognize(ctx, job.FileID, job.Language, job.Model)
	if err != nil {
		log.Error("recognition failed", "error", err)
		job.AddError(fmt.Sprintf("recognize: %s", err))
		job.SetStatus(StatusFailed, "recognizing")
		return
	}
	job.setFile(func(a *Artifacts) { a.OCRResult = rec.ResultFile })
	job.SetTextLength(rec.Stats.TextLength)
	if rec.Text == "" {
		log.Warn("no text recognized")
	}

	// Phase 3: Extract attributes
	job.SetStatus(StatusExtracting, "extracting")
	ext, err := w.svc.ExtractAttributes(ctx, job.FileID, rec.Text)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.setFile(func(a *Artifacts) { a.Attributes = ext.ResultFile })

	valid := 0
	for _, a := range ext.List {
		if a.Valid {
			valid++
		}
	}
	job.SetAttributes(len(ext.List), valid)
	log.Info("job complete", "attributes", len(ext.List), "valid", valid)
	job.SetStatus(StatusCompleted, "done")
}
