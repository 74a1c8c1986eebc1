package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/store"
	"golang.org/x/sync/errgroup"
)

// FileData is everything a report knows about one file. Missing artifacts
// stay nil.
type FileData struct {
	FileID         string             `json:"file_id"`
	OriginalFile   *store.Entry       `json:"original_file"`
	ProcessedFile  *store.Entry       `json:"processed_file"`
	OCRText        string             `json:"ocr_text,omitempty"`
	OCRResultFile  string             `json:"ocr_result_file,omitempty"`
	Attributes     *attributes.Record `json:"attributes"`
	AttributesFile string             `json:"attributes_file,omitempty"`
}

func (f FileData) found() bool {
	return f.OriginalFile != nil || f.ProcessedFile != nil || f.OCRResultFile != "" || f.Attributes != nil
}

func (a *Assembler) collect(ctx context.Context, req Request) ([]FileData, error) {
	out := make([]FileData, len(req.FileIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, id := range req.FileIDs {
		i, id := i, id
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			fd, err := a.collectFile(id, req)
			if err != nil {
				return fmt.Errorf("file %s: %w", id, err)
			}
			out[i] = fd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// collectFile gathers the newest artifact of each kind. Only I/O failures
// are errors; a file that was never processed yields empty fields.
func (a *Assembler) collectFile(id string, req Request) (FileData, error) {
	fd := FileData{FileID: id}

	if e, err := a.store.Find(store.Uploads, id); err == nil {
		fd.OriginalFile = &e
	} else if !missing(err) {
		return fd, err
	}
	if e, err := a.store.FindLatest(store.Processed, id); err == nil {
		fd.ProcessedFile = &e
	} else if !missing(err) {
		return fd, err
	}

	if req.IncludeOCRText || req.Type == Detailed {
		if e, err := a.store.FindLatest(store.OCRResults, id); err == nil {
			text, err := a.store.ReadEntry(e)
			if err != nil {
				return fd, err
			}
			fd.OCRText = string(text)
			fd.OCRResultFile = e.Name
		} else if !missing(err) {
			return fd, err
		}
	}

	if req.IncludeAttributes || req.Type != Standard {
		if e, err := a.store.FindLatest(store.AttributeResults, id); err == nil {
			raw, err := a.store.ReadEntry(e)
			if err != nil {
				return fd, err
			}
			var rec attributes.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				a.log.Warn("skipping unreadable attribute result", "file", e.Name, "error", err)
			} else {
				fd.Attributes = &rec
				fd.AttributesFile = e.Name
			}
		} else if !missing(err) {
			return fd, err
		}
	}
	return fd, nil
}

func missing(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
