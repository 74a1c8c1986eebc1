package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/archindex/internal/parser"
)

// Document reads the text layer of born-digital files and hands everything
// else, including PDFs without a text layer, to Fallback.
type Document struct {
	Parsers  parser.Options
	Fallback Recognizer
}

func (d *Document) Recognize(ctx context.Context, in Input) (*Result, error) {
	if parser.IsSupportedExtension(in.Filename) {
		text, err := d.textLayer(in)
		if err != nil {
			return nil, err
		}
		if text != "" {
			return &Result{Text: text, Source: SourceTextLayer, Language: in.Language, Model: in.Model, Confidence: 1}, nil
		}
	}
	if d.Fallback == nil {
		return nil, fmt.Errorf("no recognizer for %q", in.Filename)
	}
	return d.Fallback.Recognize(ctx, in)
}

func (d *Document) textLayer(in Input) (string, error) {
	p, err := d.Parsers.ForFile(in.Filename)
	if err != nil {
		return "", err
	}
	tree, err := p.Parse(bytes.NewReader(in.Data), in.Filename)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", in.Filename, err)
	}
	return strings.TrimSpace(tree.Text()), nil
}
