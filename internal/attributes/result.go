package attributes

import "time"

// Summary counts how many kinds were filled by an extraction.
type Summary struct {
	Total   int           `json:"total_attributes"`
	Filled  int           `json:"filled_attributes"`
	Empty   int           `json:"empty_attributes"`
	PerKind map[Kind]bool `json:"filled"`
}

// Summarize counts filled and empty values in attrs.
func Summarize(attrs Attributes) Summary {
	s := Summary{Total: len(allKinds), PerKind: make(map[Kind]bool, len(allKinds))}
	for _, k := range allKinds {
		filled := attrs[k] != ""
		s.PerKind[k] = filled
		if filled {
			s.Filled++
		} else {
			s.Empty++
		}
	}
	return s
}

// Attribute is the per-kind view of an extraction.
type Attribute struct {
	Kind        Kind         `json:"name"`
	Value       string       `json:"value"`
	Occurrences []Occurrence `json:"occurrences,omitempty"`
	Valid       bool         `json:"validated"`
	Info        TypeInfo     `json:"type_info"`
}

// Result bundles everything the engine produces for one text.
type Result struct {
	Attributes  Attributes `json:"extracted_attributes"`
	Positions   Positions  `json:"attributes_with_positions"`
	Validation  Validation `json:"validation_results"`
	Highlighted string     `json:"highlighted_html"`
	Summary     Summary    `json:"statistics"`
}

// Record is the stored form of a Result for one file.
type Record struct {
	FileID string `json:"file_id"`
	Result
	TextLength  int       `json:"text_length"`
	ExtractedAt time.Time `json:"extraction_time"`
}

// Analyze runs extraction, position tracking, validation and annotation.
func (e *Extractor) Analyze(text string) Result {
	attrs := e.Extract(text)
	pos := e.ExtractWithPositions(text)
	return Result{
		Attributes:  attrs,
		Positions:   pos,
		Validation:  e.Validate(attrs),
		Highlighted: Annotate(text, pos),
		Summary:     Summarize(attrs),
	}
}

// List returns the filled attributes in canonical kind order.
func (r Result) List() []Attribute {
	var out []Attribute
	for _, k := range allKinds {
		v := r.Attributes[k]
		if v == "" {
			continue
		}
		out = append(out, Attribute{
			Kind:        k,
			Value:       v,
			Occurrences: r.Positions[k],
			Valid:       r.Validation[k],
			Info:        k.Info(),
		})
	}
	return out
}

var std = New(nil)

// Extract runs the default extractor. See Extractor.Extract.
func Extract(text string) Attributes { return std.Extract(text) }

// ExtractWithPositions runs the default extractor. See Extractor.ExtractWithPositions.
func ExtractWithPositions(text string) Positions { return std.ExtractWithPositions(text) }

// Validate runs the default extractor. See Extractor.Validate.
func Validate(attrs Attributes) Validation { return std.Validate(attrs) }

// Analyze runs the default extractor. See Extractor.Analyze.
func Analyze(text string) Result { return std.Analyze(text) }
