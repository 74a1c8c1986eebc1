package attributes

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Attributes maps every kind to its extracted value. An empty string means
// nothing was found; every kind is always present.
type Attributes map[Kind]string

// Occurrence is one located match. Start and End are rune offsets into the
// source text, half-open.
type Occurrence struct {
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Positions maps every kind to its occurrences. Kinds without positional
// support map to an empty slice.
type Positions map[Kind][]Occurrence

// Extractor runs a Bank against text. The zero value is not usable; see New.
type Extractor struct {
	bank *Bank
}

// New returns an Extractor backed by bank, or by the default bank when nil.
func New(bank *Bank) *Extractor {
	if bank == nil {
		bank = defaultBank
	}
	return &Extractor{bank: bank}
}

// Bank returns the pattern bank the extractor uses.
func (e *Extractor) Bank() *Bank {
	return e.bank
}

// Extract returns the first match of each kind in rule order. ArchiveCode
// instead collects every match of every rule, joined with ", ", because a
// single citation is made of several parts (fund, inventory, case).
func (e *Extractor) Extract(text string) Attributes {
	out := make(Attributes, len(allKinds))
	for _, k := range allKinds {
		if k == ArchiveCode {
			out[k] = e.collectAll(k, text)
			continue
		}
		out[k] = e.firstMatch(k, text)
	}
	return out
}

func (e *Extractor) firstMatch(kind Kind, text string) string {
	for _, r := range e.bank.Rules(kind) {
		loc := r.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if v := strings.TrimSpace(text[loc[0]:loc[1]]); v != "" {
			return v
		}
	}
	return ""
}

// collectAll keeps duplicates: the same fund cited twice is reported twice.
func (e *Extractor) collectAll(kind Kind, text string) string {
	var parts []string
	for _, r := range e.bank.Rules(kind) {
		for _, m := range r.re.FindAllString(text, -1) {
			if v := strings.TrimSpace(m); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, ", ")
}

// ExtractWithPositions scans text with every rule of each positional kind.
// Occurrences are grouped by rule: all matches of the first rule come
// before any match of the second, regardless of where they sit in the text.
func (e *Extractor) ExtractWithPositions(text string) Positions {
	out := make(Positions, len(allKinds))
	for _, k := range allKinds {
		occ := []Occurrence{}
		if k.Positional() {
			for _, r := range e.bank.Rules(k) {
				occ = appendOccurrences(occ, r, text)
			}
		}
		out[k] = occ
	}
	return out
}

func appendOccurrences(dst []Occurrence, r Rule, text string) []Occurrence {
	// Matches arrive in ascending byte order, so rune offsets are counted
	// incrementally from the previous match.
	bytePos, runePos := 0, 0
	toRune := func(b int) int {
		runePos += utf8.RuneCountInString(text[bytePos:b])
		bytePos = b
		return runePos
	}
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		start, end := trimBounds(text, loc[0], loc[1])
		if end <= start {
			continue
		}
		runeStart := toRune(start)
		runeEnd := toRune(end)
		dst = append(dst, Occurrence{Value: text[start:end], Start: runeStart, End: runeEnd})
	}
	return dst
}

// trimBounds narrows [start,end) past leading and trailing whitespace.
func trimBounds(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
