package attributes

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Span is a single region to highlight, in rune offsets.
type Span struct {
	Start int
	End   int
	Kind  Kind
	Value string
}

// Spans flattens positions into a list sorted by start offset. Kinds are
// visited in canonical order and the sort is stable, so spans that start at
// the same offset keep that order. Keys that are not known kinds are ignored.
func Spans(positions Positions) []Span {
	var spans []Span
	for _, k := range allKinds {
		for _, o := range positions[k] {
			spans = append(spans, Span{Start: o.Start, End: o.End, Kind: k, Value: o.Value})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// Annotate renders text as HTML with each occurrence wrapped in a span
// carrying its kind. The output is built left to right from the original
// text, so offsets never shift. When spans overlap, the one that sorts first
// wins and any span starting inside it is dropped. Spans outside the text
// are dropped as well. All text and attribute values are escaped.
func Annotate(text string, positions Positions) string {
	runes := []rune(text)
	var b strings.Builder
	last := 0
	for _, s := range Spans(positions) {
		if s.Start < last || s.End <= s.Start || s.End > len(runes) {
			continue
		}
		b.WriteString(html.EscapeString(string(runes[last:s.Start])))
		fmt.Fprintf(&b, `<span class="attribute attribute-%[1]s" data-attribute="%[1]s" title="%[1]s: %[2]s">%[3]s</span>`,
			s.Kind, html.EscapeString(s.Value), html.EscapeString(string(runes[s.Start:s.End])))
		last = s.End
	}
	b.WriteString(html.EscapeString(string(runes[last:])))
	return b.String()
}
