package attributes

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Validation maps every kind to whether its value passed the kind's checks.
type Validation map[Kind]bool

// Validate checks each value against kind-specific rules. An empty value is
// valid for every kind: absence of a field is not a defect in the field.
// Kinds missing from attrs are treated as empty.
func (e *Extractor) Validate(attrs Attributes) Validation {
	out := make(Validation, len(allKinds))
	for _, k := range allKinds {
		v := strings.TrimSpace(attrs[k])
		if v == "" {
			out[k] = true
			continue
		}
		out[k] = e.validValue(k, v)
	}
	return out
}

func (e *Extractor) validValue(k Kind, v string) bool {
	switch k {
	case Date:
		return validDate(v)
	case PersonName:
		return strings.IndexFunc(v, unicode.IsUpper) >= 0 && len(strings.Fields(v)) >= 2
	case Address, Organization:
		return len(strings.Fields(v)) >= 2
	case ArchiveCode:
		for _, part := range strings.Split(v, ",") {
			if !e.matchesAnyRule(k, strings.TrimSpace(part)) {
				return false
			}
		}
		return true
	case DocumentNumber:
		return e.matchesAnyRule(k, v)
	}
	return false
}

func (e *Extractor) matchesAnyRule(k Kind, v string) bool {
	if v == "" {
		return false
	}
	for _, r := range e.bank.Rules(k) {
		if r.MatchesWhole(v) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{"2.1.2006", "2/1/2006"}

func validDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return validWordDate(v)
}

var monthWords = map[string]time.Month{
	"января": time.January, "январь": time.January,
	"февраля": time.February, "февраль": time.February,
	"марта": time.March, "март": time.March,
	"апреля": time.April, "апрель": time.April,
	"мая": time.May, "май": time.May,
	"июня": time.June, "июнь": time.June,
	"июля": time.July, "июль": time.July,
	"августа": time.August, "август": time.August,
	"сентября": time.September, "сентябрь": time.September,
	"октября": time.October, "октябрь": time.October,
	"ноября": time.November, "ноябрь": time.November,
	"декабря": time.December, "декабрь": time.December,
}

// validWordDate accepts "5 апреля 1960".
func validWordDate(v string) bool {
	f := strings.Fields(v)
	if len(f) != 3 || len(f[2]) != 4 {
		return false
	}
	day, err := strconv.Atoi(f[0])
	if err != nil {
		return false
	}
	month, ok := monthWords[strings.ToLower(f[1])]
	if !ok {
		return false
	}
	year, err := strconv.Atoi(f[2])
	if err != nil {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && t.Month() == month
}
