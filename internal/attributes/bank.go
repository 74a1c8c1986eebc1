package attributes

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule is a single pattern for one kind. Rules of a kind are tried in
// Priority order (lowest first).
type Rule struct {
	Kind       Kind
	Name       string
	Pattern    string
	IgnoreCase bool
	Priority   int

	re   *regexp.Regexp
	full *regexp.Regexp
}

func compileRule(kind Kind, priority int, spec ruleSpec) (Rule, error) {
	flags := ""
	if spec.IgnoreCase {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + spec.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile %s rule %q: %w", kind, spec.Name, err)
	}
	full := regexp.MustCompile(flags + `^(?:` + spec.Pattern + `)$`)
	return Rule{
		Kind:       kind,
		Name:       spec.Name,
		Pattern:    spec.Pattern,
		IgnoreCase: spec.IgnoreCase,
		Priority:   priority,
		re:         re,
		full:       full,
	}, nil
}

// MatchesWhole reports whether s, in its entirety, matches the rule.
func (r Rule) MatchesWhole(s string) bool {
	return r.full.MatchString(s)
}

// Bank holds the ordered rules for every kind. A Bank is never modified
// after construction and may be shared between goroutines.
type Bank struct {
	rules map[Kind][]Rule
}

// Rules returns the rules for kind in the order they are tried.
func (b *Bank) Rules(kind Kind) []Rule {
	return b.rules[kind]
}

type ruleSpec struct {
	Name       string `yaml:"name"`
	Pattern    string `yaml:"pattern"`
	IgnoreCase bool   `yaml:"ignore_case,omitempty"`
}

// bankFile is the on-disk layout of a pattern bank.
type bankFile struct {
	PersonName     []ruleSpec `yaml:"fio,omitempty"`
	Date           []ruleSpec `yaml:"date,omitempty"`
	Address        []ruleSpec `yaml:"address,omitempty"`
	ArchiveCode    []ruleSpec `yaml:"archive_code,omitempty"`
	DocumentNumber []ruleSpec `yaml:"document_number,omitempty"`
	Organization   []ruleSpec `yaml:"organization,omitempty"`
}

func (f *bankFile) slot(k Kind) *[]ruleSpec {
	switch k {
	case PersonName:
		return &f.PersonName
	case Date:
		return &f.Date
	case Address:
		return &f.Address
	case ArchiveCode:
		return &f.ArchiveCode
	case DocumentNumber:
		return &f.DocumentNumber
	case Organization:
		return &f.Organization
	}
	return nil
}

var defaultRules = bankFile{
	PersonName: []ruleSpec{
		{Name: "surname_initials", Pattern: `[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s?[А-ЯЁ]\.`},
		{Name: "surname_given_patronymic", Pattern: `[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+`},
		{Name: "surname_initial_patronymic", Pattern: `[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s?[А-ЯЁ][а-яё]+`},
	},
	Date: []ruleSpec{
		{Name: "dotted", Pattern: `\d{1,2}\.\d{1,2}\.\d{4}`},
		{Name: "slashed", Pattern: `\d{1,2}/\d{1,2}/\d{4}`},
		{Name: "month_word", Pattern: `\d{1,2}\s+[а-яё]+\s+\d{4}`},
	},
	Address: []ruleSpec{
		{Name: "city_street_house", Pattern: `[А-ЯЁ][а-яё]+,\s*[А-ЯЁ][а-яё]+,\s*[А-ЯЁ][а-яё]+`},
		{Name: "region", Pattern: `[А-ЯЁ][а-яё]+\s+обл\.`},
	},
	ArchiveCode: []ruleSpec{
		{Name: "numeric", Pattern: `\d{2}-\d{4}-\s*\d{4}-\d{6}`, IgnoreCase: true},
		{Name: "short", Pattern: `[A-ZА-ЯЁ]{1,3}/\d+`, IgnoreCase: true},
		{Name: "fund", Pattern: `Фонд\s+\d+`, IgnoreCase: true},
		{Name: "inventory", Pattern: `опись\s+\d+`, IgnoreCase: true},
		{Name: "case", Pattern: `дело\s+\d+`, IgnoreCase: true},
	},
	DocumentNumber: []ruleSpec{
		{Name: "case_number", Pattern: `Дело\s*№\s*\d+`, IgnoreCase: true},
		{Name: "number", Pattern: `№\s*\d+`, IgnoreCase: true},
	},
	Organization: []ruleSpec{
		{Name: "legal_form", Pattern: `(?:ООО|ОАО|ЗАО|ПАО|АО|ГУП|МУП)\s+["«'][^"»']+["»']`},
		{Name: "capitalized_words", Pattern: `[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+)*`},
	},
}

var defaultBank = mustBuild(defaultRules)

// DefaultBank returns the built-in pattern bank.
func DefaultBank() *Bank {
	return defaultBank
}

func mustBuild(f bankFile) *Bank {
	b, err := build(f, nil)
	if err != nil {
		panic(err)
	}
	return b
}

// build compiles f. Kinds absent from f inherit the rules of base when base
// is non-nil.
func build(f bankFile, base *Bank) (*Bank, error) {
	b := &Bank{rules: make(map[Kind][]Rule, len(allKinds))}
	for _, k := range allKinds {
		specs := *f.slot(k)
		if specs == nil && base != nil {
			b.rules[k] = base.rules[k]
			continue
		}
		rules := make([]Rule, 0, len(specs))
		for i, spec := range specs {
			if spec.Pattern == "" {
				return nil, fmt.Errorf("%s rule %d: empty pattern", k, i)
			}
			r, err := compileRule(k, i, spec)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		b.rules[k] = rules
	}
	return b, nil
}

// LoadBank reads a YAML pattern bank. Kinds the file does not mention keep
// the default rules; unknown kinds are rejected.
func LoadBank(r io.Reader) (*Bank, error) {
	var f bankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode pattern bank: %w", err)
	}
	return build(f, defaultBank)
}

// MarshalYAML renders the bank in the layout LoadBank accepts.
func (b *Bank) MarshalYAML() (any, error) {
	var f bankFile
	for _, k := range allKinds {
		specs := make([]ruleSpec, 0, len(b.rules[k]))
		for _, r := range b.rules[k] {
			specs = append(specs, ruleSpec{Name: r.Name, Pattern: r.Pattern, IgnoreCase: r.IgnoreCase})
		}
		*f.slot(k) = specs
	}
	return f, nil
}
