package desensitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule rewrites one kind of secret in a log line.
type Rule interface {
	Name() string
	Process(s string) string
}

// PatternRule replaces every match of a regular expression. The replacement
// may refer to groups as in regexp.Regexp.ReplaceAllString.
type PatternRule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

func NewPatternRule(name, pattern, replacement string) (*PatternRule, error) {
	if name == "" {
		return nil, fmt.Errorf("desensitize: rule name is empty")
	}
	if pattern == "" {
		return nil, fmt.Errorf("desensitize: rule %s has no pattern", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("desensitize: rule %s: %w", name, err)
	}
	return &PatternRule{name: name, pattern: re, replacement: replacement}, nil
}

// MustPatternRule is NewPatternRule for package-level rules.
func MustPatternRule(name, pattern, replacement string) *PatternRule {
	r, err := NewPatternRule(name, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *PatternRule) Name() string {
	return r.name
}

func (r *PatternRule) Process(s string) string {
	return r.pattern.ReplaceAllString(s, r.replacement)
}

// FieldRule masks the string value of the named JSON keys wherever they
// occur in the line: zerolog fields, request bodies and dumped session
// keys alike. Numbers, booleans and null are left alone.
type FieldRule struct {
	name   string
	fields []string
	re     *regexp.Regexp
}

func NewFieldRule(name string, fields ...string) (*FieldRule, error) {
	if name == "" {
		return nil, fmt.Errorf("desensitize: rule name is empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("desensitize: rule %s has no fields", name)
	}
	keys := make([]string, len(fields))
	for i, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("desensitize: rule %s has an empty field", name)
		}
		keys[i] = regexp.QuoteMeta(f)
	}
	re, err := regexp.Compile(`("(?:` + strings.Join(keys, "|") + `)"\s*:\s*)"(?:[^"\\]|\\.)*"`)
	if err != nil {
		return nil, fmt.Errorf("desensitize: rule %s: %w", name, err)
	}
	return &FieldRule{name: name, fields: fields, re: re}, nil
}

func MustFieldRule(name string, fields ...string) *FieldRule {
	r, err := NewFieldRule(name, fields...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *FieldRule) Name() string {
	return r.name
}

// Fields returns the masked keys.
func (r *FieldRule) Fields() []string {
	return append([]string(nil), r.fields...)
}

func (r *FieldRule) Process(s string) string {
	return r.re.ReplaceAllString(s, `${1}"`+mask+`"`)
}
