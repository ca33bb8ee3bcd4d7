// Package assistant answers guest chat messages from a fixed FAQ table, or
// from a Gemini model when one is configured.
package assistant

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed faq.yaml
var defaultFAQ []byte

// Rule matches when any of Contains is a substring, any of Words is a whole
// word, any of Exact equals the message, or every AllOf group has a substring hit.
type Rule struct {
	Name     string     `yaml:"name"`
	Contains []string   `yaml:"contains"`
	Words    []string   `yaml:"words"`
	Exact    []string   `yaml:"exact"`
	AllOf    [][]string `yaml:"all_of"`
	Reply    string     `yaml:"reply"`
}

type Source string

const (
	SourceFAQ      Source = "faq"
	SourceFallback Source = "fallback"
	SourceModel    Source = "model"
)

// Answer is a reply plus where it came from.
type Answer struct {
	Reply  string
	Rule   string
	Source Source
}

type FAQ struct {
	rules     []Rule
	fallbacks []string
	pick      func(n int) int
}

type Option func(*FAQ)

// WithPicker replaces the random fallback selection.
func WithPicker(pick func(n int) int) Option {
	return func(f *FAQ) { f.pick = pick }
}

// New loads the embedded FAQ table.
func New(opts ...Option) (*FAQ, error) {
	return Parse(defaultFAQ, opts...)
}

func Parse(data []byte, opts ...Option) (*FAQ, error) {
	var doc struct {
		Rules     []Rule   `yaml:"rules"`
		Fallbacks []string `yaml:"fallbacks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode faq: %w", err)
	}
	if len(doc.Fallbacks) == 0 {
		return nil, errors.New("faq needs at least one fallback reply")
	}

	f := &FAQ{
		rules:     doc.Rules,
		fallbacks: doc.Fallbacks,
		pick:      rand.IntN,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Match returns the first rule that fits msg.
func (f *FAQ) Match(msg string) (Rule, bool) {
	text := strings.ToLower(strings.TrimSpace(msg))
	if text == "" {
		return Rule{}, false
	}
	words := wordSet(text)

	for _, r := range f.rules {
		if r.matches(text, words) {
			return r, true
		}
	}
	return Rule{}, false
}

// Reply answers msg, falling back to a random canned reply.
func (f *FAQ) Reply(msg string) Answer {
	if r, ok := f.Match(msg); ok {
		return Answer{Reply: r.Reply, Rule: r.Name, Source: SourceFAQ}
	}
	i := f.pick(len(f.fallbacks))
	if i < 0 || i >= len(f.fallbacks) {
		i = 0
	}
	return Answer{Reply: f.fallbacks[i], Source: SourceFallback}
}

// Fallbacks exposes the fallback pool.
func (f *FAQ) Fallbacks() []string {
	return append([]string(nil), f.fallbacks...)
}

func (r Rule) matches(text string, words map[string]bool) bool {
	for _, e := range r.Exact {
		if text == e {
			return true
		}
	}
	for _, w := range r.Words {
		if words[w] {
			return true
		}
	}
	for _, c := range r.Contains {
		if strings.Contains(text, c) {
			return true
		}
	}
	if len(r.AllOf) == 0 {
		return false
	}
	padded := " " + text + " "
	for _, group := range r.AllOf {
		hit := false
		for _, c := range group {
			if strings.Contains(padded, c) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func wordSet(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, w := range fields {
		set[w] = true
	}
	return set
}
