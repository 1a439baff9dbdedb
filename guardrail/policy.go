package guardrail

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrelay/core"
)

// Policy lists the terms the keyword guardrails react to. Single words match
// whole tokens; entries containing a space match as phrases.
type Policy struct {
	FoulTerms           []string `yaml:"foul_language"`
	UnprofessionalTerms []string `yaml:"unprofessional"`
}

// DefaultPolicy returns the built-in word lists.
func DefaultPolicy() Policy {
	return Policy{
		FoulTerms: []string{
			"fuck", "fucking", "shit", "bitch", "bastard", "asshole", "damn", "crap",
			"mierda", "cabron", "cabrón", "puta", "joder",
		},
		UnprofessionalTerms: []string{
			"idiot", "stupid", "dumb", "moron", "shut up", "whatever",
			"fuck", "shit", "lol", "lmao",
		},
	}
}

// ParsePolicy decodes a YAML policy. Empty lists keep the defaults.
func ParsePolicy(b []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parse guardrail policy: %w", err)
	}
	def := DefaultPolicy()
	if len(p.FoulTerms) == 0 {
		p.FoulTerms = def.FoulTerms
	}
	if len(p.UnprofessionalTerms) == 0 {
		p.UnprofessionalTerms = def.UnprofessionalTerms
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read guardrail policy: %w", err)
	}
	return ParsePolicy(b)
}

// FoulLanguage returns an input guardrail rejecting user messages that
// contain foul language.
func (p Policy) FoulLanguage() Input {
	m := newMatcher(p.FoulTerms)
	return NewInput("foul_language", func(rc *core.RunContext, _ core.AgentDescriptor, input string) (Result, error) {
		if contextDone(rc.Context) {
			return Result{}, rc.Err()
		}
		hits := m.match(input)
		return Result{
			TripwireTriggered: len(hits) > 0,
			OutputInfo:        map[string]any{"is_foul_language": len(hits) > 0, "matches": hits},
		}, nil
	})
}

// Unprofessional returns an output guardrail rejecting agent replies that
// are not professional.
func (p Policy) Unprofessional() Output {
	m := newMatcher(p.UnprofessionalTerms)
	return NewOutput("unprofessional", func(rc *core.RunContext, _ core.AgentDescriptor, output string) (Result, error) {
		if contextDone(rc.Context) {
			return Result{}, rc.Err()
		}
		hits := m.match(output)
		return Result{
			TripwireTriggered: len(hits) > 0,
			OutputInfo:        map[string]any{"is_unprofessional": len(hits) > 0, "matches": hits},
		}, nil
	})
}

type matcher struct {
	words   map[string]struct{}
	phrases []string
}

func newMatcher(terms []string) *matcher {
	m := &matcher{words: map[string]struct{}{}}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		switch {
		case t == "":
		case strings.ContainsRune(t, ' '):
			m.phrases = append(m.phrases, t)
		default:
			m.words[t] = struct{}{}
		}
	}
	return m
}

// match returns the matched terms in order of first appearance.
func (m *matcher) match(text string) []string {
	lower := strings.ToLower(text)
	seen := map[string]bool{}
	var hits []string

	tokens := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	for _, tok := range tokens {
		if _, ok := m.words[tok]; ok && !seen[tok] {
			seen[tok] = true
			hits = append(hits, tok)
		}
	}

	normalized := " " + strings.Join(tokens, " ") + " "
	for _, ph := range m.phrases {
		if !seen[ph] && strings.Contains(normalized, " "+ph+" ") {
			seen[ph] = true
			hits = append(hits, ph)
		}
	}

	return hits
}
