// Package matcher decides whether one of a source's records identifies a
// local studio.
//
// Matching runs in two stages. Exact matching compares normalized names and
// aliases; a single hit wins and several hits are ambiguous, in which case the
// fuzzy stage is skipped entirely. Fuzzy matching scores every candidate with
// a Scorer and accepts the single best candidate at or above the threshold.
// Ties are reported as ambiguous instead of being broken arbitrarily.
package matcher

import (
	"fmt"

	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
)

// Outcome is the result category of a match.
type Outcome string

// Match outcomes.
const (
	Exact     Outcome = "exact"
	Fuzzy     Outcome = "fuzzy"
	Ambiguous Outcome = "ambiguous"
	None      Outcome = "none"
)

// Matched reports whether the outcome carries a record.
func (o Outcome) Matched() bool {
	return o == Exact || o == Fuzzy
}

// Config controls one match.
type Config struct {
	FuzzyEnabled bool `json:"fuzzy_enabled" yaml:"fuzzy_enabled"`
	Threshold    int  `json:"threshold" yaml:"threshold" validate:"min=0,max=100"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return errors.NewValidationError("threshold", c.Threshold, "must be between 0 and 100")
	}
	return nil
}

// Candidate is a scored record.
type Candidate struct {
	Record      sources.Record `json:"record" yaml:"record"`
	Score       int            `json:"score" yaml:"score"`
	MatchedName string         `json:"matched_name" yaml:"matched_name"`
}

// Result is the outcome of matching one local name against one source's records.
// Record is set exactly when Outcome is Exact or Fuzzy. Candidates lists the
// tied records when Outcome is Ambiguous.
type Result struct {
	Outcome    Outcome         `json:"outcome" yaml:"outcome"`
	Score      int             `json:"score,omitempty" yaml:"score,omitempty"`
	Record     *sources.Record `json:"record,omitempty" yaml:"record,omitempty"`
	Candidates []Candidate     `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// String returns a compact description for logs.
func (r Result) String() string {
	switch r.Outcome {
	case Exact, Fuzzy:
		return fmt.Sprintf("%s(%d) %s", r.Outcome, r.Score, r.Record)
	case Ambiguous:
		return fmt.Sprintf("ambiguous among %d candidates", len(r.Candidates))
	default:
		return string(r.Outcome)
	}
}

// Matcher matches local names against candidate records.
type Matcher struct {
	scorer Scorer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithScorer replaces the fuzzy scorer.
func WithScorer(s Scorer) Option {
	return func(m *Matcher) {
		if s != nil {
			m.scorer = s
		}
	}
}

// New creates a Matcher. The default scorer is TokenSortRatio.
func New(opts ...Option) *Matcher {
	m := &Matcher{scorer: TokenSortRatio}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultMatcher = New()

// Match matches with the default matcher.
func Match(localName string, candidates []sources.Record, cfg Config) Result {
	return defaultMatcher.Match(localName, candidates, cfg)
}

// Match decides which candidate, if any, identifies localName.
func (m *Matcher) Match(localName string, candidates []sources.Record, cfg Config) Result {
	candidates = dedupe(candidates)
	key := Normalize(localName)
	if key == "" || len(candidates) == 0 {
		return Result{Outcome: None}
	}

	var exact []Candidate
	for _, rec := range candidates {
		for _, name := range rec.Names() {
			if Normalize(name) == key {
				exact = append(exact, Candidate{Record: rec, Score: 100, MatchedName: name})
				break
			}
		}
	}
	switch {
	case len(exact) == 1:
		rec := exact[0].Record
		return Result{Outcome: Exact, Score: 100, Record: &rec}
	case len(exact) > 1:
		return Result{Outcome: Ambiguous, Score: 100, Candidates: exact}
	}

	if !cfg.FuzzyEnabled {
		return Result{Outcome: None}
	}

	var best, second *Candidate
	var top []Candidate
	for _, rec := range candidates {
		c := m.score(localName, rec)
		if c.Score < cfg.Threshold {
			continue
		}
		switch {
		case best == nil || c.Score > best.Score:
			second, best = best, &c
			top = []Candidate{c}
		case c.Score == best.Score:
			second = &c
			top = append(top, c)
		case second == nil || c.Score > second.Score:
			second = &c
		}
	}

	switch {
	case best == nil:
		return Result{Outcome: None}
	case second != nil && second.Score == best.Score:
		return Result{Outcome: Ambiguous, Score: best.Score, Candidates: top}
	default:
		rec := best.Record
		return Result{Outcome: Fuzzy, Score: best.Score, Record: &rec}
	}
}

// score returns the best score over the record's name and aliases.
func (m *Matcher) score(localName string, rec sources.Record) Candidate {
	c := Candidate{Record: rec, Score: -1}
	for _, name := range rec.Names() {
		if s := m.scorer(localName, name); s > c.Score {
			c.Score = s
			c.MatchedName = name
		}
	}
	return c
}

// dedupe drops repeated records (same source and external id), keeping the first.
func dedupe(records []sources.Record) []sources.Record {
	type key struct {
		source sources.ID
		id     string
	}
	seen := make(map[key]struct{}, len(records))
	out := make([]sources.Record, 0, len(records))
	for _, rec := range records {
		if rec.ExternalID != "" {
			k := key{rec.Source, rec.ExternalID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}
