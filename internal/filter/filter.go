// Package filter selects studios by name with glob or regular expression
// patterns. It backs the --only and --exclude flags.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/matcher"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto detects the pattern type.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Pattern matches studio names. Matching is case-insensitive and runs on
// the normalized name, so "alpha*" matches "ALPHA  Studio".
type Pattern struct {
	raw      string
	kind     PatternType
	glob     string
	compiled *regexp.Regexp
}

// Compile compiles pattern. Auto picks Regex when the pattern contains regex
// metacharacters that globs never use, and Glob otherwise.
func Compile(kind PatternType, pattern string) (*Pattern, error) {
	p := &Pattern{raw: pattern, kind: kind}
	if kind == Auto {
		p.kind = detect(pattern)
	}

	switch p.kind {
	case Glob:
		p.glob = matcher.Normalize(pattern)
		if _, err := filepath.Match(p.glob, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	case Regex:
		expr := pattern
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		p.compiled = compiled
	default:
		return nil, fmt.Errorf("unsupported pattern type: %v", kind)
	}
	return p, nil
}

// Match reports whether name matches.
func (p *Pattern) Match(name string) bool {
	if p.kind == Regex {
		return p.compiled.MatchString(name)
	}
	// Globs treat '/' as a separator; studio names are not paths.
	n := strings.ReplaceAll(matcher.Normalize(name), "/", "\x00")
	g := strings.ReplaceAll(p.glob, "/", "\x00")
	ok, _ := filepath.Match(g, n)
	return ok
}

// String returns the original pattern.
func (p *Pattern) String() string {
	return p.raw
}

// Type returns the resolved pattern type.
func (p *Pattern) Type() PatternType {
	return p.kind
}

func detect(pattern string) PatternType {
	regexIndicators := []string{
		"^", "$", "\\d", "\\w", "\\s", "\\D", "\\W", "\\S",
		"(?:", "(?i)", "{", "}", "+", "|", "(", ")",
	}
	for _, indicator := range regexIndicators {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Set matches a name against any of several patterns.
type Set []*Pattern

// CompileSet compiles patterns with Auto detection.
func CompileSet(patterns ...string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := Compile(Auto, raw)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// Match reports whether any pattern matches name.
func (s Set) Match(name string) bool {
	for _, p := range s {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// Studios keeps the studios named by Only, minus those named by Exclude.
// An empty Only keeps everything.
type Studios struct {
	Only    Set
	Exclude Set
}

// New compiles a studio filter from --only and --exclude patterns.
func New(only, exclude []string) (*Studios, error) {
	o, err := CompileSet(only...)
	if err != nil {
		return nil, err
	}
	e, err := CompileSet(exclude...)
	if err != nil {
		return nil, err
	}
	return &Studios{Only: o, Exclude: e}, nil
}

// IsEmpty reports whether the filter keeps every studio.
func (f *Studios) IsEmpty() bool {
	return f == nil || (len(f.Only) == 0 && len(f.Exclude) == 0)
}

// Keep reports whether studio passes the filter. Aliases count as names.
func (f *Studios) Keep(studio catalogs.Studio) bool {
	if f.IsEmpty() {
		return true
	}
	names := append([]string{studio.Name}, studio.Aliases...)
	if len(f.Only) > 0 && !anyMatch(f.Only, names) {
		return false
	}
	return !anyMatch(f.Exclude, names)
}

func anyMatch(set Set, names []string) bool {
	for _, n := range names {
		if set.Match(n) {
			return true
		}
	}
	return false
}
