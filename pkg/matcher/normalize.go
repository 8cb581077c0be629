package matcher

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize returns the comparison key for exact matching: Unicode NFKC,
// case folded, runs of whitespace collapsed to one space, trimmed.
func Normalize(name string) string {
	folded := folder.String(norm.NFKC.String(name))
	return strings.Join(strings.Fields(folded), " ")
}

// tokenSortKey prepares a name for fuzzy scoring: normalized, punctuation
// replaced by spaces, tokens sorted and joined with a single space.
func tokenSortKey(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, Normalize(name))

	tokens := strings.Fields(cleaned)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}
