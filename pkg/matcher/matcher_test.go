package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/sources"
)

func rec(id, name string, aliases ...string) sources.Record {
	return sources.Record{Source: "test", ExternalID: id, Name: name, Aliases: aliases}
}

var fuzzy85 = matcher.Config{FuzzyEnabled: true, Threshold: 85}

func TestExactMatchPriority(t *testing.T) {
	candidates := []sources.Record{
		rec("2", "Alpha Studios"),
		rec("1", "Alpha Studio"),
	}

	result := matcher.Match("Alpha Studio", candidates, fuzzy85)

	require.Equal(t, matcher.Exact, result.Outcome)
	require.NotNil(t, result.Record)
	assert.Equal(t, "1", result.Record.ExternalID)
	assert.Equal(t, 100, result.Score)
}

func TestExactMatchNormalization(t *testing.T) {
	tests := []struct {
		name      string
		local     string
		candidate sources.Record
	}{
		{"case", "alpha studio", rec("1", "ALPHA STUDIO")},
		{"whitespace", "  Alpha \t Studio ", rec("1", "Alpha Studio")},
		{"alias", "Alpha", rec("1", "Alpha Studio Network", "ALPHA")},
		{"compatibility form", "Ａｌｐｈａ", rec("1", "Alpha")},
		{"case fold", "STRASSE", rec("1", "straße")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := matcher.Match(tt.local, []sources.Record{tt.candidate}, matcher.Config{})
			assert.Equal(t, matcher.Exact, result.Outcome)
		})
	}
}

func TestAmbiguousExactTie(t *testing.T) {
	candidates := []sources.Record{
		rec("1", "Alpha Studio"),
		rec("2", "alpha  studio"),
		rec("3", "Alpha Studios"),
	}

	result := matcher.Match("Alpha Studio", candidates, fuzzy85)

	assert.Equal(t, matcher.Ambiguous, result.Outcome)
	assert.Nil(t, result.Record)
	assert.Len(t, result.Candidates, 2)
}

func TestDuplicateRecordsAreNotAmbiguous(t *testing.T) {
	candidates := []sources.Record{
		rec("1", "Alpha Studio"),
		rec("1", "Alpha Studio"),
	}

	result := matcher.Match("Alpha Studio", candidates, fuzzy85)
	assert.Equal(t, matcher.Exact, result.Outcome)
}

func TestFuzzyDisabled(t *testing.T) {
	result := matcher.Match("Alpha Studio", []sources.Record{rec("1", "Alpha Studios")}, matcher.Config{Threshold: 0})
	assert.Equal(t, matcher.None, result.Outcome)
	assert.Nil(t, result.Record)
}

func TestFuzzyMatch(t *testing.T) {
	result := matcher.Match("Alpha Studio", []sources.Record{
		rec("1", "Alpha Studios"),
		rec("2", "Beta Pictures"),
	}, fuzzy85)

	require.Equal(t, matcher.Fuzzy, result.Outcome)
	assert.Equal(t, "1", result.Record.ExternalID)
	assert.Equal(t, 96, result.Score)
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	// Single-token names of 20 and 25 characters with 1, 3 or 4 characters
	// replaced give scores of exactly 95, 85 and 84; 17 characters with one
	// replacement gives 94.
	const twenty = "abcdefghijklmnopqrst"
	const seventeen = "abcdefghijklmnopq"
	const twentyFive = "abcdefghijklmnopqrstuvwxy"

	tests := []struct {
		name      string
		local     string
		candidate string
		threshold int
		score     int
		accepted  bool
	}{
		{"95 at threshold 95", twenty, "abcdefghijklmnopqrs0", 95, 95, true},
		{"94 below threshold 95", seventeen, "abcdefghijklmnop0", 95, 94, false},
		{"85 at threshold 85", twenty, "abcdefghijklmnopq012", 85, 85, true},
		{"84 below threshold 85", twentyFive, "abcdefghijklmnopqrstu0123", 85, 84, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, matcher.TokenSortRatio(tt.local, tt.candidate))

			result := matcher.Match(tt.local, []sources.Record{rec("1", tt.candidate)},
				matcher.Config{FuzzyEnabled: true, Threshold: tt.threshold})
			if tt.accepted {
				assert.Equal(t, matcher.Fuzzy, result.Outcome)
				assert.Equal(t, tt.score, result.Score)
			} else {
				assert.Equal(t, matcher.None, result.Outcome)
			}
		})
	}
}

func TestFuzzyThresholdBoundaryWithScorer(t *testing.T) {
	scores := map[string]int{"at": 0, "below": 0}
	m := matcher.New(matcher.WithScorer(func(_, b string) int { return scores[b] }))

	for _, threshold := range []int{85, 95} {
		scores["at"], scores["below"] = threshold, threshold-1
		cfg := matcher.Config{FuzzyEnabled: true, Threshold: threshold}

		assert.Equal(t, matcher.Fuzzy, m.Match("x", []sources.Record{rec("1", "at")}, cfg).Outcome)
		assert.Equal(t, matcher.None, m.Match("x", []sources.Record{rec("1", "below")}, cfg).Outcome)
	}
}

func TestFuzzyTie(t *testing.T) {
	m := matcher.New(matcher.WithScorer(func(_, b string) int {
		return map[string]int{"first": 90, "second": 90, "third": 70}[b]
	}))

	result := m.Match("x", []sources.Record{rec("1", "first"), rec("2", "third"), rec("3", "second")}, fuzzy85)

	assert.Equal(t, matcher.Ambiguous, result.Outcome)
	assert.Nil(t, result.Record)
	assert.Len(t, result.Candidates, 2)
	assert.Equal(t, 90, result.Score)
}

func TestFuzzyUniqueTopBeatsLowerTie(t *testing.T) {
	m := matcher.New(matcher.WithScorer(func(_, b string) int {
		return map[string]int{"a": 88, "b": 88, "c": 93}[b]
	}))

	result := m.Match("x", []sources.Record{rec("1", "a"), rec("2", "b"), rec("3", "c")}, fuzzy85)

	require.Equal(t, matcher.Fuzzy, result.Outcome)
	assert.Equal(t, "3", result.Record.ExternalID)
}

func TestFuzzyUsesBestAlias(t *testing.T) {
	result := matcher.Match("Studio Alpha", []sources.Record{
		rec("1", "Completely Different", "Alpha Studio"),
	}, fuzzy85)

	require.Equal(t, matcher.Fuzzy, result.Outcome)
	assert.Equal(t, 100, result.Score)
}

func TestEmptyInputs(t *testing.T) {
	assert.Equal(t, matcher.None, matcher.Match("", []sources.Record{rec("1", "")}, fuzzy85).Outcome)
	assert.Equal(t, matcher.None, matcher.Match("Alpha", nil, fuzzy85).Outcome)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, matcher.Config{Threshold: 0}.Validate())
	assert.NoError(t, matcher.Config{Threshold: 100}.Validate())
	assert.Error(t, matcher.Config{Threshold: 101}.Validate())
	assert.Error(t, matcher.Config{Threshold: -1}.Validate())
}

func TestOutcomeMatched(t *testing.T) {
	assert.True(t, matcher.Exact.Matched())
	assert.True(t, matcher.Fuzzy.Matched())
	assert.False(t, matcher.Ambiguous.Matched())
	assert.False(t, matcher.None.Matched())
}
