package studiosync_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/studiosync"
	"github.com/agentstation/studiosync/internal/catalogs/memory"
	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/internal/lock"
	"github.com/agentstation/studiosync/pkg/catalogs"
	pkgerrors "github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

const (
	srcA sources.ID = "https://a.example/graphql"
	srcB sources.ID = "https://b.example/graphql"
)

func alphaRecord() sources.Record {
	return sources.Record{
		ExternalID: "a-1",
		Name:       "Alpha Studio",
		URL:        "https://alpha.example",
		Image:      "https://alpha.example/logo.png",
		Parent:     &sources.ParentStub{ExternalID: "a-p", Name: "Zenith Holdings"},
	}
}

func newSyncer(t *testing.T, c *memory.Catalog, srcs []sources.Source, opts ...studiosync.Option) studiosync.Syncer {
	t.Helper()
	list, err := sources.NewList(srcs...)
	require.NoError(t, err)
	s, err := studiosync.New(c, list, opts...)
	require.NoError(t, err)
	return s
}

func TestNewValidation(t *testing.T) {
	list, err := sources.NewList(sources.NewStatic(srcA, "A"))
	require.NoError(t, err)

	_, err = studiosync.New(nil, list)
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = studiosync.New(memory.New(), nil)
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = studiosync.New(memory.New(), list, studiosync.WithLock(nil))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestRunAppliesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())})

	report, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	out := report.Outcomes[0]
	assert.Equal(t, pkgsync.StateApplied, out.State)
	assert.Equal(t, []sources.ID{srcA}, out.ContributingSources)
	require.NotEmpty(t, out.CreatedParentID)

	studio, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "https://alpha.example", studio.URL)
	assert.Equal(t, "https://alpha.example/logo.png", studio.Image)
	assert.Equal(t, "a-1", studio.ExternalIDs.Get(srcA))
	assert.Equal(t, out.CreatedParentID, studio.ParentID)

	parent, err := c.Get(ctx, out.CreatedParentID)
	require.NoError(t, err)
	assert.Equal(t, "Zenith Holdings", parent.Name)
	assert.Equal(t, "a-p", parent.ExternalIDs.Get(srcA))

	writes := c.Writes()
	report, err = s.Run(ctx, pkgsync.WithSkipLinked(false))
	require.NoError(t, err)

	again, ok := report.Outcome("1")
	require.True(t, ok)
	assert.Equal(t, pkgsync.StateAlreadyComplete, again.State)
	assert.Empty(t, again.FieldChanges)
	assert.Equal(t, writes, c.Writes(), "second run must not write")
	assert.False(t, report.HasChanges())
}

func TestRunDryRunWritesNothing(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())})

	report, err := s.Run(context.Background(), pkgsync.WithDryRun(true))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	out := report.Outcomes[0]
	assert.Equal(t, pkgsync.StateReported, out.State)
	assert.NotEmpty(t, out.FieldChanges)
	assert.NotNil(t, out.ParentChange)
	assert.Empty(t, out.CreatedParentID)
	assert.True(t, report.DryRun)
	assert.Zero(t, c.Writes())
}

func TestRunSkippedStates(t *testing.T) {
	tests := []struct {
		name    string
		records []sources.Record
		want    pkgsync.State
	}{
		{
			name:    "no match",
			records: []sources.Record{{ExternalID: "z", Name: "Quite Different Name"}},
			want:    pkgsync.StateSkippedNoMatch,
		},
		{
			name: "ambiguous",
			records: []sources.Record{
				{ExternalID: "a-1", Name: "Alpha Studio"},
				{ExternalID: "a-2", Name: "alpha  studio"},
			},
			want: pkgsync.StateSkippedAmbiguous,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
			s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", tt.records...)})

			report, err := s.Run(context.Background())
			require.NoError(t, err)
			require.Len(t, report.Outcomes, 1)
			assert.Equal(t, tt.want, report.Outcomes[0].State)
			assert.Equal(t, 1, report.Counts[tt.want])
			assert.Zero(t, c.Writes())
		})
	}
}

func TestRunAmbiguousSourceDoesNotBlockOthers(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	a := sources.NewStatic(srcA, "A",
		sources.Record{ExternalID: "a-1", Name: "Alpha Studio"},
		sources.Record{ExternalID: "a-2", Name: "Alpha Studio"},
	)
	b := sources.NewStatic(srcB, "B", sources.Record{ExternalID: "b-1", Name: "Alpha Studio"})
	s := newSyncer(t, c, []sources.Source{a, b})

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	out, ok := report.Outcome("1")
	require.True(t, ok)
	assert.Equal(t, pkgsync.StateApplied, out.State)
	assert.Equal(t, []sources.ID{srcA}, out.AmbiguousSources)

	studio, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, studio.ExternalIDs.Get(srcA))
	assert.Equal(t, "b-1", studio.ExternalIDs.Get(srcB))
}

func TestRunSourceTimeoutCountsAsNoMatch(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	slow := sources.NewStatic(srcA, "A", sources.Record{ExternalID: "a-1", Name: "Alpha Studio"})
	slow.Delay(time.Minute)
	fast := sources.NewStatic(srcB, "B", sources.Record{ExternalID: "b-1", Name: "Alpha Studio", URL: "https://b.example/alpha"})
	s := newSyncer(t, c, []sources.Source{slow, fast})

	report, err := s.Run(context.Background(), pkgsync.WithSourceTimeout(20*time.Millisecond))
	require.NoError(t, err)

	out, ok := report.Outcome("1")
	require.True(t, ok)
	assert.Equal(t, pkgsync.StateApplied, out.State)
	assert.Equal(t, []sources.ID{srcB}, out.ContributingSources)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], string(srcA))

	studio, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "https://b.example/alpha", studio.URL)
	assert.Empty(t, studio.ExternalIDs.Get(srcA))
}

func TestRunFailingSourceIsContained(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	broken := sources.NewStatic(srcA, "A")
	broken.FailWith(pkgerrors.NewAPIError("A", 500, "boom"))
	s := newSyncer(t, c, []sources.Source{broken})

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, pkgsync.StateSkippedNoMatch, report.Outcomes[0].State)
	assert.NotEmpty(t, report.Outcomes[0].Warnings)
}

func TestRunApplyFailureFailsOnlyThatStudio(t *testing.T) {
	ctx := context.Background()
	c := memory.New(
		catalogs.Studio{ID: "1", Name: "Alpha Studio"},
		catalogs.Studio{ID: "2", Name: "Beta Films"},
	)
	c.SetWriteHook(func(op, id string) error {
		if op == "update" && id == "1" {
			return pkgerrors.New("disk full")
		}
		return nil
	})
	src := sources.NewStatic(srcA, "A",
		sources.Record{ExternalID: "a-1", Name: "Alpha Studio"},
		sources.Record{ExternalID: "b-1", Name: "Beta Films"},
	)
	s := newSyncer(t, c, []sources.Source{src})

	report, err := s.Run(ctx)
	require.NoError(t, err)

	first, _ := report.Outcome("1")
	assert.Equal(t, pkgsync.StateFailed, first.State)
	assert.Contains(t, first.Error, "disk full")

	second, _ := report.Outcome("2")
	assert.Equal(t, pkgsync.StateApplied, second.State)
}

func TestRunRereadsStudiosWrittenEarlierInBatch(t *testing.T) {
	acme := func() *memory.Catalog {
		return memory.New(
			catalogs.Studio{ID: "1", Name: "Acme Kids"},
			catalogs.Studio{ID: "2", Name: "Acme", URL: "https://acme.example", Image: "https://acme.example/logo.png"},
		)
	}
	kids := sources.Record{
		ExternalID: "a-kids",
		Name:       "Acme Kids",
		Parent:     &sources.ParentStub{ExternalID: "a-acme", Name: "Acme"},
	}

	t.Run("backfilled parent is complete", func(t *testing.T) {
		ctx := context.Background()
		c := acme()
		src := sources.NewStatic(srcA, "A", kids, sources.Record{ExternalID: "a-acme", Name: "Acme"})
		s := newSyncer(t, c, []sources.Source{src})

		report, err := s.Run(ctx)
		require.NoError(t, err)

		child, ok := report.Outcome("1")
		require.True(t, ok)
		assert.Equal(t, pkgsync.StateApplied, child.State)

		parent, ok := report.Outcome("2")
		require.True(t, ok)
		assert.Equal(t, pkgsync.StateAlreadyComplete, parent.State)
		assert.Empty(t, parent.FieldChanges)
		assert.Equal(t, 1, report.Counts[pkgsync.StateApplied])

		studio, err := c.Get(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "a-acme", studio.ExternalIDs.Get(srcA))
	})

	t.Run("fill missing keeps backfilled id", func(t *testing.T) {
		ctx := context.Background()
		c := acme()
		src := sources.NewStatic(srcA, "A", kids, sources.Record{ExternalID: "a-acme-2", Name: "Acme"})
		s := newSyncer(t, c, []sources.Source{src})

		report, err := s.Run(ctx)
		require.NoError(t, err)

		parent, ok := report.Outcome("2")
		require.True(t, ok)
		assert.NotEqual(t, pkgsync.StateApplied, parent.State)
		for _, fc := range parent.FieldChanges {
			_, isID := fc.Field.ExternalIDSource()
			assert.False(t, isID, "external id must not be overwritten: %+v", fc)
		}

		studio, err := c.Get(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "a-acme", studio.ExternalIDs.Get(srcA))
	})
}

func TestRunLimitAndSkipLinked(t *testing.T) {
	newCatalog := func() *memory.Catalog {
		return memory.New(
			catalogs.Studio{ID: "1", Name: "Linked", ExternalIDs: catalogs.ExternalIDs{srcA: "l-1"}},
			catalogs.Studio{ID: "2", Name: "Second"},
			catalogs.Studio{ID: "3", Name: "Third"},
		)
	}
	ids := func(r *pkgsync.Report) []string {
		var out []string
		for _, o := range r.Outcomes {
			out = append(out, o.StudioID)
		}
		return out
	}
	src := func() []sources.Source { return []sources.Source{sources.NewStatic(srcA, "A")} }

	tests := []struct {
		name string
		opts []pkgsync.Option
		want []string
	}{
		{name: "defaults skip linked", want: []string{"2", "3"}},
		{name: "limit", opts: []pkgsync.Option{pkgsync.WithLimit(1)}, want: []string{"2"}},
		{name: "include linked", opts: []pkgsync.Option{pkgsync.WithSkipLinked(false)}, want: []string{"1", "2", "3"}},
		{name: "select", opts: []pkgsync.Option{pkgsync.WithSelect(func(s catalogs.Studio) bool { return s.Name == "Third" })}, want: []string{"3"}},
		{name: "force includes linked", opts: []pkgsync.Option{pkgsync.WithForce(true), pkgsync.WithLimit(2)}, want: []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSyncer(t, newCatalog(), src())
			report, err := s.Run(context.Background(), tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(report))
		})
	}
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	s := newSyncer(t, memory.New(), []sources.Source{sources.NewStatic(srcA, "A")})

	_, err := s.Run(context.Background(), pkgsync.WithThreshold(101))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = s.Run(context.Background(), pkgsync.WithConcurrency(0))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestRunExclusive(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	shared := lock.New(filepath.Join(t.TempDir(), "sync.pid"))
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())}, studiosync.WithLock(shared))

	release, err := shared.Acquire()
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	assert.True(t, pkgerrors.IsAlreadyRunning(err))
	assert.Nil(t, report)
	assert.Zero(t, c.Writes())

	// Dry runs do not take the lock.
	report, err = s.Run(context.Background(), pkgsync.WithDryRun(true))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[pkgsync.StateReported])

	release()
	report, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[pkgsync.StateApplied])
}

func TestRunCancellationReturnsPartialReport(t *testing.T) {
	c := memory.New(
		catalogs.Studio{ID: "1", Name: "Alpha Studio"},
		catalogs.Studio{ID: "2", Name: "Beta Films"},
		catalogs.Studio{ID: "3", Name: "Gamma Pictures"},
	)
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.OnOutcome(func(pkgsync.Outcome) { cancel() })

	var finished atomic.Pointer[pkgsync.Report]
	s.OnRunFinished(func(r *pkgsync.Report) { finished.Store(r) })

	report, err := s.Run(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCanceled(err))
	require.NotNil(t, report)
	assert.Len(t, report.Outcomes, 1)
	assert.False(t, report.FinishedAt.IsZero())
	assert.Same(t, report, finished.Load())
}

func TestRunStudio(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		s := newSyncer(t, memory.New(), []sources.Source{sources.NewStatic(srcA, "A")})
		_, err := s.RunStudio(ctx, "404")
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("empty id", func(t *testing.T) {
		s := newSyncer(t, memory.New(), []sources.Source{sources.NewStatic(srcA, "A")})
		_, err := s.RunStudio(ctx, "")
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("processes linked studio", func(t *testing.T) {
		c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio", ExternalIDs: catalogs.ExternalIDs{srcA: "a-1"}})
		s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())})

		report, err := s.RunStudio(ctx, "1")
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, pkgsync.StateApplied, report.Outcomes[0].State)
	})

	t.Run("stricter fuzzy threshold", func(t *testing.T) {
		// "Alpha Studio X" scores 92: enough for a batch run, not for a
		// single studio run.
		c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
		src := sources.NewStatic(srcA, "A", sources.Record{ExternalID: "a-1", Name: "Alpha Studio X"})
		s := newSyncer(t, c, []sources.Source{src})

		report, err := s.RunStudio(ctx, "1", pkgsync.WithDryRun(true))
		require.NoError(t, err)
		assert.Equal(t, pkgsync.StateSkippedNoMatch, report.Outcomes[0].State)

		report, err = s.Run(ctx, pkgsync.WithDryRun(true))
		require.NoError(t, err)
		assert.Equal(t, pkgsync.StateReported, report.Outcomes[0].State)
	})
}

func TestHooks(t *testing.T) {
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())})

	var outcomes []pkgsync.State
	var before, after catalogs.Studio
	var runs int
	s.OnOutcome(func(o pkgsync.Outcome) { outcomes = append(outcomes, o.State) })
	s.OnStudioApplied(func(old, updated catalogs.Studio) { before, after = old, updated })
	s.OnRunFinished(func(*pkgsync.Report) { runs++ })

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []pkgsync.State{pkgsync.StateApplied}, outcomes)
	assert.Empty(t, before.URL)
	assert.Equal(t, "https://alpha.example", after.URL)
	assert.Equal(t, 1, runs)
}

func TestRecorderAndMetricsFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := journal.Open(ctx, filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	metricsFile := filepath.Join(dir, "studiosync.prom")
	c := memory.New(catalogs.Studio{ID: "1", Name: "Alpha Studio"})
	s := newSyncer(t, c, []sources.Source{sources.NewStatic(srcA, "A", alphaRecord())},
		studiosync.WithRecorder(j),
		studiosync.WithMetricsFile(metricsFile),
		studiosync.WithRunIDFunc(func() string { return "run-1" }),
	)

	report, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	runs, err := j.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 1, runs[0].Counts[pkgsync.StateApplied])

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "studiosync_sync_runs_total"))
}
