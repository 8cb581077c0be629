package studiosync

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/studiosync/internal/metrics"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/reconcile"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
	"github.com/agentstation/studiosync/pkg/tracing"
)

// processStudio runs one studio through search, match, merge and apply.
// Failures are contained in the returned outcome.
func (s *syncer) processStudio(ctx context.Context, studio catalogs.Studio, options *pkgsync.Options) (outcome pkgsync.Outcome) {
	ctx = logging.WithStudio(ctx, studio.ID, studio.Name)
	ctx, span := tracing.StartSpan(ctx, "studiosync.studio",
		attribute.String("studio.id", studio.ID),
		attribute.String("studio.name", studio.Name))
	logger := logging.FromContext(ctx)

	outcome = pkgsync.NewOutcome(studio)
	defer func() {
		var spanErr error
		if outcome.State == pkgsync.StateFailed {
			spanErr = errors.New(outcome.Error)
		}
		span.SetAttributes(attribute.String("outcome", string(outcome.State)))
		tracing.End(span, spanErr)
		logger.Info().Str("outcome", string(outcome.State)).Msg(outcome.Summary())
	}()

	matches, warnings := s.search(ctx, studio, options)
	outcome.Matches = matches
	outcome.Warnings = append(outcome.Warnings, warnings...)

	matched := false
	for _, m := range matches {
		switch m.Result.Outcome {
		case matcher.Exact, matcher.Fuzzy:
			matched = true
		case matcher.Ambiguous:
			outcome.AmbiguousSources = append(outcome.AmbiguousSources, m.Source)
		}
	}
	if !matched {
		outcome.State = pkgsync.StateSkippedNoMatch
		if len(outcome.AmbiguousSources) > 0 {
			outcome.State = pkgsync.StateSkippedAmbiguous
		}
		return outcome
	}

	plan, err := s.merger.Merge(ctx, studio, matches, options.Mode())
	if err != nil {
		outcome.Fail(fmt.Errorf("merge: %w", err))
		return outcome
	}
	outcome.WithPlan(plan)

	switch {
	case plan.IsEmpty():
		outcome.State = pkgsync.StateAlreadyComplete
		return outcome
	case options.DryRun:
		outcome.State = pkgsync.StateReported
		return outcome
	}

	applied, err := reconcile.Apply(ctx, s.catalog, studio, plan)
	if err != nil {
		outcome.Fail(fmt.Errorf("apply: %w", err))
		return outcome
	}
	outcome.State = pkgsync.StateApplied
	outcome.CreatedParentID = applied.CreatedParentID
	if applied.CreatedParentID != "" {
		metrics.ParentsCreatedTotal.Inc()
	}
	s.hooks.studioApplied(studio, applied.Studio)
	return outcome
}

// search queries every source for studio and matches the results. Sources
// run in parallel but the matches keep source priority order. A source that
// fails or times out counts as no match and adds a warning.
func (s *syncer) search(ctx context.Context, studio catalogs.Studio, options *pkgsync.Options) ([]reconcile.SourceMatch, []string) {
	srcs := s.sources.All()
	matches := make([]reconcile.SourceMatch, len(srcs))
	failures := make([]error, len(srcs))
	cfg := matcher.Config{FuzzyEnabled: options.FuzzyEnabled, Threshold: options.Threshold}

	var g errgroup.Group
	g.SetLimit(options.Concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			records, err := s.searchSource(ctx, src, studio.Name, options.SourceTimeout)
			matches[i] = reconcile.SourceMatch{Source: src.ID(), Result: matcher.Result{Outcome: matcher.None}}
			if err != nil {
				failures[i] = err
				return nil
			}
			matches[i].Result = s.matcher.Match(studio.Name, records, cfg)
			return nil
		})
	}
	_ = g.Wait()

	logger := logging.FromContext(ctx)
	var warnings []string
	for i, err := range failures {
		if err == nil {
			logger.Debug().
				Str("source", matches[i].Source.String()).
				Str("result", matches[i].Result.String()).
				Msg("Matched source")
			continue
		}
		warnings = append(warnings, fmt.Sprintf("source %s: %v", matches[i].Source, err))
	}
	return matches, warnings
}

func (s *syncer) searchSource(ctx context.Context, src sources.Source, name string, timeout time.Duration) ([]sources.Record, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx = logging.WithSource(ctx, src.ID().String())

	start := time.Now()
	records, err := src.Search(ctx, name)
	metrics.SourceSearchDuration.WithLabelValues(src.ID().String()).Observe(time.Since(start).Seconds())
	if err != nil {
		reason := "error"
		switch {
		case errors.IsTimeout(err):
			reason = "timeout"
		case errors.IsCanceled(err):
			reason = "canceled"
		case errors.IsRateLimited(err):
			reason = "rate_limited"
		}
		metrics.SourceErrorsTotal.WithLabelValues(src.ID().String(), reason).Inc()
		logging.FromContext(ctx).Warn().Err(err).Str("reason", reason).Msg("Source search failed")
		return nil, err
	}
	return records, nil
}
