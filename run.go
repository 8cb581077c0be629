package studiosync

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agentstation/studiosync/internal/metrics"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
	"github.com/agentstation/studiosync/pkg/tracing"
)

// Run reconciles every studio in the catalog.
func (s *syncer) Run(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Report, error) {
	return s.run(ctx, pkgsync.Defaults().Apply(opts...), "")
}

// RunStudio reconciles a single studio.
func (s *syncer) RunStudio(ctx context.Context, studioID string, opts ...pkgsync.Option) (*pkgsync.Report, error) {
	if studioID == "" {
		return nil, errors.NewValidationError("studio_id", studioID, "studio id is required")
	}
	return s.run(ctx, pkgsync.StudioDefaults().Apply(opts...), studioID)
}

func (s *syncer) run(ctx context.Context, options *pkgsync.Options, studioID string) (report *pkgsync.Report, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err = options.Validate(); err != nil {
		return nil, err
	}

	// Mutating runs are exclusive. The lock is taken before anything is read
	// so a rejected run leaves no trace.
	if !options.DryRun {
		release, err := s.lock.Acquire()
		if err != nil {
			metrics.RunsTotal.WithLabelValues(string(options.Mode()), "false", "already_running").Inc()
			return nil, err
		}
		defer release()
	}

	runID := s.newRunID()
	ctx = logging.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "studiosync.run",
		attribute.String("run.id", runID),
		attribute.Bool("dry_run", options.DryRun),
		attribute.String("mode", string(options.Mode())),
		attribute.String("studio.id", studioID))
	defer func() { tracing.End(span, err) }()

	logger := logging.FromContext(ctx)
	report = pkgsync.NewReport(runID, options, s.sources.IDs())
	defer func() { s.finish(ctx, report, err) }()

	studios, err := s.selectStudios(ctx, options, studioID)
	if err != nil {
		return report, err
	}
	logger.Info().
		Int("studios", len(studios)).
		Int("sources", s.sources.Len()).
		Bool("dry_run", options.DryRun).
		Str("mode", string(options.Mode())).
		Msg("Starting studio sync")

	for i, studio := range studios {
		if cerr := ctx.Err(); cerr != nil {
			logger.Warn().Int("processed", i).Int("total", len(studios)).Msg("Sync interrupted")
			return report, fmt.Errorf("sync interrupted after %d of %d studios: %w", i, len(studios), cerr)
		}
		// Earlier studios in the batch may have written to this one as a
		// parent, so the snapshot from List can be stale.
		if studioID == "" {
			current, err := s.catalog.Get(ctx, studio.ID)
			switch {
			case errors.IsNotFound(err):
				logger.Debug().Str("studio_id", studio.ID).Msg("Studio removed during run")
				continue
			case err != nil:
				outcome := pkgsync.NewOutcome(studio)
				outcome.Fail(errors.WrapResource("get", "studio", studio.ID, err))
				s.record(report, outcome)
				continue
			}
			studio = current
		}
		s.record(report, s.processStudio(ctx, studio, options))
	}
	return report, nil
}

func (s *syncer) record(report *pkgsync.Report, outcome pkgsync.Outcome) {
	report.Add(outcome)
	metrics.OutcomesTotal.WithLabelValues(string(outcome.State)).Inc()
	s.hooks.outcome(outcome)
}

// selectStudios returns the studios a run processes, in catalog order.
func (s *syncer) selectStudios(ctx context.Context, options *pkgsync.Options, studioID string) ([]catalogs.Studio, error) {
	if studioID != "" {
		studio, err := s.catalog.Get(ctx, studioID)
		if err != nil {
			return nil, errors.WrapResource("get", "studio", studioID, err)
		}
		return []catalogs.Studio{studio}, nil
	}

	all, err := s.catalog.List(ctx)
	if err != nil {
		return nil, errors.WrapResource("list", "studios", "", err)
	}

	ids := s.sources.IDs()
	studios := make([]catalogs.Studio, 0, len(all))
	for _, studio := range all {
		if options.SkipLinked && !options.Force && studio.LinkedTo(ids) {
			continue
		}
		if options.Select != nil && !options.Select(studio) {
			continue
		}
		studios = append(studios, studio)
		if options.Limit > 0 && len(studios) == options.Limit {
			break
		}
	}
	if skipped := len(all) - len(studios); skipped > 0 {
		logging.FromContext(ctx).Debug().Int("skipped", skipped).Msg("Studios not selected")
	}
	return studios, nil
}

// finish stamps the report and hands it to metrics, the recorder and hooks.
func (s *syncer) finish(ctx context.Context, report *pkgsync.Report, runErr error) {
	report.Finish()
	ctx = context.WithoutCancel(ctx)
	logger := logging.FromContext(ctx)

	result := "ok"
	if runErr != nil {
		result = "error"
		if errors.IsCanceled(runErr) {
			result = "canceled"
		}
	}
	metrics.RunsTotal.WithLabelValues(string(report.Mode), strconv.FormatBool(report.DryRun), result).Inc()
	metrics.RunDuration.Observe(report.Duration().Seconds())

	if s.options.recorder != nil {
		if err := s.options.recorder.Record(ctx, report); err != nil {
			logger.Error().Err(err).Msg("Failed to record run")
		}
	}
	if s.options.metricsFile != "" {
		if err := metrics.WriteTextfile(s.options.metricsFile); err != nil {
			logger.Error().Err(err).Msg("Failed to write metrics")
		}
	}

	logger.Info().
		Dur("duration", report.Duration()).
		Interface("counts", report.Counts).
		Msg(report.Summary())
	s.hooks.runFinished(report)
}
