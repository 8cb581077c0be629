// Package studiosync reconciles a local studio catalog against external
// metadata sources. For every local studio it searches each source, picks a
// match, merges the matched records into a plan, and applies the plan to the
// catalog, creating or linking the studio's parent on the way.
package studiosync

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/studiosync/internal/lock"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/hierarchy"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/reconcile"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Syncer runs studio reconciliation against an ordered list of sources.
type Syncer interface {
	// Run reconciles every studio in the catalog.
	Run(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Report, error)

	// RunStudio reconciles a single studio.
	RunStudio(ctx context.Context, studioID string, opts ...pkgsync.Option) (*pkgsync.Report, error)

	// Sources returns the sources in priority order.
	Sources() *sources.List

	// OnOutcome registers a callback invoked after each studio is processed.
	OnOutcome(OutcomeHook)

	// OnStudioApplied registers a callback invoked after a plan lands.
	OnStudioApplied(StudioAppliedHook)

	// OnRunFinished registers a callback invoked with every finished report.
	OnRunFinished(RunFinishedHook)
}

// Recorder persists finished run reports.
type Recorder interface {
	Record(ctx context.Context, report *pkgsync.Report) error
}

var _ Syncer = (*syncer)(nil)

// syncer is the internal implementation of the Syncer interface.
type syncer struct {
	catalog catalogs.Catalog
	sources *sources.List
	matcher *matcher.Matcher
	merger  *reconcile.Merger
	lock    *lock.Lock
	options *options

	hooks *hooks
}

// New creates a Syncer for catalog and srcs. Sources keep the order of srcs.
func New(catalog catalogs.Catalog, srcs *sources.List, opts ...Option) (Syncer, error) {
	if catalog == nil {
		return nil, errors.NewValidationError("catalog", nil, "catalog is required")
	}
	if srcs == nil || srcs.Len() == 0 {
		return nil, errors.NewValidationError("sources", nil, "at least one source is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	s := &syncer{
		catalog: catalog,
		sources: srcs,
		matcher: matcher.New(matcher.WithScorer(o.scorer)),
		merger:  reconcile.NewMerger(hierarchy.NewResolver(catalog)),
		lock:    o.lock,
		options: o,
		hooks:   newHooks(),
	}
	if s.lock == nil {
		s.lock = lock.New(o.lockFile)
	}
	return s, nil
}

// Sources returns the sources in priority order.
func (s *syncer) Sources() *sources.List {
	return s.sources
}

func (s *syncer) newRunID() string {
	if s.options.runID != nil {
		return s.options.runID()
	}
	return uuid.NewString()
}
