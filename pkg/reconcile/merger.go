// Package reconcile merges the records matched for a studio across sources
// into a Plan and applies plans to the local catalog.
//
// Sources are consumed in priority order. Each source owns its external id
// slot; the shared url and image slots take the first usable value in
// priority order; the parent comes from the highest-priority source that
// reports one. Merge never iterates a map to build its output, so the same
// inputs always yield the same plan.
package reconcile

import (
	"context"
	"fmt"
	"net/url"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/hierarchy"
	"github.com/agentstation/studiosync/pkg/logging"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/sources"
)

// SourceMatch is the match result of one source, listed in priority order.
type SourceMatch struct {
	Source sources.ID     `json:"source" yaml:"source"`
	Result matcher.Result `json:"result" yaml:"result"`
}

// ParentResolver resolves a parent stub to a local studio.
type ParentResolver interface {
	Resolve(ctx context.Context, child catalogs.Studio, stub sources.ParentStub, source sources.ID) (hierarchy.Resolution, error)
}

// Merger computes plans.
type Merger struct {
	resolver ParentResolver
}

// NewMerger creates a Merger that resolves parents with resolver.
func NewMerger(resolver ParentResolver) *Merger {
	return &Merger{resolver: resolver}
}

// Merge computes the plan for local from the matches, which must be in
// source priority order. Matches that are not exact or fuzzy are ignored.
// Errors are catalog failures during parent resolution; a rejected parent is
// recorded in Plan.Conflict instead.
func (m *Merger) Merge(ctx context.Context, local catalogs.Studio, matches []SourceMatch, mode Mode) (Plan, error) {
	plan := Plan{StudioID: local.ID, Mode: mode}

	var usable []SourceMatch
	for _, sm := range matches {
		if sm.Result.Outcome.Matched() && sm.Result.Record != nil {
			usable = append(usable, sm)
		}
	}
	if len(usable) == 0 {
		return plan, nil
	}

	plan.shared(FieldURL, local.URL, usable, mode, func(r *sources.Record) string { return r.URL })
	plan.shared(FieldImage, local.Image, usable, mode, func(r *sources.Record) string { return r.Image })

	for _, sm := range usable {
		current := local.ExternalIDs.Get(sm.Source)
		next := sm.Result.Record.ExternalID
		switch {
		case next == "" || next == current:
		case current == "" || mode == Force:
			plan.FieldChanges = append(plan.FieldChanges, FieldChange{
				Field:  ExternalIDField(sm.Source),
				Source: sm.Source,
				Old:    current,
				New:    next,
			})
		default:
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("kept existing id %s at %s, source matched %s", current, sm.Source, next))
		}
	}

	if err := m.mergeParent(ctx, local, usable, mode, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// shared merges a single-valued field shared by all sources.
func (p *Plan) shared(field Field, current string, usable []SourceMatch, mode Mode, get func(*sources.Record) string) {
	if mode == FillMissing && current != "" {
		return
	}
	for _, sm := range usable {
		value := get(sm.Result.Record)
		if !isHTTPURL(value) {
			continue
		}
		if value != current {
			p.FieldChanges = append(p.FieldChanges, FieldChange{Field: field, Source: sm.Source, Old: current, New: value})
		}
		return
	}
}

func (m *Merger) mergeParent(ctx context.Context, local catalogs.Studio, usable []SourceMatch, mode Mode, plan *Plan) error {
	var winner *SourceMatch
	for i := range usable {
		if !usable[i].Result.Record.Parent.IsZero() {
			winner = &usable[i]
			break
		}
	}
	if winner == nil || m.resolver == nil {
		return nil
	}
	if mode == FillMissing && local.HasParent() {
		return nil
	}

	res, err := m.resolver.Resolve(ctx, local, *winner.Result.Record.Parent, winner.Source)
	var conflict *errors.HierarchyConflictError
	switch {
	case errors.As(err, &conflict):
		logging.FromContext(ctx).Warn().Err(err).Msg("Rejected parent change")
		plan.Conflict = conflict
		return nil
	case errors.IsValidationError(err):
		plan.Warnings = append(plan.Warnings, err.Error())
		return nil
	case err != nil:
		return err
	}

	if res.Kind == hierarchy.Existing && res.ParentID == local.ParentID {
		return nil
	}
	plan.ParentChange = &ParentChange{Resolution: res, PreviousParentID: local.ParentID}
	return nil
}

// isHTTPURL reports whether v is an absolute http or https URL.
func isHTTPURL(v string) bool {
	if v == "" {
		return false
	}
	u, err := url.Parse(v)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
