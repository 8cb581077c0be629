// Package hierarchy resolves a source's parent reference to a local studio.
//
// Resolution tries, in order, the parent's external id at the source, then an
// exact normalized name lookup, and finally plans the creation of a new
// parent. Every candidate is checked against the child's subtree so a parent
// change can never close a cycle.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
	"github.com/agentstation/studiosync/pkg/sources"
)

// Kind is the kind of parent resolution.
type Kind string

// Resolution kinds.
const (
	Existing Kind = "existing"
	Create   Kind = "create"
)

// Resolution is where a studio's parent comes from.
type Resolution struct {
	Kind   Kind               `json:"kind" yaml:"kind"`
	Source sources.ID         `json:"source" yaml:"source"`
	Stub   sources.ParentStub `json:"stub" yaml:"stub"`

	// ParentID and ParentName identify the local parent for Existing.
	ParentID   string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ParentName string `json:"parent_name,omitempty" yaml:"parent_name,omitempty"`

	// Backfill is set when an Existing parent was found by name and lacks the
	// source's id.
	Backfill *Backfill `json:"backfill,omitempty" yaml:"backfill,omitempty"`

	// New holds the attributes of the parent to create for Create.
	New *catalogs.NewStudio `json:"new,omitempty" yaml:"new,omitempty"`
}

// Backfill records an external id to set on an existing parent.
type Backfill struct {
	StudioID   string     `json:"studio_id" yaml:"studio_id"`
	Source     sources.ID `json:"source" yaml:"source"`
	ExternalID string     `json:"external_id" yaml:"external_id"`
}

// String returns a compact description for logs and reports.
func (r Resolution) String() string {
	if r.Kind == Create {
		return fmt.Sprintf("create %q", r.New.Name)
	}
	return fmt.Sprintf("link %s (%s)", r.ParentID, r.ParentName)
}

// Resolver resolves parent stubs against the local catalog.
type Resolver struct {
	catalog catalogs.Reader
}

// NewResolver creates a Resolver reading from catalog.
func NewResolver(catalog catalogs.Reader) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve finds or plans the parent described by stub for child.
// Rejected parents are reported as a HierarchyConflictError; other errors are
// catalog failures.
func (r *Resolver) Resolve(ctx context.Context, child catalogs.Studio, stub sources.ParentStub, source sources.ID) (Resolution, error) {
	if stub.IsZero() {
		return Resolution{}, errors.NewValidationError("parent", stub, "empty parent reference")
	}
	res := Resolution{Source: source, Stub: stub}

	if stub.ExternalID != "" {
		found, err := r.catalog.FindByExternalID(ctx, source, stub.ExternalID)
		if err != nil {
			return Resolution{}, errors.WrapResource("find", "studio", stub.ExternalID, err)
		}
		switch len(found) {
		case 0:
		case 1:
			return r.existing(ctx, child, found[0], res)
		default:
			return Resolution{}, errors.NewHierarchyConflictError(child.ID, "",
				fmt.Sprintf("%d local studios are linked to parent %s at %s", len(found), stub.ExternalID, source))
		}
	}

	if stub.Name == "" {
		return Resolution{}, errors.NewHierarchyConflictError(child.ID, "",
			fmt.Sprintf("parent %s at %s has no name", stub.ExternalID, source))
	}

	found, err := r.catalog.FindByName(ctx, stub.Name)
	if err != nil {
		return Resolution{}, errors.WrapResource("find", "studio", stub.Name, err)
	}
	switch len(found) {
	case 0:
		res.Kind = Create
		res.New = &catalogs.NewStudio{Name: stub.Name}
		if stub.ExternalID != "" {
			res.New.ExternalIDs = catalogs.ExternalIDs{source: stub.ExternalID}
		}
		return res, nil
	case 1:
		parent := found[0]
		if stub.ExternalID != "" && parent.ExternalIDs.Get(source) == "" {
			res.Backfill = &Backfill{StudioID: parent.ID, Source: source, ExternalID: stub.ExternalID}
		} else if stub.ExternalID != "" && parent.ExternalIDs.Get(source) != stub.ExternalID {
			logging.FromContext(ctx).Warn().
				Str("parent_id", parent.ID).
				Str("existing", parent.ExternalIDs.Get(source)).
				Str("reported", stub.ExternalID).
				Msg("Parent matched by name carries a different id for this source, not backfilling")
		}
		return r.existing(ctx, child, parent, res)
	default:
		return Resolution{}, errors.NewHierarchyConflictError(child.ID, "",
			fmt.Sprintf("parent name %q matches %d local studios", stub.Name, len(found)))
	}
}

func (r *Resolver) existing(ctx context.Context, child, parent catalogs.Studio, res Resolution) (Resolution, error) {
	if err := r.CheckAcyclic(ctx, child.ID, parent); err != nil {
		return Resolution{}, err
	}
	res.Kind = Existing
	res.ParentID = parent.ID
	res.ParentName = parent.Name
	return res, nil
}

// CheckAcyclic verifies that linking childID under candidate keeps the tree
// acyclic: candidate must not be the child or one of its descendants. The
// walk stops at a missing parent or at a cycle already present in the
// catalog that does not involve the child.
func (r *Resolver) CheckAcyclic(ctx context.Context, childID string, candidate catalogs.Studio) error {
	if candidate.ID == childID {
		return errors.NewHierarchyConflictError(childID, candidate.ID, "studio cannot be its own parent")
	}

	visited := map[string]bool{candidate.ID: true}
	next := candidate.ParentID
	for next != "" {
		if next == childID {
			return errors.NewHierarchyConflictError(childID, candidate.ID, "parent is a descendant of the studio")
		}
		if visited[next] {
			logging.FromContext(ctx).Warn().Str("studio_id", next).Msg("Existing parent cycle in catalog")
			return nil
		}
		visited[next] = true

		ancestor, err := r.catalog.Get(ctx, next)
		if errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return errors.WrapResource("fetch", "studio", next, err)
		}
		next = ancestor.ParentID
	}
	return nil
}
