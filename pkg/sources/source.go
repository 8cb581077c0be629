// Package sources defines the contract between the reconciliation engine and
// external studio metadata sources (stash-box instances, ThePornDB).
//
// A Source only looks records up; ranking candidates is the matcher's job.
// Sources are consumed as an ordered priority list: the first source wins
// when two sources disagree on a shared field or on a studio's parent.
//
// Example usage:
//
//	list, err := sources.NewList(stashdb, tpdb)
//	if err != nil {
//	    return err
//	}
//	records, err := list.At(0).Search(ctx, "Alpha Studio")
package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/studiosync/pkg/errors"
)

// ID identifies a source. It is the endpoint URL the local catalog stores
// external ids under, e.g. "https://stashdb.org/graphql".
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Type is the kind of adapter behind a source.
type Type string

// Source types.
const (
	TypeStashBox Type = "stashbox"
	TypeTPDB     Type = "tpdb"
	TypeStatic   Type = "static"
)

// Source looks up studio records by name in one external system.
type Source interface {
	// ID returns the endpoint key for this source.
	ID() ID

	// Name returns a human readable label, e.g. "StashDB".
	Name() string

	// Type returns the adapter type.
	Type() Type

	// Search returns records whose name matches name exactly, plus any
	// near-name candidates the source offers. An empty slice means nothing
	// was found; errors are reserved for transport and protocol failures.
	Search(ctx context.Context, name string) ([]Record, error)
}

// ParentStub references a record's parent at the same source.
// ExternalID is empty when the source only exposes the parent's name.
type ParentStub struct {
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Name       string `json:"name" yaml:"name"`
}

// IsZero reports whether the stub carries no usable reference.
func (p *ParentStub) IsZero() bool {
	return p == nil || (p.ExternalID == "" && strings.TrimSpace(p.Name) == "")
}

// Record is one studio as reported by a source. Records are built fresh for
// every lookup and must not be modified after construction.
type Record struct {
	Source     ID          `json:"source" yaml:"source"`
	ExternalID string      `json:"external_id" yaml:"external_id"`
	Name       string      `json:"name" yaml:"name"`
	Aliases    []string    `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	URL        string      `json:"url,omitempty" yaml:"url,omitempty"`
	Image      string      `json:"image,omitempty" yaml:"image,omitempty"`
	Parent     *ParentStub `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Names returns the record's name followed by its aliases.
func (r Record) Names() []string {
	names := make([]string, 0, 1+len(r.Aliases))
	names = append(names, r.Name)
	return append(names, r.Aliases...)
}

// String returns a compact description for logs.
func (r Record) String() string {
	return fmt.Sprintf("%s (%s@%s)", r.Name, r.ExternalID, r.Source)
}

// List is an ordered, duplicate free list of sources. Index 0 has the highest priority.
type List struct {
	sources []Source
}

// NewList creates a priority list in the given order.
func NewList(srcs ...Source) (*List, error) {
	seen := make(map[ID]struct{}, len(srcs))
	for _, src := range srcs {
		if src == nil {
			return nil, errors.NewValidationError("sources", nil, "nil source")
		}
		if _, dup := seen[src.ID()]; dup {
			return nil, errors.NewValidationError("sources", src.ID(), "duplicate source "+src.ID().String())
		}
		seen[src.ID()] = struct{}{}
	}
	return &List{sources: append([]Source(nil), srcs...)}, nil
}

// Len returns the number of sources.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.sources)
}

// At returns the source at priority index i.
func (l *List) At(i int) Source {
	return l.sources[i]
}

// All returns the sources in priority order.
func (l *List) All() []Source {
	if l == nil {
		return nil
	}
	return append([]Source(nil), l.sources...)
}

// IDs returns the source ids in priority order.
func (l *List) IDs() []ID {
	ids := make([]ID, 0, l.Len())
	for _, src := range l.All() {
		ids = append(ids, src.ID())
	}
	return ids
}

// Get returns a source by id.
func (l *List) Get(id ID) (Source, bool) {
	for _, src := range l.All() {
		if src.ID() == id {
			return src, true
		}
	}
	return nil, false
}

// Priority returns the index of id, or -1 when it is not in the list.
func (l *List) Priority(id ID) int {
	for i, src := range l.All() {
		if src.ID() == id {
			return i
		}
	}
	return -1
}

// Reorder returns a new list with the given ids first, in that order,
// followed by the remaining sources in their current order. Unknown ids are
// reported as a validation error.
func (l *List) Reorder(ids ...ID) (*List, error) {
	ordered := make([]Source, 0, l.Len())
	used := make(map[ID]bool, len(ids))
	for _, id := range ids {
		src, ok := l.Get(id)
		if !ok {
			return nil, errors.NewValidationError("sources", id, "unknown source "+id.String())
		}
		if used[id] {
			continue
		}
		used[id] = true
		ordered = append(ordered, src)
	}
	for _, src := range l.All() {
		if !used[src.ID()] {
			ordered = append(ordered, src)
		}
	}
	return NewList(ordered...)
}
