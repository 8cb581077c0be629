package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentstation/studiosync/internal/utils/ptr"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/hierarchy"
	"github.com/agentstation/studiosync/pkg/sources"
)

// Mode selects how existing local values are treated.
type Mode string

const (
	// FillMissing only populates fields that are currently empty.
	FillMissing Mode = "fill_missing"
	// Force recomputes every field from the sources and overwrites differing values.
	Force Mode = "force"
)

// ModeFor returns Force when force is set and FillMissing otherwise.
func ModeFor(force bool) Mode {
	if force {
		return Force
	}
	return FillMissing
}

// Field names a mergeable studio field.
type Field string

// Shared fields.
const (
	FieldURL    Field = "url"
	FieldImage  Field = "image"
	FieldParent Field = "parent"
)

const externalIDPrefix = "external_id:"

// ExternalIDField returns the field holding the studio's id at source.
func ExternalIDField(source sources.ID) Field {
	return Field(externalIDPrefix + string(source))
}

// ExternalIDSource returns the source of an external id field.
func (f Field) ExternalIDSource() (sources.ID, bool) {
	s, ok := strings.CutPrefix(string(f), externalIDPrefix)
	return sources.ID(s), ok
}

// FieldChange is one field that changes value.
type FieldChange struct {
	Field  Field      `json:"field" yaml:"field"`
	Source sources.ID `json:"source" yaml:"source"`
	Old    string     `json:"old,omitempty" yaml:"old,omitempty"`
	New    string     `json:"new" yaml:"new"`
}

// String returns a compact description for logs.
func (c FieldChange) String() string {
	if c.Old == "" {
		return fmt.Sprintf("%s: set %q", c.Field, c.New)
	}
	return fmt.Sprintf("%s: %q -> %q", c.Field, c.Old, c.New)
}

// ParentChange links the studio to a parent, creating the parent first when needed.
type ParentChange struct {
	hierarchy.Resolution `yaml:",inline"`

	// PreviousParentID is the parent the studio had before the change.
	PreviousParentID string `json:"previous_parent_id,omitempty" yaml:"previous_parent_id,omitempty"`
}

// Plan is the set of changes computed for one studio.
type Plan struct {
	StudioID     string        `json:"studio_id" yaml:"studio_id"`
	Mode         Mode          `json:"mode" yaml:"mode"`
	FieldChanges []FieldChange `json:"field_changes,omitempty" yaml:"field_changes,omitempty"`
	ParentChange *ParentChange `json:"parent_change,omitempty" yaml:"parent_change,omitempty"`

	// Conflict is set when a parent change was rejected. The plan's field
	// changes still apply.
	Conflict *errors.HierarchyConflictError `json:"conflict,omitempty" yaml:"conflict,omitempty"`

	// Warnings lists values that were not applied, e.g. a differing external
	// id kept in fill_missing mode.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// IsEmpty reports whether the plan changes nothing. An empty plan means the
// studio is complete.
func (p Plan) IsEmpty() bool {
	return len(p.FieldChanges) == 0 && p.ParentChange == nil
}

// Contributions maps each changed field to the source that supplied the winning value.
func (p Plan) Contributions() map[Field]sources.ID {
	out := make(map[Field]sources.ID, len(p.FieldChanges)+1)
	for _, c := range p.FieldChanges {
		out[c.Field] = c.Source
	}
	if p.ParentChange != nil {
		out[FieldParent] = p.ParentChange.Source
	}
	return out
}

// ContributingSources returns the sources that supplied at least one change,
// in the order they first appear in the plan.
func (p Plan) ContributingSources() []sources.ID {
	var out []sources.ID
	add := func(id sources.ID) {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, c := range p.FieldChanges {
		add(c.Source)
	}
	if p.ParentChange != nil {
		add(p.ParentChange.Source)
	}
	return out
}

// Change returns the change for field, if any.
func (p Plan) Change(field Field) (FieldChange, bool) {
	for _, c := range p.FieldChanges {
		if c.Field == field {
			return c, true
		}
	}
	return FieldChange{}, false
}

// Update converts the field changes into a catalog update. The parent link is
// added by Apply once the parent id is known.
func (p Plan) Update() catalogs.Update {
	var u catalogs.Update
	for _, c := range p.FieldChanges {
		switch c.Field {
		case FieldURL:
			u.URL = ptr.String(c.New)
		case FieldImage:
			u.Image = ptr.String(c.New)
		default:
			if src, ok := c.Field.ExternalIDSource(); ok {
				if u.ExternalIDs == nil {
					u.ExternalIDs = make(catalogs.ExternalIDs)
				}
				u.ExternalIDs[src] = c.New
			}
		}
	}
	return u
}
