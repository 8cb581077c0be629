package catalogs

import (
	"slices"
	"strings"

	"github.com/agentstation/studiosync/pkg/sources"
)

// Studio is the local catalog's record of a studio.
type Studio struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Aliases     []string    `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty"`
	Image       string      `json:"image,omitempty" yaml:"image,omitempty"`
	ParentID    string      `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ExternalIDs ExternalIDs `json:"external_ids,omitempty" yaml:"external_ids,omitempty"`
}

// HasParent reports whether the studio is linked to a parent.
func (s Studio) HasParent() bool {
	return s.ParentID != ""
}

// LinkedTo reports whether the studio has an external id for every given source.
func (s Studio) LinkedTo(ids []sources.ID) bool {
	for _, id := range ids {
		if s.ExternalIDs.Get(id) == "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the studio.
func (s Studio) Clone() Studio {
	s.Aliases = slices.Clone(s.Aliases)
	s.ExternalIDs = s.ExternalIDs.Clone()
	return s
}

// Apply returns a copy of the studio with u applied.
func (s Studio) Apply(u Update) Studio {
	out := s.Clone()
	if u.URL != nil {
		out.URL = *u.URL
	}
	if u.Image != nil {
		out.Image = *u.Image
	}
	if u.ParentID != nil {
		out.ParentID = *u.ParentID
	}
	for source, id := range u.ExternalIDs {
		out.ExternalIDs = out.ExternalIDs.With(source, id)
	}
	return out
}

// ExternalIDs maps a source to the studio's id at that source.
// A source contributes at most one id.
type ExternalIDs map[sources.ID]string

// Get returns the id for source or "".
func (e ExternalIDs) Get(source sources.ID) string {
	if e == nil {
		return ""
	}
	return e[source]
}

// With returns a copy with source set to id. An empty id removes the entry.
func (e ExternalIDs) With(source sources.ID, id string) ExternalIDs {
	out := e.Clone()
	if out == nil {
		out = make(ExternalIDs, 1)
	}
	if id == "" {
		delete(out, source)
		return out
	}
	out[source] = id
	return out
}

// Clone returns a copy of the map.
func (e ExternalIDs) Clone() ExternalIDs {
	if e == nil {
		return nil
	}
	out := make(ExternalIDs, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Sources returns the sources with an id, sorted.
func (e ExternalIDs) Sources() []sources.ID {
	ids := make([]sources.ID, 0, len(e))
	for k := range e {
		ids = append(ids, k)
	}
	slices.SortFunc(ids, func(a, b sources.ID) int { return strings.Compare(string(a), string(b)) })
	return ids
}

// NewStudio holds the attributes of a studio to create.
type NewStudio struct {
	Name        string      `json:"name" yaml:"name"`
	ParentID    string      `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ExternalIDs ExternalIDs `json:"external_ids,omitempty" yaml:"external_ids,omitempty"`
}

// Update is a partial studio update. Nil fields are left untouched. In
// ExternalIDs an empty value removes the source's id.
type Update struct {
	URL         *string     `json:"url,omitempty" yaml:"url,omitempty"`
	Image       *string     `json:"image,omitempty" yaml:"image,omitempty"`
	ParentID    *string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ExternalIDs ExternalIDs `json:"external_ids,omitempty" yaml:"external_ids,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.URL == nil && u.Image == nil && u.ParentID == nil && len(u.ExternalIDs) == 0
}
