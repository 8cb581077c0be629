// Package stashbox provides a studio source backed by a stash-box GraphQL
// server such as StashDB.
package stashbox

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/transport"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
	"github.com/agentstation/studiosync/pkg/tracing"
)

func init() {
	registry.Register(sources.TypeStashBox, func(ep registry.Endpoint) (sources.Source, error) {
		return New(ep), nil
	})
}

const searchStudioQuery = `query SearchStudio($term: String!) {
  searchStudio(term: $term) {
    id
    name
    aliases
    urls { url type }
    images { url }
    parent { id name }
  }
}`

// Response structures for the stash-box API.
type searchResponse struct {
	SearchStudio []studioResponse `json:"searchStudio"`
}

type studioResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	URLs    []struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"urls"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Parent *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"parent"`
}

// Client implements sources.Source for one stash-box endpoint.
type Client struct {
	id        sources.ID
	name      string
	endpoint  string
	transport *transport.Client
}

var _ sources.Source = (*Client)(nil)

// New creates a client for ep.
func New(ep registry.Endpoint, opts ...transport.Option) *Client {
	name := ep.Name
	if name == "" {
		name = ep.Endpoint
	}
	base := []transport.Option{
		transport.WithAuth(transport.APIKeyAuth(ep.APIKey)),
		transport.WithSource(name),
	}
	return &Client{
		id:        registry.IDOf(ep.Endpoint),
		name:      name,
		endpoint:  ep.Endpoint,
		transport: transport.New(append(base, opts...)...),
	}
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return c.id }

// Name implements sources.Source.
func (c *Client) Name() string { return c.name }

// Type implements sources.Source.
func (c *Client) Type() sources.Type { return sources.TypeStashBox }

// Search implements sources.Source.
func (c *Client) Search(ctx context.Context, name string) (records []sources.Record, err error) {
	ctx, span := tracing.StartSpan(ctx, "stashbox.search",
		attribute.String("source", string(c.id)),
		attribute.String("term", name))
	defer func() { tracing.End(span, err) }()

	var resp searchResponse
	if err := c.transport.GraphQL(ctx, c.endpoint, searchStudioQuery, map[string]any{"term": name}, &resp); err != nil {
		return nil, errors.WrapSource(string(c.id), name, err)
	}

	records = make([]sources.Record, 0, len(resp.SearchStudio))
	for _, s := range resp.SearchStudio {
		if s.ID == "" {
			continue
		}
		records = append(records, c.convertToRecord(s))
	}
	span.SetAttributes(attribute.Int("results", len(records)))
	return records, nil
}

// convertToRecord converts a stash-box studio to a source record.
func (c *Client) convertToRecord(s studioResponse) sources.Record {
	r := sources.Record{
		Source:     c.id,
		ExternalID: s.ID,
		Name:       s.Name,
		Aliases:    s.Aliases,
	}
	for _, u := range s.URLs {
		if strings.EqualFold(u.Type, "HOME") && u.URL != "" {
			r.URL = u.URL
			break
		}
	}
	if r.URL == "" && len(s.URLs) > 0 {
		r.URL = s.URLs[0].URL
	}
	for _, img := range s.Images {
		if img.URL != "" {
			r.Image = img.URL
			break
		}
	}
	if s.Parent != nil && (s.Parent.ID != "" || s.Parent.Name != "") {
		r.Parent = &sources.ParentStub{ExternalID: s.Parent.ID, Name: s.Parent.Name}
	}
	return r
}
