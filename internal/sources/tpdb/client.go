// Package tpdb provides a studio source backed by the ThePornDB REST API.
// The host configures ThePornDB as a stash-box endpoint, but studio lookups
// go through the REST sites API, which reports parent sites.
package tpdb

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/transport"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
	"github.com/agentstation/studiosync/pkg/tracing"
)

func init() {
	registry.Register(sources.TypeTPDB, func(ep registry.Endpoint) (sources.Source, error) {
		if ep.APIKey == "" {
			return nil, errors.ErrAPIKeyRequired
		}
		return New(ep.APIKey, WithName(ep.Name)), nil
	})
}

// DefaultSearchLimit caps the number of sites returned per search.
const DefaultSearchLimit = 100

// Response structures for the sites API.
type sitesResponse struct {
	Data []siteResponse `json:"data"`
}

type siteResponse struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Logo   string `json:"logo"`
	Poster string `json:"poster"`
	Parent *struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
	} `json:"parent"`
}

// Client implements sources.Source for ThePornDB.
type Client struct {
	name      string
	baseURL   string
	extra     []transport.Option
	transport *transport.Client
}

var _ sources.Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithName sets the display name.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTransport adds transport options.
func WithTransport(opts ...transport.Option) Option {
	return func(c *Client) { c.extra = append(c.extra, opts...) }
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{name: "ThePornDB", baseURL: constants.TPDBAPIURL}
	for _, opt := range opts {
		opt(c)
	}
	base := []transport.Option{
		transport.WithAuth(transport.BearerAuth{Key: apiKey}),
		transport.WithSource(c.name),
		transport.WithHTTPClient(&http.Client{Timeout: constants.TPDBTimeout}),
	}
	c.transport = transport.New(append(base, c.extra...)...)
	return c
}

// ID implements sources.Source. ThePornDB ids are stored under its GraphQL endpoint.
func (c *Client) ID() sources.ID { return sources.ID(constants.TPDBEndpoint) }

// Name implements sources.Source.
func (c *Client) Name() string { return c.name }

// Type implements sources.Source.
func (c *Client) Type() sources.Type { return sources.TypeTPDB }

// Search implements sources.Source.
func (c *Client) Search(ctx context.Context, name string) (records []sources.Record, err error) {
	ctx, span := tracing.StartSpan(ctx, "tpdb.search", attribute.String("term", name))
	defer func() { tracing.End(span, err) }()

	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", strconv.Itoa(DefaultSearchLimit))
	q.Set("status", "active")
	q.Set("include", "parent")
	endpoint := c.baseURL + "/sites?" + q.Encode()

	var resp sitesResponse
	if err := c.transport.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, errors.WrapSource(string(c.ID()), name, err)
	}

	records = make([]sources.Record, 0, len(resp.Data))
	for _, site := range resp.Data {
		if site.UUID == "" {
			continue
		}
		records = append(records, c.convertToRecord(site))
	}
	span.SetAttributes(attribute.Int("results", len(records)))
	return records, nil
}

// convertToRecord converts a site to a source record. The logo is preferred
// over the poster as the studio image.
func (c *Client) convertToRecord(site siteResponse) sources.Record {
	r := sources.Record{
		Source:     c.ID(),
		ExternalID: site.UUID,
		Name:       site.Name,
		URL:        site.URL,
		Image:      site.Logo,
	}
	if r.Image == "" {
		r.Image = site.Poster
	}
	if site.Parent != nil && site.Parent.UUID != "" {
		r.Parent = &sources.ParentStub{ExternalID: site.Parent.UUID, Name: site.Parent.Name}
	}
	return r
}
