// Package stash implements the studio catalog on top of a Stash server's
// GraphQL API.
package stash

import (
	"context"
	"strings"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/transport"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/sources"
)

// Response structures for the Stash API.
type studioResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases"`
	URL          string   `json:"url"`
	ImagePath    string   `json:"image_path"`
	ParentStudio *struct {
		ID string `json:"id"`
	} `json:"parent_studio"`
	StashIDs []stashID `json:"stash_ids"`
}

type stashID struct {
	Endpoint string `json:"endpoint"`
	StashID  string `json:"stash_id"`
}

type findStudiosResponse struct {
	FindStudios struct {
		Count   int              `json:"count"`
		Studios []studioResponse `json:"studios"`
	} `json:"findStudios"`
}

// Catalog is a catalogs.Catalog backed by a Stash server.
type Catalog struct {
	endpoint  string
	transport *transport.Client
}

var _ catalogs.Catalog = (*Catalog)(nil)

// Config holds the connection settings.
type Config struct {
	URL    string `mapstructure:"url" validate:"required,url"`
	APIKey string `mapstructure:"api_key"`

	// SessionCookie authenticates plugin invocations.
	SessionCookie *Cookie `mapstructure:"-"`
}

// Cookie is a session cookie handed out by the server.
type Cookie struct {
	Name  string
	Value string
}

// New creates a catalog for the server at cfg.URL. The URL may point at the
// server root or at its /graphql endpoint.
func New(cfg Config, opts ...transport.Option) *Catalog {
	endpoint := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(endpoint, "/graphql") {
		endpoint += "/graphql"
	}

	auth := transport.Chain{transport.APIKeyAuth(cfg.APIKey)}
	if cfg.SessionCookie != nil {
		auth = append(auth, transport.CookieAuth{Name: cfg.SessionCookie.Name, Value: cfg.SessionCookie.Value})
	}
	base := []transport.Option{transport.WithAuth(auth), transport.WithSource("stash")}
	return &Catalog{
		endpoint:  endpoint,
		transport: transport.New(append(base, opts...)...),
	}
}

// Endpoint returns the GraphQL endpoint.
func (c *Catalog) Endpoint() string {
	return c.endpoint
}

func (c *Catalog) query(ctx context.Context, q string, vars map[string]any, target any) error {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()
	return c.transport.GraphQL(ctx, c.endpoint, q, vars, target)
}

func (c *Catalog) mutate(ctx context.Context, q string, vars map[string]any, target any) error {
	ctx, cancel := context.WithTimeout(ctx, constants.MutationTimeout)
	defer cancel()
	return c.transport.GraphQL(ctx, c.endpoint, q, vars, target)
}

func (c *Catalog) findStudios(ctx context.Context, q string, vars map[string]any) ([]catalogs.Studio, error) {
	var resp findStudiosResponse
	if err := c.query(ctx, q, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]catalogs.Studio, 0, len(resp.FindStudios.Studios))
	for _, s := range resp.FindStudios.Studios {
		out = append(out, s.toStudio())
	}
	return out, nil
}

// List implements catalogs.Reader.
func (c *Catalog) List(ctx context.Context) ([]catalogs.Studio, error) {
	studios, err := c.findStudios(ctx, allStudiosQuery, nil)
	if err != nil {
		return nil, errors.WrapResource("list", "studios", "", err)
	}
	return studios, nil
}

// Get implements catalogs.Reader.
func (c *Catalog) Get(ctx context.Context, id string) (catalogs.Studio, error) {
	var resp struct {
		FindStudio *studioResponse `json:"findStudio"`
	}
	if err := c.query(ctx, findStudioQuery, map[string]any{"id": id}, &resp); err != nil {
		return catalogs.Studio{}, errors.WrapResource("get", "studio", id, err)
	}
	if resp.FindStudio == nil {
		return catalogs.Studio{}, errors.NewNotFoundError("studio", id)
	}
	return resp.FindStudio.toStudio(), nil
}

// FindByExternalID implements catalogs.Reader.
func (c *Catalog) FindByExternalID(ctx context.Context, source sources.ID, externalID string) ([]catalogs.Studio, error) {
	studios, err := c.findStudios(ctx, findByStashIDQuery, map[string]any{
		"endpoint": string(source),
		"stash_id": externalID,
	})
	if err != nil {
		return nil, errors.WrapResource("find", "studio", externalID, err)
	}
	// The server filter is advisory on older versions; enforce it here.
	out := studios[:0]
	for _, s := range studios {
		if s.ExternalIDs.Get(source) == externalID {
			out = append(out, s)
		}
	}
	return out, nil
}

// FindByName implements catalogs.Reader. The server is asked for names
// containing the first word, since its EQUALS does not collapse whitespace;
// the result is narrowed to equal normalized names.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]catalogs.Studio, error) {
	term := strings.TrimSpace(name)
	if words := strings.Fields(term); len(words) > 0 {
		term = words[0]
	}
	studios, err := c.findStudios(ctx, findByNameQuery, map[string]any{"name": term})
	if err != nil {
		return nil, errors.WrapResource("find", "studio", name, err)
	}
	key := matcher.Normalize(name)
	out := studios[:0]
	for _, s := range studios {
		if matcher.Normalize(s.Name) == key {
			out = append(out, s)
		}
	}
	return out, nil
}

// Create implements catalogs.Writer.
func (c *Catalog) Create(ctx context.Context, n catalogs.NewStudio) (catalogs.Studio, error) {
	input := map[string]any{"name": n.Name}
	if n.ParentID != "" {
		input["parent_id"] = n.ParentID
	}
	if len(n.ExternalIDs) > 0 {
		input["stash_ids"] = toStashIDs(n.ExternalIDs)
	}

	var resp struct {
		StudioCreate *studioResponse `json:"studioCreate"`
	}
	if err := c.mutate(ctx, studioCreateMutation, map[string]any{"input": input}, &resp); err != nil {
		return catalogs.Studio{}, errors.WrapResource("create", "studio", n.Name, err)
	}
	if resp.StudioCreate == nil {
		return catalogs.Studio{}, errors.WrapResource("create", "studio", n.Name, errors.New("empty response"))
	}
	return resp.StudioCreate.toStudio(), nil
}

// Update implements catalogs.Writer. The server replaces the stash id list
// wholesale, so the current studio is read first and the id changes are
// merged into it.
func (c *Catalog) Update(ctx context.Context, id string, u catalogs.Update) (catalogs.Studio, error) {
	input := map[string]any{"id": id}
	if u.URL != nil {
		input["url"] = *u.URL
	}
	if u.Image != nil {
		input["image"] = *u.Image
	}
	if u.ParentID != nil {
		if *u.ParentID == "" {
			input["parent_id"] = nil
		} else {
			input["parent_id"] = *u.ParentID
		}
	}
	if len(u.ExternalIDs) > 0 {
		current, err := c.Get(ctx, id)
		if err != nil {
			return catalogs.Studio{}, err
		}
		merged := current.Apply(catalogs.Update{ExternalIDs: u.ExternalIDs})
		input["stash_ids"] = toStashIDs(merged.ExternalIDs)
	}

	var resp struct {
		StudioUpdate *studioResponse `json:"studioUpdate"`
	}
	if err := c.mutate(ctx, studioUpdateMutation, map[string]any{"input": input}, &resp); err != nil {
		return catalogs.Studio{}, errors.WrapResource("update", "studio", id, err)
	}
	if resp.StudioUpdate == nil {
		return catalogs.Studio{}, errors.NewNotFoundError("studio", id)
	}
	return resp.StudioUpdate.toStudio(), nil
}

// Delete implements catalogs.Writer.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	var resp struct {
		StudioDestroy bool `json:"studioDestroy"`
	}
	if err := c.mutate(ctx, studioDestroyMutation, map[string]any{"id": id}, &resp); err != nil {
		return errors.WrapResource("delete", "studio", id, err)
	}
	if !resp.StudioDestroy {
		return errors.NewNotFoundError("studio", id)
	}
	return nil
}

// StashBoxes returns the metadata endpoints configured on the server, in
// configuration order.
func (c *Catalog) StashBoxes(ctx context.Context) ([]registry.Endpoint, error) {
	var resp struct {
		Configuration struct {
			General struct {
				StashBoxes []registry.Endpoint `json:"stashBoxes"`
			} `json:"general"`
		} `json:"configuration"`
	}
	if err := c.query(ctx, configurationQuery, nil, &resp); err != nil {
		return nil, errors.WrapResource("get", "configuration", "stashBoxes", err)
	}
	return resp.Configuration.General.StashBoxes, nil
}

func (s studioResponse) toStudio() catalogs.Studio {
	st := catalogs.Studio{
		ID:      s.ID,
		Name:    s.Name,
		Aliases: s.Aliases,
		URL:     s.URL,
	}
	// The server serves a placeholder for studios without an image.
	if s.ImagePath != "" && !strings.Contains(s.ImagePath, "default=true") {
		st.Image = s.ImagePath
	}
	if s.ParentStudio != nil {
		st.ParentID = s.ParentStudio.ID
	}
	for _, sid := range s.StashIDs {
		if sid.Endpoint != "" && sid.StashID != "" {
			st.ExternalIDs = st.ExternalIDs.With(sources.ID(sid.Endpoint), sid.StashID)
		}
	}
	return st
}

func toStashIDs(ids catalogs.ExternalIDs) []stashID {
	out := make([]stashID, 0, len(ids))
	for _, src := range ids.Sources() {
		out = append(out, stashID{Endpoint: string(src), StashID: ids[src]})
	}
	return out
}
