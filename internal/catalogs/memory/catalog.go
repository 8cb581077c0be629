// Package memory provides an in-memory studio catalog. It backs offline runs
// against a YAML snapshot of the host's studios and serves as the catalog in
// tests.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/sources"
)

// WriteHook is consulted before every write. A non-nil error aborts the write.
type WriteHook func(op, id string) error

// Catalog is a thread-safe in-memory catalog that keeps insertion order.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	studios map[string]catalogs.Studio
	nextID  int
	writes  int
	hook    WriteHook
}

var _ catalogs.Catalog = (*Catalog)(nil)

// New creates a catalog holding studios in the given order. Studios without
// an id are assigned one.
func New(studios ...catalogs.Studio) *Catalog {
	c := &Catalog{studios: make(map[string]catalogs.Studio), nextID: 1}
	for _, s := range studios {
		c.insert(s.Clone())
	}
	return c
}

func (c *Catalog) insert(s catalogs.Studio) catalogs.Studio {
	if s.ID == "" {
		s.ID = strconv.Itoa(c.nextID)
	}
	if n, err := strconv.Atoi(s.ID); err == nil && n >= c.nextID {
		c.nextID = n + 1
	}
	if _, exists := c.studios[s.ID]; !exists {
		c.order = append(c.order, s.ID)
	}
	c.studios[s.ID] = s
	return s
}

// SetWriteHook installs a hook consulted before every write.
func (c *Catalog) SetWriteHook(h WriteHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = h
}

// Writes returns the number of successful writes.
func (c *Catalog) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}

// List implements catalogs.Reader.
func (c *Catalog) List(ctx context.Context) ([]catalogs.Studio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]catalogs.Studio, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.studios[id].Clone())
	}
	return out, nil
}

// Get implements catalogs.Reader.
func (c *Catalog) Get(_ context.Context, id string) (catalogs.Studio, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.studios[id]
	if !ok {
		return catalogs.Studio{}, errors.NewNotFoundError("studio", id)
	}
	return s.Clone(), nil
}

// FindByExternalID implements catalogs.Reader.
func (c *Catalog) FindByExternalID(_ context.Context, source sources.ID, externalID string) ([]catalogs.Studio, error) {
	return c.filter(func(s catalogs.Studio) bool {
		return externalID != "" && s.ExternalIDs.Get(source) == externalID
	}), nil
}

// FindByName implements catalogs.Reader.
func (c *Catalog) FindByName(_ context.Context, name string) ([]catalogs.Studio, error) {
	key := matcher.Normalize(name)
	return c.filter(func(s catalogs.Studio) bool {
		return key != "" && matcher.Normalize(s.Name) == key
	}), nil
}

func (c *Catalog) filter(keep func(catalogs.Studio) bool) []catalogs.Studio {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []catalogs.Studio
	for _, id := range c.order {
		if s := c.studios[id]; keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

// Create implements catalogs.Writer. Names are unique after normalization.
func (c *Catalog) Create(_ context.Context, n catalogs.NewStudio) (catalogs.Studio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check("create", ""); err != nil {
		return catalogs.Studio{}, err
	}
	if matcher.Normalize(n.Name) == "" {
		return catalogs.Studio{}, errors.NewValidationError("name", n.Name, "studio name is required")
	}
	for _, id := range c.order {
		if matcher.Normalize(c.studios[id].Name) == matcher.Normalize(n.Name) {
			return catalogs.Studio{}, errors.WrapResource("create", "studio", n.Name, errors.ErrAlreadyExists)
		}
	}
	if n.ParentID != "" {
		if _, ok := c.studios[n.ParentID]; !ok {
			return catalogs.Studio{}, errors.WrapResource("create", "studio", n.Name, errors.NewNotFoundError("studio", n.ParentID))
		}
	}

	s := c.insert(catalogs.Studio{Name: n.Name, ParentID: n.ParentID, ExternalIDs: n.ExternalIDs.Clone()})
	c.writes++
	return s.Clone(), nil
}

// Update implements catalogs.Writer.
func (c *Catalog) Update(_ context.Context, id string, u catalogs.Update) (catalogs.Studio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check("update", id); err != nil {
		return catalogs.Studio{}, err
	}
	s, ok := c.studios[id]
	if !ok {
		return catalogs.Studio{}, errors.NewNotFoundError("studio", id)
	}
	if u.ParentID != nil && *u.ParentID != "" {
		if *u.ParentID == id {
			return catalogs.Studio{}, errors.NewHierarchyConflictError(id, id, "studio cannot be its own parent")
		}
		if _, ok := c.studios[*u.ParentID]; !ok {
			return catalogs.Studio{}, errors.WrapResource("update", "studio", id, errors.NewNotFoundError("studio", *u.ParentID))
		}
	}

	s = s.Apply(u)
	c.studios[id] = s
	c.writes++
	return s.Clone(), nil
}

// Delete implements catalogs.Writer. Children of the deleted studio lose their parent.
func (c *Catalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check("delete", id); err != nil {
		return err
	}
	if _, ok := c.studios[id]; !ok {
		return errors.NewNotFoundError("studio", id)
	}
	delete(c.studios, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for oid, s := range c.studios {
		if s.ParentID == id {
			s.ParentID = ""
			c.studios[oid] = s
		}
	}
	c.writes++
	return nil
}

func (c *Catalog) check(op, id string) error {
	if c.hook == nil {
		return nil
	}
	if err := c.hook(op, id); err != nil {
		return errors.WrapResource(op, "studio", id, err)
	}
	return nil
}

// snapshot is the on-disk YAML layout.
type snapshot struct {
	Studios []catalogs.Studio `yaml:"studios"`
}

// Load reads a catalog from a YAML snapshot.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return New(snap.Studios...), nil
}

// Save writes the catalog to a YAML snapshot.
func (c *Catalog) Save(path string) error {
	studios, err := c.List(context.Background())
	if err != nil {
		return err
	}
	data, err := yaml.MarshalWithOptions(snapshot{Studios: studios}, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	return errors.WrapIO("write", path, os.WriteFile(path, data, constants.FilePermissions))
}
