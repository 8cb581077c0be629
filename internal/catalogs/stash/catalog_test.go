package stash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/transport"
	"github.com/agentstation/studiosync/internal/utils/ptr"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
)

const stashDB = "https://stashdb.org/graphql"

// fakeServer answers the operations the catalog sends.
type fakeServer struct {
	mu       sync.Mutex
	studios  map[string]map[string]any
	inputs   []map[string]any
	apiKey   string
	cookie   string
	requests int
}

func newFake() *fakeServer {
	return &fakeServer{studios: map[string]map[string]any{
		"1": {
			"id": "1", "name": "Alpha Studio", "aliases": []string{"Alpha"},
			"url": "", "image_path": "http://localhost:9999/studio/1/image?default=true",
			"parent_studio": nil,
			"stash_ids":     []map[string]string{{"endpoint": stashDB, "stash_id": "sdb-1"}},
		},
		"2": {
			"id": "2", "name": "Network", "aliases": []string{},
			"url": "https://network.example", "image_path": "http://localhost:9999/studio/2/image?t=1",
			"parent_studio": nil, "stash_ids": []map[string]string{},
		},
	}}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.apiKey = r.Header.Get("ApiKey")
	if c, err := r.Cookie("session"); err == nil {
		f.cookie = c.Value
	}

	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var data any
	switch {
	case strings.Contains(req.Query, "query AllStudios"):
		data = map[string]any{"findStudios": map[string]any{"count": len(f.studios), "studios": []any{f.studios["1"], f.studios["2"]}}}
	case strings.Contains(req.Query, "query FindStudio("):
		s, ok := f.studios[req.Variables["id"].(string)]
		if !ok {
			data = map[string]any{"findStudio": nil}
		} else {
			data = map[string]any{"findStudio": s}
		}
	case strings.Contains(req.Query, "FindStudiosByStashID"):
		// Simulate a server that ignores the filter.
		data = map[string]any{"findStudios": map[string]any{"studios": []any{f.studios["1"], f.studios["2"]}}}
	case strings.Contains(req.Query, "FindStudiosByName"):
		var out []any
		for _, id := range []string{"1", "2"} {
			name := strings.ToLower(f.studios[id]["name"].(string))
			if strings.Contains(name, strings.ToLower(req.Variables["name"].(string))) {
				out = append(out, f.studios[id])
			}
		}
		data = map[string]any{"findStudios": map[string]any{"studios": out}}
	case strings.Contains(req.Query, "mutation StudioCreate"):
		input := req.Variables["input"].(map[string]any)
		f.inputs = append(f.inputs, input)
		s := map[string]any{"id": "3", "name": input["name"], "stash_ids": input["stash_ids"]}
		f.studios["3"] = s
		data = map[string]any{"studioCreate": s}
	case strings.Contains(req.Query, "mutation StudioUpdate"):
		input := req.Variables["input"].(map[string]any)
		f.inputs = append(f.inputs, input)
		s := f.studios[input["id"].(string)]
		for k, v := range input {
			switch k {
			case "parent_id":
				s["parent_studio"] = map[string]any{"id": v}
			case "image":
				s["image_path"] = v
			case "id":
			default:
				s[k] = v
			}
		}
		data = map[string]any{"studioUpdate": s}
	case strings.Contains(req.Query, "mutation StudioDestroy"):
		_, ok := f.studios[req.Variables["id"].(string)]
		delete(f.studios, req.Variables["id"].(string))
		data = map[string]any{"studioDestroy": ok}
	case strings.Contains(req.Query, "query Configuration"):
		data = map[string]any{"configuration": map[string]any{"general": map[string]any{"stashBoxes": []map[string]string{
			{"endpoint": stashDB, "api_key": "sdb-key", "name": "StashDB"},
			{"endpoint": "https://theporndb.net/graphql", "api_key": "tpdb-key", "name": "ThePornDB"},
		}}}}
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]string{{"message": "unknown operation"}}})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func setup(t *testing.T) (*fakeServer, *Catalog) {
	t.Helper()
	fake := newFake()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c := New(Config{URL: srv.URL, APIKey: "stash-key", SessionCookie: &Cookie{Name: "session", Value: "cookie"}},
		transport.WithBackoff(time.Millisecond, time.Millisecond))
	return fake, c
}

func TestNewEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:9999/graphql", New(Config{URL: "http://localhost:9999/"}).Endpoint())
	assert.Equal(t, "http://localhost:9999/graphql", New(Config{URL: "http://localhost:9999/graphql"}).Endpoint())
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	fake, c := setup(t)

	studios, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, studios, 2)
	assert.Equal(t, "stash-key", fake.apiKey)
	assert.Equal(t, "cookie", fake.cookie)

	alpha := studios[0]
	assert.Equal(t, "Alpha Studio", alpha.Name)
	assert.Empty(t, alpha.Image, "placeholder image is not an image")
	assert.Equal(t, "sdb-1", alpha.ExternalIDs.Get(stashDB))
	assert.Equal(t, "http://localhost:9999/studio/2/image?t=1", studios[1].Image)

	found, err := c.FindByExternalID(ctx, stashDB, "sdb-1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)

	found, err = c.FindByName(ctx, "network")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)

	found, err = c.FindByName(ctx, " ALPHA   studio ")
	require.NoError(t, err)
	require.Len(t, found, 1, "whitespace and case are normalized")
	assert.Equal(t, "1", found[0].ID)

	found, err = c.FindByName(ctx, "Alpha")
	require.NoError(t, err)
	assert.Empty(t, found, "a shared first word is not a match")

	_, err = c.Get(ctx, "404")
	assert.True(t, errors.IsNotFound(err))
}

func TestWrites(t *testing.T) {
	ctx := context.Background()
	fake, c := setup(t)

	created, err := c.Create(ctx, catalogs.NewStudio{Name: "Parent", ExternalIDs: catalogs.ExternalIDs{stashDB: "p-1"}})
	require.NoError(t, err)
	assert.Equal(t, "3", created.ID)
	assert.Equal(t, "p-1", created.ExternalIDs.Get(stashDB))

	updated, err := c.Update(ctx, "1", catalogs.Update{
		URL:         ptr.String("https://alpha.example"),
		ParentID:    ptr.String("3"),
		ExternalIDs: catalogs.ExternalIDs{"https://theporndb.net/graphql": "tp-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://alpha.example", updated.URL)
	assert.Equal(t, "3", updated.ParentID)
	assert.Equal(t, "sdb-1", updated.ExternalIDs.Get(stashDB), "existing ids are kept")
	assert.Equal(t, "tp-1", updated.ExternalIDs.Get("https://theporndb.net/graphql"))

	last := fake.inputs[len(fake.inputs)-1]
	assert.Len(t, last["stash_ids"], 2, "full stash id list is sent")

	require.NoError(t, c.Delete(ctx, "3"))
	assert.True(t, errors.IsNotFound(c.Delete(ctx, "3")))
}

func TestStashBoxes(t *testing.T) {
	_, c := setup(t)

	boxes, err := c.StashBoxes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.Endpoint{
		{Endpoint: stashDB, APIKey: "sdb-key", Name: "StashDB"},
		{Endpoint: "https://theporndb.net/graphql", APIKey: "tpdb-key", Name: "ThePornDB"},
	}, boxes)
}
