package stashbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/transport"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(registry.Endpoint{Endpoint: srv.URL + "/graphql", APIKey: "box-key", Name: "TestBox"},
		transport.WithBackoff(time.Millisecond, time.Millisecond))
	return srv, c
}

func TestSearch(t *testing.T) {
	fixture, err := os.ReadFile(filepath.Join("testdata", "search_studio.json"))
	require.NoError(t, err)

	srv, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "box-key", r.Header.Get("ApiKey"))
		assert.Equal(t, "/graphql", r.URL.Path)

		var body struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Alpha Studio", body.Variables["term"])
		_, _ = w.Write(fixture)
	})

	records, err := c.Search(context.Background(), "Alpha Studio")
	require.NoError(t, err)
	require.Len(t, records, 2, "entries without an id are dropped")

	id := sources.ID(srv.URL + "/graphql")
	assert.Equal(t, id, c.ID())
	assert.Equal(t, "TestBox", c.Name())
	assert.Equal(t, sources.TypeStashBox, c.Type())

	alpha := records[0]
	assert.Equal(t, id, alpha.Source)
	assert.Equal(t, "5c1b1f1e-0c9d-4a1b-9c53-0d1b8f1d2a01", alpha.ExternalID)
	assert.Equal(t, []string{"Alpha", "AlphaStudio"}, alpha.Aliases)
	assert.Equal(t, "https://alpha.example.com", alpha.URL, "HOME url preferred")
	assert.Equal(t, "https://cdn.stashdb.org/images/alpha.png", alpha.Image)
	require.NotNil(t, alpha.Parent)
	assert.Equal(t, sources.ParentStub{ExternalID: "9e0a7f3c-52f5-4e0b-8a43-8b3a1f7c4e10", Name: "Alpha Network"}, *alpha.Parent)

	extra := records[1]
	assert.Equal(t, "https://extra.example.com", extra.URL, "first url when no HOME")
	assert.Empty(t, extra.Image)
	assert.Nil(t, extra.Parent)
}

func TestSearchErrors(t *testing.T) {
	t.Run("graphql errors", func(t *testing.T) {
		_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[{"message":"not authorized"}]}`))
		})
		_, err := c.Search(context.Background(), "Alpha")

		var srcErr *errors.SourceError
		require.ErrorAs(t, err, &srcErr)
		var gqlErr *errors.GraphQLError
		assert.ErrorAs(t, err, &gqlErr)
	})

	t.Run("server down", func(t *testing.T) {
		_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Search(context.Background(), "Alpha")
		require.Error(t, err)
		assert.True(t, errors.IsSourceUnavailable(err))
	})
}

func TestRegisteredFactory(t *testing.T) {
	require.True(t, registry.Registered(sources.TypeStashBox))

	list, err := registry.Build([]registry.Endpoint{
		{Endpoint: "https://stashdb.org/graphql", APIKey: "k", Name: "StashDB"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	assert.IsType(t, &Client{}, list.At(0))
}
