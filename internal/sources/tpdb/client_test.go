package tpdb

import (
	"context"
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
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
)

func TestSearch(t *testing.T) {
	fixture, err := os.ReadFile(filepath.Join("testdata", "sites.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites", r.URL.Path)
		assert.Equal(t, "Alpha Studio", r.URL.Query().Get("q"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tpdb-key", r.Header.Get("Authorization"))
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	c := New("tpdb-key", WithBaseURL(srv.URL))
	records, err := c.Search(context.Background(), "Alpha Studio")
	require.NoError(t, err)
	require.Len(t, records, 2)

	tpdb := sources.ID(constants.TPDBEndpoint)
	alpha := records[0]
	assert.Equal(t, sources.Record{
		Source:     tpdb,
		ExternalID: "0f2a77c1-7a51-4a1e-9d4b-3f1f2f0d6e21",
		Name:       "Alpha Studio",
		URL:        "https://alpha.example.com",
		Image:      "https://cdn.theporndb.net/sites/alpha/logo.png",
		Parent:     &sources.ParentStub{ExternalID: "b1d6a3a4-4d8e-4c2a-8f3e-9b1a2c3d4e5f", Name: "Alpha Network"},
	}, alpha)

	originals := records[1]
	assert.Equal(t, "https://cdn.theporndb.net/sites/originals/poster.jpg", originals.Image, "poster when no logo")
	assert.Empty(t, originals.URL)
	assert.Nil(t, originals.Parent)
}

func TestSearchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("bad", WithBaseURL(srv.URL), WithTransport(transport.WithBackoff(time.Millisecond, time.Millisecond)))
	_, err := c.Search(context.Background(), "Alpha")

	require.Error(t, err)
	assert.True(t, errors.IsAPIKeyError(err))
}

func TestIdentity(t *testing.T) {
	c := New("k", WithName("TPDB"))
	assert.Equal(t, sources.ID("https://theporndb.net/graphql"), c.ID())
	assert.Equal(t, "TPDB", c.Name())
	assert.Equal(t, sources.TypeTPDB, c.Type())
}

func TestRegistryDetectsTPDB(t *testing.T) {
	list, err := registry.Build([]registry.Endpoint{
		{Endpoint: "https://theporndb.net/graphql", APIKey: "k", Name: "ThePornDB"},
		{Endpoint: "https://theporndb.net/graphql/", APIKey: "k2", Name: "duplicate"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	assert.IsType(t, &Client{}, list.At(0))
	assert.Equal(t, sources.ID(constants.TPDBEndpoint), list.At(0).ID())
}
