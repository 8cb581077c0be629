// Package registry turns the host's configured metadata endpoints into an
// ordered source list. Adapter packages register a factory per source type
// from their init functions.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
	"github.com/agentstation/studiosync/pkg/sources"
)

// Endpoint is one configured metadata endpoint.
type Endpoint struct {
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	APIKey   string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
}

// Factory builds a source for an endpoint.
type Factory func(Endpoint) (sources.Source, error)

var (
	mu        sync.RWMutex
	factories = make(map[sources.Type]Factory)
)

// Register registers the factory for a source type.
func Register(t sources.Type, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[t] = f
}

// Registered reports whether a factory exists for t.
func Registered(t sources.Type) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[t]
	return ok
}

// TypeOf returns the adapter type serving endpoint.
func TypeOf(endpoint string) sources.Type {
	if strings.Contains(strings.ToLower(endpoint), constants.TPDBHostMarker) {
		return sources.TypeTPDB
	}
	return sources.TypeStashBox
}

// IDOf returns the source id for endpoint. ThePornDB is always keyed by its
// GraphQL endpoint, which is what the host stores its stash ids under.
func IDOf(endpoint string) sources.ID {
	if TypeOf(endpoint) == sources.TypeTPDB {
		return sources.ID(constants.TPDBEndpoint)
	}
	return sources.ID(strings.TrimSpace(endpoint))
}

// Build creates the sources for endpoints in order. Endpoints without an API
// key and duplicates of an earlier endpoint are skipped with a warning.
func Build(endpoints []Endpoint) (*sources.List, error) {
	seen := make(map[sources.ID]bool, len(endpoints))
	var list []sources.Source

	for _, ep := range endpoints {
		id := IDOf(ep.Endpoint)
		logger := logging.With().Str("source", string(id)).Logger()
		switch {
		case ep.Endpoint == "":
			continue
		case seen[id]:
			logger.Warn().Msg("Skipping duplicate endpoint")
			continue
		case ep.APIKey == "":
			logger.Warn().Msg("Skipping endpoint without API key")
			continue
		}
		seen[id] = true

		t := TypeOf(ep.Endpoint)
		mu.RLock()
		factory, ok := factories[t]
		mu.RUnlock()
		if !ok {
			return nil, errors.NewConfigError("sources", fmt.Sprintf("no adapter registered for %s", t), nil)
		}

		src, err := factory(ep)
		if err != nil {
			return nil, errors.NewConfigError("sources", "failed to build source "+ep.Endpoint, err)
		}
		list = append(list, src)
	}
	return sources.NewList(list...)
}
