// Package app provides the application context and dependency management
// for the studiosync CLI. It centralizes configuration, logging and the lazy
// construction of the catalog, sources, syncer and journal.
package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/studiosync"
	"github.com/agentstation/studiosync/cmd/application"
	"github.com/agentstation/studiosync/internal/catalogs/memory"
	"github.com/agentstation/studiosync/internal/catalogs/stash"
	"github.com/agentstation/studiosync/internal/journal"
	_ "github.com/agentstation/studiosync/internal/sources" // register source adapters
	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

var _ application.Application = (*App)(nil)

// App represents the studiosync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu      sync.Mutex
	stash   *stash.Config
	catalog catalogs.Catalog
	memory  *memory.Catalog
	sources *sources.List
	journal *journal.Journal
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// ConnectStash points the app at a Stash server.
func (a *App) ConnectStash(cfg stash.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stash = &cfg
}

// Catalog returns the local catalog: the YAML file when one is configured,
// otherwise the Stash server.
func (a *App) Catalog(ctx context.Context) (catalogs.Catalog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalogLocked()
}

func (a *App) catalogLocked() (catalogs.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}

	if a.stash == nil && a.config.CatalogFile != "" {
		c, err := memory.Load(a.config.CatalogFile)
		if err != nil {
			return nil, err
		}
		a.memory = c
		a.catalog = c
		return c, nil
	}

	cfg := stash.Config{URL: a.config.StashURL, APIKey: a.config.StashAPIKey}
	if a.stash != nil {
		cfg = *a.stash
	}
	if cfg.URL == "" {
		return nil, errors.NewConfigError("stash", "stash.url is required", nil)
	}
	a.catalog = stash.New(cfg)
	return a.catalog, nil
}

// Sources returns the configured sources. Without a sources override they
// are discovered from the Stash server's stash-box configuration; a TPDB API
// key adds or completes the ThePornDB source.
func (a *App) Sources(ctx context.Context) (*sources.List, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sourcesLocked(ctx)
}

func (a *App) sourcesLocked(ctx context.Context) (*sources.List, error) {
	if a.sources != nil {
		return a.sources, nil
	}

	endpoints := append([]registry.Endpoint(nil), a.config.Sources...)
	if len(endpoints) == 0 {
		catalog, err := a.catalogLocked()
		if err != nil {
			return nil, err
		}
		s, ok := catalog.(*stash.Catalog)
		if !ok {
			return nil, errors.NewConfigError("sources", "no sources configured; set sources when using a catalog file", nil)
		}
		discovered, err := s.StashBoxes(ctx)
		if err != nil {
			return nil, errors.WrapResource("discover", "sources", s.Endpoint(), err)
		}
		endpoints = discovered
	}
	endpoints = withTPDBKey(endpoints, a.config.TPDBAPIKey)

	list, err := registry.Build(endpoints)
	if err != nil {
		return nil, err
	}
	if list.Len() == 0 {
		return nil, errors.NewConfigError("sources", "no usable sources: every endpoint lacks an API key", nil)
	}
	a.sources = list
	return list, nil
}

// withTPDBKey fills the API key of a configured ThePornDB endpoint, or adds
// one at the lowest priority.
func withTPDBKey(endpoints []registry.Endpoint, key string) []registry.Endpoint {
	if key == "" {
		return endpoints
	}
	for i, ep := range endpoints {
		if strings.Contains(ep.Endpoint, constants.TPDBHostMarker) {
			if endpoints[i].APIKey == "" {
				endpoints[i].APIKey = key
			}
			return endpoints
		}
	}
	return append(endpoints, registry.Endpoint{Endpoint: constants.TPDBEndpoint, APIKey: key, Name: "ThePornDB"})
}

// Journal returns the run journal. It returns nil without error when the
// journal is disabled with an empty path.
func (a *App) Journal(ctx context.Context) (*journal.Journal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.journalLocked(ctx)
}

func (a *App) journalLocked(ctx context.Context) (*journal.Journal, error) {
	if a.journal != nil || a.config.JournalPath == "" {
		return a.journal, nil
	}
	j, err := journal.Open(ctx, a.config.JournalPath)
	if err != nil {
		return nil, err
	}
	a.journal = j
	return j, nil
}

// Syncer returns a syncer wired to the catalog, sources, lock file, journal
// and metrics file.
func (a *App) Syncer(ctx context.Context) (studiosync.Syncer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	catalog, err := a.catalogLocked()
	if err != nil {
		return nil, err
	}
	list, err := a.sourcesLocked(ctx)
	if err != nil {
		return nil, err
	}

	opts := []studiosync.Option{
		studiosync.WithLockFile(a.config.LockFile),
		studiosync.WithMetricsFile(a.config.MetricsFile),
	}
	j, err := a.journalLocked(ctx)
	if err != nil {
		return nil, err
	}
	if j != nil {
		opts = append(opts, studiosync.WithRecorder(j))
	}

	s, err := studiosync.New(catalog, list, opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}
	return s, nil
}

// RunDefaults returns run options derived from configuration.
func (a *App) RunDefaults() []pkgsync.Option {
	var opts []pkgsync.Option
	if a.config.SourceTimeout > 0 {
		opts = append(opts, pkgsync.WithSourceTimeout(a.config.SourceTimeout))
	}
	if a.config.Concurrency > 0 {
		opts = append(opts, pkgsync.WithConcurrency(a.config.Concurrency))
	}
	return opts
}

// Shutdown saves a modified offline catalog and closes the journal.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.memory != nil && a.memory.Writes() > 0 {
		if err := a.memory.Save(a.config.CatalogFile); err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Info().Str("file", a.config.CatalogFile).Msg("Saved catalog")
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, errors.WrapIO("close", a.config.JournalPath, err))
		}
		a.journal = nil
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		logger := NewLogger(config)
		a.logger = &logger
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithCatalog sets the catalog (useful for testing).
func WithCatalog(c catalogs.Catalog) Option {
	return func(a *App) error {
		a.catalog = c
		return nil
	}
}

// WithSources sets the source list (useful for testing).
func WithSources(list *sources.List) Option {
	return func(a *App) error {
		a.sources = list
		return nil
	}
}
