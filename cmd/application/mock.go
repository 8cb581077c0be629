package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/studiosync"
	"github.com/agentstation/studiosync/internal/catalogs/stash"
	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

var _ Application = (*Mock)(nil)

// Mock implements Application for command tests. A nil function field
// returns a zero value, or a not found error for constructors.
type Mock struct {
	CatalogFunc      func(context.Context) (catalogs.Catalog, error)
	SourcesFunc      func(context.Context) (*sources.List, error)
	SyncerFunc       func(context.Context) (studiosync.Syncer, error)
	JournalFunc      func(context.Context) (*journal.Journal, error)
	RunDefaultsFunc  func() []pkgsync.Option
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string

	// Connected records the last ConnectStash call.
	Connected *stash.Config
}

// Catalog implements Application.
func (m *Mock) Catalog(ctx context.Context) (catalogs.Catalog, error) {
	if m.CatalogFunc != nil {
		return m.CatalogFunc(ctx)
	}
	return nil, errors.NewNotFoundError("catalog", "mock")
}

// Sources implements Application.
func (m *Mock) Sources(ctx context.Context) (*sources.List, error) {
	if m.SourcesFunc != nil {
		return m.SourcesFunc(ctx)
	}
	return nil, errors.NewNotFoundError("sources", "mock")
}

// Syncer implements Application.
func (m *Mock) Syncer(ctx context.Context) (studiosync.Syncer, error) {
	if m.SyncerFunc != nil {
		return m.SyncerFunc(ctx)
	}
	return nil, errors.NewNotFoundError("syncer", "mock")
}

// Journal implements Application.
func (m *Mock) Journal(ctx context.Context) (*journal.Journal, error) {
	if m.JournalFunc != nil {
		return m.JournalFunc(ctx)
	}
	return nil, errors.NewNotFoundError("journal", "mock")
}

// ConnectStash implements Application.
func (m *Mock) ConnectStash(cfg stash.Config) {
	m.Connected = &cfg
}

// RunDefaults implements Application.
func (m *Mock) RunDefaults() []pkgsync.Option {
	if m.RunDefaultsFunc != nil {
		return m.RunDefaultsFunc()
	}
	return nil
}

// Logger implements Application.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat implements Application.
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version implements Application.
func (m *Mock) Version() string { return "test" }

// Commit implements Application.
func (m *Mock) Commit() string { return "none" }

// Date implements Application.
func (m *Mock) Date() string { return "unknown" }

// BuiltBy implements Application.
func (m *Mock) BuiltBy() string { return "test" }
