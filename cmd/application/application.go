// Package application provides the application interface for studiosync commands.
//
// The Application interface is the contract between the app layer and the
// command implementations. Commands accept it instead of the concrete App so
// they can be tested with a Mock.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            syncer, err := app.Syncer(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            report, err := syncer.Run(cmd.Context(), app.RunDefaults()...)
//	            // ...
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/studiosync"
	"github.com/agentstation/studiosync/internal/catalogs/stash"
	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Application provides what commands need from the app layer.
type Application interface {
	// Catalog returns the local studio catalog, creating it lazily.
	Catalog(ctx context.Context) (catalogs.Catalog, error)

	// Sources returns the configured sources in priority order.
	Sources(ctx context.Context) (*sources.List, error)

	// Syncer returns a syncer wired to the catalog, sources, lock, journal
	// and metrics file.
	Syncer(ctx context.Context) (studiosync.Syncer, error)

	// Journal returns the run journal, opening it lazily.
	Journal(ctx context.Context) (*journal.Journal, error)

	// ConnectStash points the app at a Stash server, replacing the
	// configured connection. It must be called before Catalog.
	ConnectStash(cfg stash.Config)

	// RunDefaults returns run options derived from configuration.
	RunDefaults() []pkgsync.Option

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
