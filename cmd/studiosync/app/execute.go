package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/studiosync/cmd/studiosync/cmd/plugin"
	"github.com/agentstation/studiosync/cmd/studiosync/cmd/review"
	sourcescmd "github.com/agentstation/studiosync/cmd/studiosync/cmd/sources"
	synccmd "github.com/agentstation/studiosync/cmd/studiosync/cmd/sync"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
)

// Exit codes.
const (
	ExitCodeOK             = 0
	ExitCodeError          = 1
	ExitCodeConfig         = 2
	ExitCodeAlreadyRunning = 3
)

// Execute runs the studiosync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "studiosync",
		Short:   "Sync studio metadata from stash-box instances and ThePornDB",
		Version: a.version,
		Long: `studiosync fills in missing studio metadata in a Stash library.

For every local studio it searches the configured stash-box instances and
ThePornDB, picks an exact or fuzzy name match per source, and merges the
matched records: external ids, URL, image and the parent studio, which is
created when it does not exist yet.

Sources are discovered from the Stash server's stash-box configuration
unless the sources key overrides them.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./studiosync.yaml or $HOME/studiosync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml, wide")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.String("catalog-file", "", "use an offline YAML catalog instead of the Stash server")

	rootCmd.SetVersionTemplate("studiosync {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand reloads configuration with the parsed flags before any
// command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if file := mustGetString(cmd, "config"); file != "" {
		config, err := LoadConfig(file)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
		mustGetString(cmd, "log-file"),
	)
	if file := mustGetString(cmd, "catalog-file"); file != "" {
		a.config.CatalogFile = file
	}
	if err := a.config.Validate(); err != nil {
		return errors.NewConfigError("config", "invalid configuration", err)
	}
	// The plugin host reads stderr in its own log protocol.
	if cmd.Name() == "plugin" && (a.config.LogFormat == "" || a.config.LogFormat == logging.FormatAuto) {
		a.config.LogFormat = logging.FormatStash
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(synccmd.NewCommand(a))
	rootCmd.AddCommand(plugin.NewCommand(a, os.Stdin))

	// Management commands
	rootCmd.AddCommand(sourcescmd.NewCommand(a))
	rootCmd.AddCommand(review.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "studiosync %s (commit %s, built %s by %s)\n",
				a.version, a.commit, a.date, a.builtBy)
			return err
		},
	}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var cfgErr *errors.ConfigError
	switch {
	case err == nil:
		return ExitCodeOK
	case errors.IsAlreadyRunning(err):
		return ExitCodeAlreadyRunning
	case errors.As(err, &cfgErr), errors.IsValidationError(err):
		return ExitCodeConfig
	default:
		return ExitCodeError
	}
}

// ExitOnError prints err and exits with its exit code.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(ExitCode(err))
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
