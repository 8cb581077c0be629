// Package sync provides the sync command implementation.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/studiosync/cmd/application"
)

// Flags holds the sync command flags.
type Flags struct {
	DryRun    bool
	Force     bool
	Limit     int
	Threshold int
	NoFuzzy   bool
	Only      []string
	Exclude   []string
}

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync [studio-id]",
		GroupID: "core",
		Short:   "Fill in studio metadata from the configured sources",
		Args:    cobra.MaximumNArgs(1),
		Long: `Sync matches local studios against every configured source and writes
the merged metadata back to the catalog.

Without an argument every studio is processed, skipping studios that are
already linked to all sources. With a studio id only that studio is
processed, using a stricter fuzzy threshold.

By default only missing values are filled in. --force overwrites differing
values and the parent link with the sources' values.`,
		Example: `  studiosync sync                         # Sync all unlinked studios
  studiosync sync 42                      # Sync one studio
  studiosync sync --dry-run -o wide       # Preview every change
  studiosync sync --only 'brazzers*'      # Only matching studio names`,
		RunE: func(cmd *cobra.Command, args []string) error {
			studioID := ""
			if len(args) == 1 {
				studioID = args[0]
			}
			return Execute(cmd.Context(), app, cmd.OutOrStdout(), flags, studioID)
		},
	}

	cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "report changes without writing")
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "overwrite existing values and include linked studios")
	cmd.Flags().IntVar(&flags.Limit, "limit", 0, "process at most this many studios (0 for all)")
	cmd.Flags().IntVar(&flags.Threshold, "threshold", -1, "minimum fuzzy score 0-100 (default 85, or 95 for a single studio)")
	cmd.Flags().BoolVar(&flags.NoFuzzy, "no-fuzzy", false, "accept exact name matches only")
	cmd.Flags().StringSliceVar(&flags.Only, "only", nil, "only sync studios whose name matches a glob or regex")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "skip studios whose name matches a glob or regex")

	return cmd
}
