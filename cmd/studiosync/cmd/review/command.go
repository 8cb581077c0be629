// Package review provides the review command for ambiguous matches the
// journal queued for a human decision.
package review

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/studiosync/cmd/application"
	"github.com/agentstation/studiosync/internal/cmd/output"
	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/pkg/errors"
)

// NewCommand creates the review command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review",
		GroupID: "management",
		Short:   "Inspect ambiguous matches and past runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newListCommand(app), newResolveCommand(app), newRunsCommand(app))
	return cmd
}

func openJournal(cmd *cobra.Command, app application.Application) (*journal.Journal, error) {
	j, err := app.Journal(cmd.Context())
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errors.NewConfigError("journal", "the journal is disabled; set journal.path", nil)
	}
	return j, nil
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List studios waiting for a match decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := openJournal(cmd, app)
			if err != nil {
				return err
			}
			items, err := j.Pending(cmd.Context())
			if err != nil {
				return err
			}
			return output.Review(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), items)
		},
	}
}

func newResolveCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Mark review items as handled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cmd, app)
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return errors.NewValidationError("id", arg, "must be a review item id")
				}
				if err := j.Resolve(cmd.Context(), id); err != nil {
					return err
				}
				app.Logger().Info().Int64("id", id).Msg("Resolved review item")
			}
			return nil
		},
	}
}

func newRunsCommand(app application.Application) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := openJournal(cmd, app)
			if err != nil {
				return err
			}
			runs, err := j.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return output.Runs(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
