// Package sources provides the sources command, which lists the sources a
// sync would query in priority order.
package sources

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/studiosync/cmd/application"
	"github.com/agentstation/studiosync/internal/cmd/output"
)

// NewCommand creates the sources command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "sources",
		GroupID: "management",
		Short:   "List the configured sources in priority order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := app.Sources(cmd.Context())
			if err != nil {
				return err
			}
			return output.Sources(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), list)
		},
	}
}
