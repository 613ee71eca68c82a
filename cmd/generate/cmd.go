package generate

import (
	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/generate/docs"
)

// New represents the generate command
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate {docs}",
		Short: "Generate documentation for the sopdrop CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(docs.New())
	return cmd
}
