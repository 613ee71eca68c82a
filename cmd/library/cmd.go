package library

import (
	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/library/list"
	"sopdrop.com/cli/cmd/library/sync"
)

// New represents the library command group for the machine-local record
// of installed assets.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library {list|sync}",
		Short: "Work with the local library of installed assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(list.New())
	cmd.AddCommand(sync.New())

	return cmd
}
