package clear

import (
	"fmt"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached payload",
		Long: `Clear removes the cache directory and everything in it. Assets are
downloaded again on their next use. Placed clipboard files and saved
HDAs are not touched.`,
		Example:           `sopdrop cache clear`,
		Args:              cobra.NoArgs,
		RunE:              Clear,
		DisableAutoGenTag: true,
	}
}

func Clear(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	if err := client.Cache().Clear(); err != nil {
		return fmt.Errorf("clearing cache failed: %w", err)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return err
}
