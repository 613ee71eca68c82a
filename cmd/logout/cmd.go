package logout

import (
	"fmt"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:               "logout",
		Short:             "Discard the stored registry token",
		Long:              `Logout removes the token file. Logging out while logged out is fine.`,
		Args:              cobra.NoArgs,
		RunE:              Logout,
		DisableAutoGenTag: true,
	}
}

func Logout(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}
	if err := client.Logout(cmd.Context()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return err
}
