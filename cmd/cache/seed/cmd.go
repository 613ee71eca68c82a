package seed

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <archive>",
		Short: "Import cache entries from a tar archive",
		Long: `Seed imports payloads from a tar archive into the local cache, for
example a tarred cache directory handed around inside a team. Files
that do not look like cache entries or fail checksum validation are
skipped and logged.`,
		Example:           `sopdrop cache seed team-cache.tar`,
		Args:              cobra.ExactArgs(1),
		RunE:              Seed,
		DisableAutoGenTag: true,
	}
}

func Seed(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	archive, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening seed archive failed: %w", err)
	}
	defer func() {
		_ = archive.Close()
	}()

	imported, err := client.Cache().Seed(cmd.Context(), archive)
	if err != nil {
		return fmt.Errorf("seeding cache failed: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries.\n", imported)
	return err
}
