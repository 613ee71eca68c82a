package docs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

const FlagDir = "dir"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate markdown documentation for every command",
		Long: `Docs writes one markdown file per command into the target directory,
derived from the command tree itself. The directory is created when it
does not exist.`,
		Example:           `sopdrop generate docs --dir ./docs/reference`,
		Args:              cobra.NoArgs,
		RunE:              Generate,
		DisableAutoGenTag: true,
	}

	cmd.Flags().String(FlagDir, "./docs", "directory the markdown files are written to")

	return cmd
}

func Generate(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString(FlagDir)
	if err != nil {
		return fmt.Errorf("getting dir flag failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating docs directory %q failed: %w", dir, err)
	}

	if err := doc.GenMarkdownTree(cmd.Root(), dir); err != nil {
		return fmt.Errorf("generating markdown failed: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Documentation written to %s\n", dir)
	return err
}
