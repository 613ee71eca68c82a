package preview

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/flags/enum"
	"sopdrop.com/cli/internal/reference/assetref"
)

const (
	FlagOutput = "output"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview {reference}",
		Short: "Inspect an asset without staging it",
		Long: `Preview downloads an asset through the cache and reports what a
paste would bring in: node counts, embedded Python, HDA dependencies
and the warnings the publisher review raises. Nothing is staged, the
clipboard and the library stay untouched.`,
		Example: `sopdrop preview acme/scatter
sopdrop preview acme/scatter@1.2.0 -ojson`,
		Args:              cobra.MatchAll(cobra.ExactArgs(1), AssetReferenceAsFirstPositional),
		RunE:              Preview,
		DisableAutoGenTag: true,
	}

	enum.VarP(cmd.Flags(), FlagOutput, "o", []string{"table", "json", "yaml"}, "output format of the preview")

	return cmd
}

func AssetReferenceAsFirstPositional(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing asset reference as first positional argument")
	}
	if _, err := assetref.Parse(args[0]); err != nil {
		return fmt.Errorf("parsing asset reference from first positional argument %q failed: %w", args[0], err)
	}
	return nil
}

func Preview(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	output, err := enum.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}

	result, err := client.Preview(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("previewing %q failed: %w", args[0], err)
	}

	reader, size, err := encodePreview(output, result)
	if err != nil {
		return fmt.Errorf("generating output failed: %w", err)
	}
	if _, err := io.CopyN(cmd.OutOrStdout(), reader, size); err != nil {
		return fmt.Errorf("writing preview failed: %w", err)
	}
	return nil
}
