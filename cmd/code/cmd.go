package code

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/reference/assetref"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "code {reference}",
		Short: "Print the source stored in a node package",
		Long: `Code prints what a node package would execute: the code field of
first generation packages, the serialized node graph of current ones.
Useful for reviewing an asset before pasting it. HDAs are binary and
have no recoverable source.`,
		Example:           `sopdrop code acme/scatter@1.2.0`,
		Args:              cobra.MatchAll(cobra.ExactArgs(1), AssetReferenceAsFirstPositional),
		RunE:              Code,
		DisableAutoGenTag: true,
	}
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

func Code(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	source, err := client.ShowCode(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching code for %q failed: %w", args[0], err)
	}

	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), source)
	return err
}
