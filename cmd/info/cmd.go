package info

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
		Use:   "info {reference}",
		Short: "Show registry metadata and version history for an asset",
		Long: `Info fetches an asset's registry record together with all published
versions. The reference is {owner}/{name}; a version pin is accepted
and ignored, info always describes the asset as a whole.`,
		Example: `sopdrop info acme/scatter
sopdrop info acme/scatter -oyaml`,
		Args:              cobra.MatchAll(cobra.ExactArgs(1), AssetReferenceAsFirstPositional),
		RunE:              Info,
		DisableAutoGenTag: true,
	}

	enum.VarP(cmd.Flags(), FlagOutput, "o", []string{"table", "json", "yaml"}, "output format of the asset details")

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

func Info(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	output, err := enum.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}

	details, err := client.ShowInfo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching info for %q failed: %w", args[0], err)
	}

	reader, size, err := encodeInfo(output, details)
	if err != nil {
		return fmt.Errorf("generating output failed: %w", err)
	}
	if _, err := io.CopyN(cmd.OutOrStdout(), reader, size); err != nil {
		return fmt.Errorf("writing asset details failed: %w", err)
	}
	return nil
}
