package install

import (
	"fmt"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/reference/assetref"
	"sopdrop.com/cli/sopdrop"
)

const (
	FlagTrust = "trust"
	FlagForce = "force"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install {reference}",
		Short: "Download an asset and record it in the local library",
		Long: `Install resolves the reference, downloads the payload through the
cache, runs the publisher review and places the asset for the Houdini
adapter: node packages on the clipboard file, HDAs in the hda
directory. The asset is recorded in the local library afterwards.

Assets with warnings ask for confirmation. HDAs always ask, they run
with full session privileges once installed.`,
		Example: `sopdrop install acme/scatter
sopdrop install acme/scatter@1.2.0 --trust
sopdrop install acme/scatter --force`,
		Args:              cobra.MatchAll(cobra.ExactArgs(1), AssetReferenceAsFirstPositional),
		RunE:              Install,
		DisableAutoGenTag: true,
	}

	cmd.Flags().Bool(FlagTrust, false, "accept security warnings without prompting, they are still logged")
	cmd.Flags().BoolP(FlagForce, "f", false, "redownload even when the version is cached")

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

func Install(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	trust, err := cmd.Flags().GetBool(FlagTrust)
	if err != nil {
		return fmt.Errorf("getting trust flag failed: %w", err)
	}
	force, err := cmd.Flags().GetBool(FlagForce)
	if err != nil {
		return fmt.Errorf("getting force flag failed: %w", err)
	}

	result, err := client.Install(cmd.Context(), args[0], sopdrop.PasteOptions{Trust: trust, Force: force})
	if err != nil {
		return fmt.Errorf("installing %q failed: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if result.Kind == pack.KindHDA {
		fmt.Fprintf(out, "HDA %s@%s saved to %s\n", result.Slug, result.Version, result.Path)
	} else {
		fmt.Fprintf(out, "Package %s@%s staged at %s\n", result.Slug, result.Version, result.Path)
	}
	_, err = fmt.Fprintln(out, "Recorded in the local library.")
	return err
}
