package search

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/flags/enum"
	"sopdrop.com/cli/internal/registry"
)

const (
	FlagContext = "context"
	FlagTags    = "tags"
	FlagLimit   = "limit"
	FlagOutput  = "output"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search {query}",
		Short: "Search the registry for assets",
		Long: `Search queries the registry full text index. Results can be narrowed
to a Houdini context (sop, vop, obj, ...) and to tags. A default
context from the configuration applies when none is given here.`,
		Example: `sopdrop search scatter
sopdrop search scatter --context sop --tags procedural,points
sopdrop search scatter -ojson`,
		Args:              cobra.ExactArgs(1),
		RunE:              Search,
		DisableAutoGenTag: true,
	}

	cmd.Flags().StringP(FlagContext, "c", "", "restrict results to a Houdini context")
	cmd.Flags().StringSliceP(FlagTags, "t", nil, "restrict results to assets carrying all given tags")
	cmd.Flags().Int(FlagLimit, 0, "maximum number of results, 0 lets the server decide")
	enum.VarP(cmd.Flags(), FlagOutput, "o", []string{"table", "json", "yaml"}, "output format of the search results")

	return cmd
}

func Search(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	context, err := cmd.Flags().GetString(FlagContext)
	if err != nil {
		return fmt.Errorf("getting context flag failed: %w", err)
	}
	tags, err := cmd.Flags().GetStringSlice(FlagTags)
	if err != nil {
		return fmt.Errorf("getting tags flag failed: %w", err)
	}
	limit, err := cmd.Flags().GetInt(FlagLimit)
	if err != nil {
		return fmt.Errorf("getting limit flag failed: %w", err)
	}
	output, err := enum.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}

	assets, err := client.Search(cmd.Context(), args[0], registry.SearchOptions{
		Context: context,
		Tags:    tags,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("searching for %q failed: %w", args[0], err)
	}

	if len(assets) == 0 && output == "table" {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "no assets matched %q\n", args[0])
		return err
	}

	reader, size, err := encodeAssets(output, assets)
	if err != nil {
		return fmt.Errorf("generating output failed: %w", err)
	}
	if _, err := io.CopyN(cmd.OutOrStdout(), reader, size); err != nil {
		return fmt.Errorf("writing search results failed: %w", err)
	}
	return nil
}
