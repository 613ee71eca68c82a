package list

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed assets",
		Long: `List shows every asset recorded in the local library, the installed
version and, after a sync, the newest version the registry knows.
Entries with a newer registry version are marked.`,
		Example:           `sopdrop library list`,
		Args:              cobra.NoArgs,
		RunE:              List,
		DisableAutoGenTag: true,
	}
}

func List(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	store, err := client.OpenLibrary(cmd.Context())
	if err != nil {
		return fmt.Errorf("opening library failed: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	assets, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing library failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(assets) == 0 {
		_, err = fmt.Fprintln(out, "Library is empty. Install something with \"sopdrop install\".")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Asset", "Installed", "Latest", "Kind", "Context", "Installed at"})
	var outdated int
	for _, asset := range assets {
		latest := asset.LatestVersion
		if asset.Outdated() {
			latest += " *"
			outdated++
		}
		t.AppendRow(table.Row{
			asset.Slug,
			asset.Version,
			latest,
			asset.Kind,
			strings.ToUpper(asset.Context),
			asset.InstalledAt.Format("2006-01-02"),
		})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	if outdated > 0 {
		_, err = fmt.Fprintf(out, "\n* %d assets have a newer version, run \"sopdrop install\" to update.\n", outdated)
		return err
	}
	return nil
}
