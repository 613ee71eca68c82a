package cache

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/cache/clear"
	"sopdrop.com/cli/cmd/cache/seed"
	sdctx "sopdrop.com/cli/internal/context"
)

// New represents the cache command group. Without a sub-command it
// reports what the local cache currently holds.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache [clear|seed]",
		Short: "Inspect and manage the local asset cache",
		Long: `Cache reports the payloads held in the local download cache. Cached
entries are keyed by asset and exact version, validated against their
checksum before reuse and never evicted on their own.`,
		Example: `sopdrop cache
sopdrop cache clear
sopdrop cache seed team-cache.tar`,
		Args:              cobra.NoArgs,
		RunE:              Status,
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(clear.New())
	cmd.AddCommand(seed.New())

	return cmd
}

// Status prints the cache directory, its entries and the total size.
func Status(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}
	store := client.Cache()

	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("listing cache failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err = fmt.Fprintf(out, "Cache is empty.\nDirectory: %s\n", store.Dir())
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Asset", "Version", "Kind", "Size"})
	var total int64
	for _, entry := range entries {
		t.AppendRow(table.Row{entry.Name, entry.Version, string(entry.Kind), fmt.Sprintf("%d B", entry.Size)})
		total += entry.Size
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	_, err = fmt.Fprintf(out, "\n%d entries, %d bytes total\nDirectory: %s\n", len(entries), total, store.Dir())
	return err
}
