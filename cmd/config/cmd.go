package config

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/config/server"
	sdctx "sopdrop.com/cli/internal/context"
)

// New represents the config command group. Without a sub-command it
// prints the effective configuration and where each value came from.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [server <url>]",
		Short: "Show or change the client configuration",
		Long: `Config prints the effective configuration after merging environment
variables, the config file and built-in defaults. Stored credentials
are masked.`,
		Example: `sopdrop config
sopdrop config server https://sopdrop.example.com`,
		Args:              cobra.NoArgs,
		RunE:              Show,
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(server.New())

	return cmd
}

// Show prints the effective configuration.
func Show(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}
	cfg := client.Config()

	token, err := cfg.Token()
	if err != nil {
		return fmt.Errorf("reading token failed: %w", err)
	}
	maskedToken := "(not set)"
	if token != "" {
		maskedToken = "***"
	}

	cache := "disabled"
	if cfg.CacheEnabled {
		cache = cfg.CacheDir()
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server\t%s (%s)\n", cfg.ServerURL, cfg.ServerSource())
	fmt.Fprintf(w, "Config file\t%s\n", cfg.Path())
	fmt.Fprintf(w, "Token\t%s\n", maskedToken)
	fmt.Fprintf(w, "Cache\t%s\n", cache)
	fmt.Fprintf(w, "Library\t%s\n", cfg.LibraryPath())
	if cfg.DefaultContext != "" {
		fmt.Fprintf(w, "Default context\t%s\n", cfg.DefaultContext)
	}
	if cfg.TeamSlug != "" {
		fmt.Fprintf(w, "Team\t%s\n", cfg.TeamSlug)
	}
	return w.Flush()
}
