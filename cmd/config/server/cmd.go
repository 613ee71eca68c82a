package server

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server <url>",
		Short: "Set the registry server URL",
		Long: `Server persists the registry URL in the config file. The
SOPDROP_SERVER_URL environment variable still wins over the stored
value while it is set.`,
		Example:           `sopdrop config server https://sopdrop.example.com`,
		Args:              cobra.MatchAll(cobra.ExactArgs(1), URLAsFirstPositional),
		RunE:              Set,
		DisableAutoGenTag: true,
	}
}

// URLAsFirstPositional checks that the first argument is an absolute
// http or https URL.
func URLAsFirstPositional(_ *cobra.Command, args []string) error {
	parsed, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parsing server URL %q failed: %w", args[0], err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("server URL %q must be absolute with an http or https scheme", args[0])
	}
	return nil
}

func Set(cmd *cobra.Command, args []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}
	cfg := client.Config()

	cfg.SetServerURL(args[0])
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving configuration failed: %w", err)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Server URL set to %s\n", cfg.ServerURL)
	return err
}
