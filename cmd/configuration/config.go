// Package configuration wires the --config flag to the sopdrop
// configuration loader.
package configuration

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sopdrop.com/cli/internal/config"
)

// Configuration file flag and environment constants
const (
	ConfigEnvironmentKey  = "SOPDROP_CONFIG"
	ConfigCommandArgument = "config"
)

func RegisterConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(ConfigCommandArgument, "", `supply configuration by a given configuration file.
By default (without specifying a custom location with this flag), the file is read from one of the well known locations:
1. The path specified in the SOPDROP_CONFIG environment variable
2. $SOPDROP_HOME/config.json
3. $HOME/.sopdrop/config.json
A missing file is not an error, built-in defaults apply.`)
}

// GetConfigForCommand resolves the configuration for a command run.
// The --config flag wins over the SOPDROP_CONFIG environment variable,
// which wins over the default location below the sopdrop home.
func GetConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigCommandArgument)
	if path == "" {
		path = os.Getenv(ConfigEnvironmentKey)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(cmd.Context(), "configuration loaded",
		slog.String("path", cfg.Path()),
		slog.String("server", cfg.ServerURL),
		slog.String("server_source", string(cfg.ServerSource())))
	return cfg, nil
}
