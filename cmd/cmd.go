package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/cache"
	"sopdrop.com/cli/cmd/code"
	configcmd "sopdrop.com/cli/cmd/config"
	"sopdrop.com/cli/cmd/configuration"
	"sopdrop.com/cli/cmd/generate"
	"sopdrop.com/cli/cmd/info"
	"sopdrop.com/cli/cmd/install"
	"sopdrop.com/cli/cmd/library"
	"sopdrop.com/cli/cmd/login"
	"sopdrop.com/cli/cmd/logout"
	"sopdrop.com/cli/cmd/preview"
	"sopdrop.com/cli/cmd/publish"
	"sopdrop.com/cli/cmd/search"
	"sopdrop.com/cli/cmd/setup/hooks"
	"sopdrop.com/cli/cmd/version"
	"sopdrop.com/cli/internal/flags/log"
)

// Execute adds all child commands to the Cmd command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the Cmd.
func Execute() {
	err := New().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sopdrop [sub-command]",
		Short: "The sopdrop registry client for Houdini assets",
		Long: `Sopdrop shares procedural node setups and digital assets through a
central registry. The client searches and inspects published assets,
stages node packages for the Houdini adapter to paste, installs HDAs,
and publishes your own work.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: hooks.PreRunE,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	configuration.RegisterConfigFlag(cmd)
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(login.New())
	cmd.AddCommand(logout.New())
	cmd.AddCommand(search.New())
	cmd.AddCommand(info.New())
	cmd.AddCommand(install.New())
	cmd.AddCommand(preview.New())
	cmd.AddCommand(code.New())
	cmd.AddCommand(publish.New())
	cmd.AddCommand(cache.New())
	cmd.AddCommand(configcmd.New())
	cmd.AddCommand(library.New())
	cmd.AddCommand(version.New())
	cmd.AddCommand(generate.New())
	return cmd
}
