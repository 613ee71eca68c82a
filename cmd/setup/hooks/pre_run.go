// Package hooks holds the persistent pre-run hook of the root command.
// It installs the process logger, loads the configuration and attaches
// a ready client to the command context before any RunE executes.
package hooks

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sopdrop.com/cli/cmd/configuration"
	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/flags/log"
	"sopdrop.com/cli/internal/security"
	"sopdrop.com/cli/sopdrop"
)

func PreRunE(cmd *cobra.Command, _ []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	slog.SetDefault(logger)

	cfg, err := configuration.GetConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	prompter := security.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	client, err := sopdrop.New(cfg, sopdrop.WithPrompter(prompter))
	if err != nil {
		return fmt.Errorf("could not assemble client: %w", err)
	}

	ctx := sdctx.WithConfiguration(cmd.Context(), cfg)
	ctx = sdctx.WithClient(ctx, client)
	cmd.SetContext(ctx)

	// inherit IO from parent if exists
	if parent := cmd.Parent(); parent != nil {
		cmd.SetOut(parent.OutOrStdout())
		cmd.SetErr(parent.ErrOrStderr())
	}

	return nil
}
