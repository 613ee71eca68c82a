// Package log wires the sopdrop CLI's logging flags to log/slog.
// It supports JSON and text formats, the four standard levels, and
// stderr, stdout or file output destinations.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sopdrop.com/cli/internal/flags/enum"
	"sopdrop.com/cli/internal/flags/file"
)

// Log format constants
const (
	FormatFlagName = "logformat"

	FormatText = "text" // human-readable output for terminals
	FormatJSON = "json" // structured output for machine processing
)

// Log level constants
const (
	LevelFlagName = "loglevel"

	LevelInfo  = "info"
	LevelDebug = "debug"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log output constants
const (
	OutputFlagName = "logoutput"
	FileFlagName   = "logfile"

	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// RegisterLoggingFlags registers logformat, loglevel and logoutput on the
// given flag set. They are meant to be persistent flags on the root command
// so every subcommand logs the same way.
//
// Usage examples:
//
//	--logformat json --loglevel debug --logoutput stderr
func RegisterLoggingFlags(flagset *pflag.FlagSet) {
	enum.Var(flagset, FormatFlagName, []string{
		FormatText,
		FormatJSON,
	}, `set the log output format that is used to print individual logs
   text: Output logs in human-readable text format, suitable for console output
   json: Output logs in JSON format, suitable for machine processing`)

	enum.Var(flagset, LevelFlagName, []string{
		LevelInfo,
		LevelDebug,
		LevelWarn,
		LevelError,
	}, `sets the logging level
   debug: Show all logs including detailed debugging information
   info:  Show informational messages and above
   warn:  Show warnings and errors only
   error: Show errors only`)

	enum.Var(flagset, OutputFlagName, []string{
		OutputStderr,
		OutputStdout,
		OutputFile,
	}, `set the log output destination
   stderr: Write logs to standard error, keeping them apart from command output
   stdout: Write logs to standard output
   file:   Append logs to the file given with --logfile`)

	file.Var(flagset, FileFlagName, "", `file to append logs to when --logoutput is set to file`)
}

// GetBaseLogger builds a slog.Logger from the command's logging flags.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := levelFromCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to get log level: %w", err)
	}

	format, err := enum.Get(cmd.Flags(), FormatFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to get the log format from the command flag: %w", err)
	}

	output, err := enum.Get(cmd.Flags(), OutputFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to get the log output from the command flag: %w", err)
	}

	var writer io.Writer
	switch output {
	case OutputStdout:
		writer = cmd.OutOrStdout()
	case OutputStderr:
		writer = cmd.ErrOrStderr()
	case OutputFile:
		path, err := file.Get(cmd.Flags(), FileFlagName)
		if err != nil {
			return nil, fmt.Errorf("failed to get the log file from the command flag: %w", err)
		}
		if path.String() == "" {
			return nil, fmt.Errorf("--%s=%s requires --%s", OutputFlagName, OutputFile, FileFlagName)
		}
		// stays open for the rest of the process, closed on exit
		f, err := os.OpenFile(path.String(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = f
	default:
		return nil, fmt.Errorf("invalid log output: %s", output)
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	case FormatText:
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

func levelFromCommand(cmd *cobra.Command) (slog.Level, error) {
	value, err := enum.Get(cmd.Flags(), LevelFlagName)
	if err != nil {
		return slog.LevelWarn, err
	}
	switch value {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", value)
	}
}
