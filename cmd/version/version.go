package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const (
	FlagFormat                = "format"
	FlagFormatShortHand       = "f"
	FlagFormatText            = "text"
	FlagFormatGoBuildInfo     = "gobuildinfo"
	FlagFormatGoBuildInfoJSON = "gobuildinfojson"
)

// BuildVersion is an external variable that can be set at build time to override the version.
// It is set to "n/a" by default, indicating that no version has been specified.
// The variable can be adjusted at build time with
//
//	-ldflags "-X sopdrop.com/cli/cmd/version.BuildVersion=1.2.3"
//
// If set, it overrides the module version detected from the Go build info.
var BuildVersion = "n/a"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Retrieve the build version of the sopdrop CLI",
		Long: fmt.Sprintf(`The version command retrieves the build version of the sopdrop CLI.

The default %[1]q format prints a single human readable line. When the
format is set to %[2]q, it outputs the Go build information as a string.
The format is standardized and unified across all golang applications.
%[3]q is equivalent, but in a structured JSON format.

The build info by default is drawn from the go module build information,
which is set at build time of the CLI. When officially built, it is
possibly overwritten with the released version.`, FlagFormatText, FlagFormatGoBuildInfo, FlagFormatGoBuildInfoJSON),
		Example: fmt.Sprintf(`sopdrop version --format %s`, FlagFormatGoBuildInfo),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString(FlagFormat)
			if err != nil {
				return err
			}
			ver, ok := debug.ReadBuildInfo()
			if !ok {
				return fmt.Errorf("no build info available")
			}
			if BuildVersion != "n/a" {
				// Override the version if specified
				ver.Main.Version = BuildVersion
			}
			switch format {
			case FlagFormatText:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "sopdrop version %s\n", ver.Main.Version)
				return err
			case FlagFormatGoBuildInfo:
				str := ver.String()
				_, err = io.Copy(cmd.OutOrStdout(), strings.NewReader(str))
				return err
			case FlagFormatGoBuildInfoJSON:
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ver)
			default:
				return cmd.Help()
			}
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.Flags().StringP(FlagFormat, FlagFormatShortHand, FlagFormatText, "format of the version output")
	return cmd
}
