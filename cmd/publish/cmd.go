package publish

import (
	"fmt"

	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/flags/file"
	"sopdrop.com/cli/sopdrop"
)

const (
	FlagManifest        = "manifest"
	DefaultManifestName = "sopdrop.yaml"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an asset described by a manifest",
		Long: fmt.Sprintf(`Publish uploads an asset to the registry. The manifest, %q by
default, names the asset, its semantic version and the package file:
a .sopdrop node package exported from Houdini, or an .hda file.

Node packages are verified against their embedded checksum before
anything leaves the machine. Publishing requires a stored token, see
"sopdrop login".`, DefaultManifestName),
		Example: `sopdrop publish
sopdrop publish --manifest assets/scatter/sopdrop.yaml`,
		Args:              cobra.NoArgs,
		RunE:              Publish,
		DisableAutoGenTag: true,
	}

	file.Var(cmd.Flags(), FlagManifest, DefaultManifestName, "manifest describing the asset to publish")

	return cmd
}

func Publish(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	manifest, err := file.Get(cmd.Flags(), FlagManifest)
	if err != nil {
		return fmt.Errorf("getting manifest flag failed: %w", err)
	}
	if !manifest.Exists() {
		return fmt.Errorf("manifest %q does not exist", manifest.String())
	}
	doc, err := sopdrop.LoadManifest(manifest.String())
	if err != nil {
		return err
	}

	asset, err := client.Publish(cmd.Context(), manifest.String())
	if err != nil {
		return fmt.Errorf("publishing failed: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Published %s@%s\n", asset.Slug, doc.Version)
	return err
}
