package sopdrop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"sigs.k8s.io/yaml"

	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/registry"
)

// Manifest describes one publishable asset, read from a sopdrop.yaml
// next to the exported package or HDA.
type Manifest struct {
	Name        string   `json:"name"`
	Context     string   `json:"context,omitempty"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Changelog   string   `json:"changelog,omitempty"`
	Package     string   `json:"package"`
}

// IsHDA reports whether the manifest points at an HDA file rather than
// a node package.
func (m *Manifest) IsHDA() bool {
	return strings.EqualFold(filepath.Ext(m.Package), pack.KindHDA.Ext())
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	if m.Version == "" {
		return errors.New("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a semantic version: %w", m.Version, err)
	}
	if m.Package == "" {
		return errors.New("package is required")
	}
	if !m.IsHDA() && m.Context == "" {
		return errors.New("context is required for node packages")
	}
	return nil
}

// LoadManifest reads and validates a publish manifest. A relative
// package path is resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	if !filepath.IsAbs(m.Package) {
		m.Package = filepath.Join(filepath.Dir(path), m.Package)
	}
	return &m, nil
}

// Publish uploads the asset a manifest describes. Node packages are
// verified against their embedded checksum before upload, HDA files
// stream as multipart.
func (c *Client) Publish(ctx context.Context, manifestPath string) (*registry.Asset, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	req := &registry.PublishRequest{
		Name:        m.Name,
		Context:     m.Context,
		Version:     m.Version,
		Description: m.Description,
		Tags:        m.Tags,
		Changelog:   m.Changelog,
	}

	if m.IsHDA() {
		file, err := os.Open(m.Package)
		if err != nil {
			return nil, fmt.Errorf("opening hda: %w", err)
		}
		defer file.Close()
		asset, err := c.reg.PublishHDA(ctx, req, filepath.Base(m.Package), file)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "published hda",
			slog.String("slug", asset.Slug),
			slog.String("version", m.Version))
		return asset, nil
	}

	data, err := os.ReadFile(m.Package)
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}
	pkg, err := pack.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", m.Package, err)
	}
	if err := pkg.Verify(); err != nil {
		return nil, fmt.Errorf("package %s: %w", m.Package, err)
	}
	if pkg.Context != "" && pkg.Context != m.Context {
		return nil, fmt.Errorf("manifest context %q does not match package context %q", m.Context, pkg.Context)
	}
	req.Package = json.RawMessage(data)

	asset, err := c.reg.Publish(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "published asset",
		slog.String("slug", asset.Slug),
		slog.String("version", m.Version))
	return asset, nil
}
