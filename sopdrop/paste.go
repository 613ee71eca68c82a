package sopdrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sopdrop.com/cli/internal/fsutil"
	"sopdrop.com/cli/internal/library"
	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/reference/assetref"
	"sopdrop.com/cli/internal/registry"
	"sopdrop.com/cli/internal/security"
)

// Result describes an asset that passed the security gate and was
// placed for the host adapter.
type Result struct {
	Asset   *registry.Asset
	Slug    string
	Version string
	Kind    pack.Kind
	Package *pack.Package // nil for HDA payloads
	Path    string        // where the payload was placed
}

// clipboardDoc is the handoff document the Houdini adapter polls. The
// node payload stays base64 encoded exactly as packaged.
type clipboardDoc struct {
	Slug     string    `json:"slug"`
	Version  string    `json:"version"`
	Context  string    `json:"context"`
	Format   string    `json:"format"`
	Data     string    `json:"data"`
	Checksum string    `json:"checksum"`
	PastedAt time.Time `json:"pasted_at"`
}

// PasteOptions adjust how an asset is staged.
type PasteOptions struct {
	// Trust accepts security warnings without prompting. They are
	// still logged.
	Trust bool
	// Force refetches from the registry even when the resolved
	// version sits in the cache.
	Force bool
}

// Paste resolves a reference, fetches the payload through the cache,
// runs the security gate and places the result where the adapter picks
// it up: node packages land on the clipboard file, HDAs in the hda
// directory.
func (c *Client) Paste(ctx context.Context, input string, opts PasteOptions) (*Result, error) {
	ref, err := assetref.Parse(input)
	if err != nil {
		return nil, err
	}
	asset, err := c.reg.Info(ctx, ref.Slug())
	if err != nil {
		return nil, err
	}
	version, meta, err := c.reg.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	checksum := ""
	if meta != nil {
		checksum = meta.Checksum
	}

	data, kind, err := c.fetch(ctx, ref.Slug(), version, checksum, opts.Force)
	if err != nil {
		return nil, err
	}

	var pkg *pack.Package
	if kind == pack.KindNode {
		if pkg, err = pack.Decode(data); err != nil {
			return nil, fmt.Errorf("decoding package for %s@%s: %w", ref.Slug(), version, err)
		}
	}

	review := security.Review{Asset: asset, Package: pkg, Kind: kind, Username: c.username(ctx)}
	if err := c.gate.Approve(ctx, review, opts.Trust); err != nil {
		return nil, err
	}

	result := &Result{Asset: asset, Slug: ref.Slug(), Version: version, Kind: kind, Package: pkg}
	switch kind {
	case pack.KindHDA:
		result.Path, err = c.placeHDA(ref, version, data)
	default:
		result.Path, err = c.placeClipboard(ref, version, pkg)
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "asset ready",
		slog.String("slug", ref.Slug()),
		slog.String("version", version),
		slog.String("kind", string(kind)),
		slog.String("path", result.Path))
	return result, nil
}

// Install pastes the asset and records it in the local library.
func (c *Client) Install(ctx context.Context, input string, opts PasteOptions) (*Result, error) {
	result, err := c.Paste(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	store, err := c.OpenLibrary(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entry := library.Asset{
		Slug:          result.Slug,
		Version:       result.Version,
		Kind:          string(result.Kind),
		Context:       result.Asset.Context,
		Description:   result.Asset.Description,
		LatestVersion: result.Asset.LatestVersion,
	}
	if result.Package != nil && result.Package.Context != "" {
		entry.Context = result.Package.Context
	}
	if err := store.Record(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewResult is the inspection of an asset that was fetched but not
// handed to the host.
type PreviewResult struct {
	Asset    *registry.Asset
	Version  string
	Kind     pack.Kind
	Package  *pack.Package
	Size     int
	Warnings []security.Warning
}

// Preview fetches and inspects an asset without touching the clipboard
// or the library. The gate's warnings come back for display instead of
// prompting.
func (c *Client) Preview(ctx context.Context, input string) (*PreviewResult, error) {
	ref, err := assetref.Parse(input)
	if err != nil {
		return nil, err
	}
	asset, err := c.reg.Info(ctx, ref.Slug())
	if err != nil {
		return nil, err
	}
	version, meta, err := c.reg.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	checksum := ""
	if meta != nil {
		checksum = meta.Checksum
	}
	data, kind, err := c.fetch(ctx, ref.Slug(), version, checksum, false)
	if err != nil {
		return nil, err
	}
	var pkg *pack.Package
	if kind == pack.KindNode {
		if pkg, err = pack.Decode(data); err != nil {
			return nil, fmt.Errorf("decoding package for %s@%s: %w", ref.Slug(), version, err)
		}
	}
	return &PreviewResult{
		Asset:    asset,
		Version:  version,
		Kind:     kind,
		Package:  pkg,
		Size:     len(data),
		Warnings: security.Evaluate(security.Review{Asset: asset, Package: pkg, Kind: kind}),
	}, nil
}

// ShowCode returns the source stored in a node package: the code field
// for first generation packages, the decoded node graph for current
// ones. HDAs are binary and carry no recoverable source.
func (c *Client) ShowCode(ctx context.Context, input string) (string, error) {
	ref, err := assetref.Parse(input)
	if err != nil {
		return "", err
	}
	version, meta, err := c.reg.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	checksum := ""
	if meta != nil {
		checksum = meta.Checksum
	}
	data, kind, err := c.fetch(ctx, ref.Slug(), version, checksum, false)
	if err != nil {
		return "", err
	}
	if kind == pack.KindHDA {
		return "", fmt.Errorf("%s@%s is an HDA, its definition is binary and has no recoverable source", ref.Slug(), version)
	}
	pkg, err := pack.Decode(data)
	if err != nil {
		return "", fmt.Errorf("decoding package for %s@%s: %w", ref.Slug(), version, err)
	}
	if pkg.Code != "" {
		return pkg.Code, nil
	}
	payload, err := pkg.Payload()
	if err != nil {
		return "", fmt.Errorf("decoding payload for %s@%s: %w", ref.Slug(), version, err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		return string(payload), nil
	}
	return pretty.String(), nil
}

// fetch obtains the payload bytes, normally through the cache. force
// skips the cache lookup but still refreshes the entry for the next
// paste.
func (c *Client) fetch(ctx context.Context, slug, version, checksum string, force bool) ([]byte, pack.Kind, error) {
	fetch := func(ctx context.Context) ([]byte, pack.Kind, error) {
		payload, err := c.reg.Download(ctx, slug, version)
		if err != nil {
			return nil, "", err
		}
		kind := pack.KindHDA
		if payload.IsJSON() {
			kind = pack.KindNode
		}
		return payload.Data, kind, nil
	}
	if c.cfg.CacheEnabled && !force {
		return c.cache.GetOrFetch(ctx, slug, version, checksum, fetch)
	}
	data, kind, err := fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := verifyPayload(data, kind, checksum); err != nil {
		return nil, "", fmt.Errorf("downloaded payload for %s@%s is invalid: %w", slug, version, err)
	}
	if c.cfg.CacheEnabled {
		if err := c.cache.Put(slug, version, kind, data); err != nil {
			return nil, "", err
		}
	}
	return data, kind, nil
}

func verifyPayload(data []byte, kind pack.Kind, checksum string) error {
	if kind == pack.KindHDA {
		return pack.VerifyHDA(data, checksum)
	}
	pkg, err := pack.Decode(data)
	if err != nil {
		return err
	}
	return pkg.Verify()
}

func (c *Client) placeClipboard(ref *assetref.Ref, version string, pkg *pack.Package) (string, error) {
	doc := clipboardDoc{
		Slug:     ref.Slug(),
		Version:  version,
		Context:  pkg.Context,
		Format:   pkg.Format,
		Data:     pkg.Data,
		Checksum: pkg.Checksum,
		PastedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding clipboard: %w", err)
	}
	path := c.cfg.ClipboardPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating sopdrop home: %w", err)
	}
	if err := fsutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing clipboard %s: %w", path, err)
	}
	return path, nil
}

func (c *Client) placeHDA(ref *assetref.Ref, version string, data []byte) (string, error) {
	dir := c.cfg.HDADir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating hda directory: %w", err)
	}
	name := strings.ReplaceAll(ref.Slug(), "/", "_") + "@" + version + pack.KindHDA.Ext()
	path := filepath.Join(dir, name)
	if err := fsutil.WriteAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing hda %s: %w", path, err)
	}
	return path, nil
}
