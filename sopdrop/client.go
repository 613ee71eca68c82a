// Package sopdrop ties the registry client, the download cache, the
// security gate and the local library together behind the operations
// the CLI and the Houdini-side adapter call.
//
// The package itself never prints. Results go back to the caller,
// diagnostics go through slog, and payloads are handed to the host
// through files below the sopdrop home.
package sopdrop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sopdrop.com/cli/internal/cache"
	"sopdrop.com/cli/internal/config"
	"sopdrop.com/cli/internal/library"
	"sopdrop.com/cli/internal/reference/assetref"
	"sopdrop.com/cli/internal/registry"
	"sopdrop.com/cli/internal/security"
)

// Client bundles everything a sopdrop operation needs. It is built for
// one invocation at a time and is not safe for concurrent use.
type Client struct {
	cfg     *config.Config
	reg     *registry.Client
	cache   *cache.Cache
	gate    *security.Gate
	regOpts []registry.Option

	token string
	user  *registry.User
}

type options struct {
	httpClient registry.HTTPDoer
	prompter   security.Prompter
}

// Option adjusts how a Client is assembled.
type Option func(*options)

// WithHTTPClient replaces the HTTP client used for registry calls.
func WithHTTPClient(doer registry.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = doer
	}
}

// WithPrompter sets the confirmation prompt for the security gate.
// A nil prompter makes the gate refuse whenever confirmation would be
// required.
func WithPrompter(p security.Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// New assembles a client from the resolved configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	var regOpts []registry.Option
	if cfg.APIVersion != "" {
		regOpts = append(regOpts, registry.WithAPIVersion(cfg.APIVersion))
	}
	if o.httpClient != nil {
		regOpts = append(regOpts, registry.WithHTTPClient(o.httpClient))
	}
	return &Client{
		cfg:     cfg,
		reg:     registry.New(cfg.ServerURL, token, regOpts...),
		cache:   cache.New(cfg.CacheDir()),
		gate:    security.New(o.prompter),
		regOpts: regOpts,
		token:   token,
	}, nil
}

// Config returns the configuration the client was built from.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Cache exposes the download cache for maintenance commands.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// OpenLibrary opens the local library database.
func (c *Client) OpenLibrary(ctx context.Context) (*library.Store, error) {
	return library.Open(ctx, c.cfg.LibraryPath())
}

// Login verifies a personal access token against the registry and
// stores it on success. A rejected token also invalidates whatever
// token was stored before, the machine ends up logged out rather than
// silently keeping stale credentials.
func (c *Client) Login(ctx context.Context, token string) (*registry.User, error) {
	probe := registry.New(c.cfg.ServerURL, token, c.regOpts...)
	user, err := probe.Whoami(ctx)
	if err != nil {
		var authErr *registry.AuthError
		if errors.As(err, &authErr) {
			if derr := c.cfg.DeleteToken(); derr != nil {
				return nil, errors.Join(err, derr)
			}
			c.reg = registry.New(c.cfg.ServerURL, "", c.regOpts...)
			c.token = ""
			c.user = nil
		}
		return nil, err
	}
	if err := c.cfg.SaveToken(token); err != nil {
		return nil, err
	}
	c.reg = probe
	c.token = token
	c.user = user
	slog.InfoContext(ctx, "logged in",
		slog.String("username", user.Username),
		slog.String("server", c.cfg.ServerURL))
	return user, nil
}

// Logout discards the stored token. Logging out while logged out is
// not an error.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.cfg.DeleteToken(); err != nil {
		return err
	}
	c.reg = registry.New(c.cfg.ServerURL, "", c.regOpts...)
	c.token = ""
	c.user = nil
	slog.InfoContext(ctx, "logged out", slog.String("server", c.cfg.ServerURL))
	return nil
}

// Whoami returns the authenticated user, caching the first successful
// lookup for the lifetime of the client.
func (c *Client) Whoami(ctx context.Context) (*registry.User, error) {
	if c.user != nil {
		return c.user, nil
	}
	user, err := c.reg.Whoami(ctx)
	if err != nil {
		return nil, err
	}
	c.user = user
	return user, nil
}

// username is the best-effort identity for the security gate. A failed
// lookup must not fail the gate, it only costs the own-asset shortcut.
func (c *Client) username(ctx context.Context) string {
	if c.token == "" {
		return ""
	}
	user, err := c.Whoami(ctx)
	if err != nil {
		slog.DebugContext(ctx, "whoami lookup failed", slog.String("error", err.Error()))
		return ""
	}
	return user.Username
}

// Search queries the registry. The configured default context applies
// when the options name none.
func (c *Client) Search(ctx context.Context, query string, opts registry.SearchOptions) ([]registry.Asset, error) {
	if opts.Context == "" {
		opts.Context = c.cfg.DefaultContext
	}
	return c.reg.Search(ctx, query, opts)
}

// AssetInfo pairs an asset with its published versions.
type AssetInfo struct {
	Asset    *registry.Asset    `json:"asset"`
	Versions []registry.Version `json:"versions"`
}

// ShowInfo fetches the registry metadata and version history for an
// asset. A version pin in the reference is accepted and ignored, info
// is about the asset as a whole.
func (c *Client) ShowInfo(ctx context.Context, input string) (*AssetInfo, error) {
	ref, err := assetref.Parse(input)
	if err != nil {
		return nil, err
	}
	asset, err := c.reg.Info(ctx, ref.Slug())
	if err != nil {
		return nil, err
	}
	versions, err := c.reg.Versions(ctx, ref.Slug())
	if err != nil {
		return nil, err
	}
	return &AssetInfo{Asset: asset, Versions: versions}, nil
}

// TeamAssets lists the assets shared with a team, defaulting to the
// team from the configuration.
func (c *Client) TeamAssets(ctx context.Context, teamSlug string) ([]registry.Asset, error) {
	if teamSlug == "" {
		teamSlug = c.cfg.TeamSlug
	}
	if teamSlug == "" {
		return nil, errors.New("no team given and none configured, set team_slug in the config file")
	}
	return c.reg.TeamAssets(ctx, teamSlug)
}

// Sync refreshes the library's registry metadata. Concurrency and
// per-asset callbacks come from opts.
func (c *Client) Sync(ctx context.Context, opts library.SyncOptions) (*library.SyncResult, error) {
	store, err := c.OpenLibrary(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	result, err := store.Sync(ctx, c.reg, opts)
	if err != nil {
		return nil, fmt.Errorf("syncing library: %w", err)
	}
	return result, nil
}
