// Package config manages the sopdrop home directory: the config.json
// document, the token file, and the well-known paths below ~/.sopdrop.
//
// The effective server URL follows the precedence env var > config file >
// built-in default. Environment overrides are read through SOPDROP_* vars
// and never written back to disk; Save persists only what belongs to the
// file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"sopdrop.com/cli/internal/fsutil"
)

// Built-in defaults applying when neither environment nor file configure a
// value.
const (
	DefaultServerURL      = "https://sopdrop.com"
	DefaultAPIVersion     = "v1"
	DefaultCacheMaxSizeMB = 500
)

// File and directory names inside the sopdrop home.
const (
	HomeDirName       = ".sopdrop"
	ConfigFileName    = "config.json"
	TokenFileName     = "token"
	CacheDirName      = "cache"
	HDADirName        = "hda"
	LibraryFileName   = "library.db"
	ClipboardFileName = "clipboard.json"
)

// Source tells where an effective value came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// File is the on-disk config.json document. Pointer fields distinguish
// absent from zero so defaults survive round trips.
type File struct {
	ServerURL      string `json:"server_url,omitempty"`
	APIVersion     string `json:"api_version,omitempty"`
	DefaultContext string `json:"default_context,omitempty"`
	CacheEnabled   *bool  `json:"cache_enabled,omitempty"`
	CacheMaxSizeMB int    `json:"cache_max_size_mb,omitempty"`
	TeamSlug       string `json:"team_slug,omitempty"`
	TeamName       string `json:"team_name,omitempty"`
	ActiveLibrary  string `json:"active_library,omitempty"`
}

// environment is the subset of configuration that may be supplied through
// the process environment.
type environment struct {
	ServerURL string `env:"SOPDROP_SERVER_URL"`
	Token     string `env:"SOPDROP_TOKEN"`
	Home      string `env:"SOPDROP_HOME"`
}

// Config is the effective configuration after merging environment, file,
// and defaults.
type Config struct {
	Home           string
	ServerURL      string
	APIVersion     string
	DefaultContext string
	CacheEnabled   bool
	CacheMaxSizeMB int
	TeamSlug       string
	TeamName       string
	ActiveLibrary  string

	serverSource Source
	envToken     string
	path         string
	file         File
}

// Load reads the configuration. An empty path means the default location
// {home}/config.json; a missing file is not an error and yields defaults.
func Load(path string) (*Config, error) {
	var envCfg environment
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parsing environment failed: %w", err)
	}

	home := envCfg.Home
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory failed: %w", err)
		}
		home = filepath.Join(userHome, HomeDirName)
	}

	if path == "" {
		path = filepath.Join(home, ConfigFileName)
	}

	var file File
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file %q failed: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults apply
	default:
		return nil, fmt.Errorf("reading config file %q failed: %w", path, err)
	}

	cfg := &Config{
		Home:           home,
		APIVersion:     DefaultAPIVersion,
		DefaultContext: file.DefaultContext,
		CacheEnabled:   true,
		CacheMaxSizeMB: DefaultCacheMaxSizeMB,
		TeamSlug:       file.TeamSlug,
		TeamName:       file.TeamName,
		ActiveLibrary:  file.ActiveLibrary,
		serverSource:   SourceDefault,
		envToken:       envCfg.Token,
		path:           path,
		file:           file,
	}

	cfg.ServerURL = DefaultServerURL
	if file.ServerURL != "" {
		cfg.ServerURL = file.ServerURL
		cfg.serverSource = SourceFile
	}
	if envCfg.ServerURL != "" {
		cfg.ServerURL = envCfg.ServerURL
		cfg.serverSource = SourceEnv
	}

	if file.APIVersion != "" {
		cfg.APIVersion = file.APIVersion
	}
	if file.CacheEnabled != nil {
		cfg.CacheEnabled = *file.CacheEnabled
	}
	if file.CacheMaxSizeMB > 0 {
		cfg.CacheMaxSizeMB = file.CacheMaxSizeMB
	}

	return cfg, nil
}

// ServerSource reports where the effective server URL came from.
func (c *Config) ServerSource() Source {
	return c.serverSource
}

// Path returns the config file location backing this configuration.
func (c *Config) Path() string {
	return c.path
}

// SetServerURL updates the effective server URL and marks it for
// persistence. Trailing slashes are stripped so request paths join
// cleanly. Save must be called to write it out.
func (c *Config) SetServerURL(serverURL string) {
	serverURL = strings.TrimRight(serverURL, "/")
	c.ServerURL = serverURL
	c.serverSource = SourceFile
	c.file.ServerURL = serverURL
}

// Save writes the file-backed part of the configuration. Environment
// overrides are not persisted.
func (c *Config) Save() error {
	if err := c.ensureHome(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config failed: %w", err)
	}
	if err := fsutil.WriteAtomic(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing config file %q failed: %w", c.path, err)
	}
	return nil
}

// TokenPath returns the token file location.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Home, TokenFileName)
}

// CacheDir returns the cache directory location.
func (c *Config) CacheDir() string {
	return filepath.Join(c.Home, CacheDirName)
}

// LibraryPath returns the local library database location, honoring an
// active_library override from the file.
func (c *Config) LibraryPath() string {
	if c.ActiveLibrary != "" {
		return c.ActiveLibrary
	}
	return filepath.Join(c.Home, LibraryFileName)
}

// ClipboardPath returns the staging file the host adapter watches.
func (c *Config) ClipboardPath() string {
	return filepath.Join(c.Home, ClipboardFileName)
}

// HDADir returns the directory pasted asset definitions are written to
// for the host adapter to install.
func (c *Config) HDADir() string {
	return filepath.Join(c.Home, HDADirName)
}

// Token returns the bearer token. SOPDROP_TOKEN wins over the token file;
// a missing file yields an empty token, which auth-required registry calls
// turn into an AuthError.
func (c *Config) Token() (string, error) {
	if c.envToken != "" {
		return c.envToken, nil
	}
	data, err := os.ReadFile(c.TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file failed: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveToken persists the token with owner-only permissions.
func (c *Config) SaveToken(token string) error {
	if err := c.ensureHome(); err != nil {
		return err
	}
	if err := fsutil.WriteAtomic(c.TokenPath(), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file failed: %w", err)
	}
	return nil
}

// DeleteToken removes the token file. A missing file is not an error.
func (c *Config) DeleteToken() error {
	if err := os.Remove(c.TokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file failed: %w", err)
	}
	return nil
}

func (c *Config) ensureHome() error {
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return fmt.Errorf("creating sopdrop home %q failed: %w", c.Home, err)
	}
	return nil
}
