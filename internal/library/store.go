package library

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotInstalled is returned when a slug has no library entry.
var ErrNotInstalled = errors.New("asset not installed")

// Asset is one row of the local library: an asset that was installed on
// this machine, plus the registry metadata picked up by the last sync.
type Asset struct {
	Slug          string
	Version       string
	Kind          string
	Context       string
	Description   string
	LatestVersion string
	InstalledAt   time.Time
	SyncedAt      time.Time
}

// Outdated reports whether the last sync saw a version newer than the
// installed one. Unsynced or unparseable entries count as current.
func (a *Asset) Outdated() bool {
	if a.LatestVersion == "" {
		return false
	}
	installed, err := semver.NewVersion(a.Version)
	if err != nil {
		return false
	}
	latest, err := semver.NewVersion(a.LatestVersion)
	if err != nil {
		return false
	}
	return latest.GreaterThan(installed)
}

// Store is the SQLite-backed record of installed assets.
type Store struct {
	db *sql.DB
}

// Open opens the library database at path, creating it and bringing the
// schema up to date on first use.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening library %s: %w", path, err)
	}
	// a single connection keeps writers serialized under the WAL
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening library %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts or replaces the library entry for an asset.
func (s *Store) Record(ctx context.Context, asset Asset) error {
	if asset.InstalledAt.IsZero() {
		asset.InstalledAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (slug, version, kind, context, description, latest_version, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			version = excluded.version,
			kind = excluded.kind,
			context = excluded.context,
			description = excluded.description,
			installed_at = excluded.installed_at`,
		asset.Slug, asset.Version, asset.Kind, asset.Context, asset.Description, asset.LatestVersion,
		formatTime(asset.InstalledAt))
	if err != nil {
		return fmt.Errorf("recording %s in library: %w", asset.Slug, err)
	}
	return nil
}

// List returns all library entries ordered by slug.
func (s *Store) List(ctx context.Context) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, version, kind, context, description, latest_version, installed_at, synced_at
		FROM assets ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	return assets, nil
}

// Get returns the library entry for a slug.
func (s *Store) Get(ctx context.Context, slug string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT slug, version, kind, context, description, latest_version, installed_at, synced_at
		FROM assets WHERE slug = ?`, slug)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotInstalled)
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// Remove drops the library entry for a slug.
func (s *Store) Remove(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("removing %s from library: %w", slug, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing %s from library: %w", slug, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", slug, ErrNotInstalled)
	}
	return nil
}

// MarkSynced stores the registry metadata captured for a slug during a
// sync pass.
func (s *Store) MarkSynced(ctx context.Context, slug, latestVersion, description string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE assets SET latest_version = ?, description = ?, synced_at = ? WHERE slug = ?`,
		latestVersion, description, formatTime(at), slug)
	if err != nil {
		return fmt.Errorf("marking %s synced: %w", slug, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*Asset, error) {
	var (
		asset     Asset
		installed string
		synced    sql.NullString
	)
	if err := row.Scan(&asset.Slug, &asset.Version, &asset.Kind, &asset.Context,
		&asset.Description, &asset.LatestVersion, &installed, &synced); err != nil {
		return nil, err
	}
	t, err := parseTime(installed)
	if err != nil {
		return nil, fmt.Errorf("parsing installed_at for %s: %w", asset.Slug, err)
	}
	asset.InstalledAt = t
	if synced.Valid && synced.String != "" {
		t, err := parseTime(synced.String)
		if err != nil {
			return nil, fmt.Errorf("parsing synced_at for %s: %w", asset.Slug, err)
		}
		asset.SyncedAt = t
	}
	return &asset, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating migration table: %w", err)
	}

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := migrationApplied(ctx, db, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		script, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, name, string(script)); err != nil {
			return err
		}
		slog.DebugContext(ctx, "applied library migration", slog.String("migration", name))
	}
	return nil
}

func migrationApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, name).Scan(&count); err != nil {
		return false, fmt.Errorf("checking migration %s: %w", name, err)
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, name, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("applying migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return fmt.Errorf("applying migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		name, formatTime(time.Now())); err != nil {
		tx.Rollback()
		return fmt.Errorf("applying migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("applying migration %s: %w", name, err)
	}
	return nil
}
