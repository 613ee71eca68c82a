package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlepage/go-tarfs"

	"sopdrop.com/cli/internal/fsutil"
	"sopdrop.com/cli/internal/pack"
)

// FetchFunc retrieves an asset payload from the registry. It is only
// invoked when the cache cannot satisfy the request locally.
type FetchFunc func(ctx context.Context) ([]byte, pack.Kind, error)

// Entry describes a single cached payload. Name is the slug with the
// separating slash flattened to an underscore, as stored on disk.
type Entry struct {
	Name    string
	Version string
	Kind    pack.Kind
	Size    int64
}

// Cache stores downloaded asset payloads in a flat directory, keyed by
// slug and resolved version. Entries are validated before reuse and
// never evicted.
type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) Dir() string {
	return c.dir
}

// GetOrFetch returns the payload for a slug at an exact, already
// resolved version. A cached node package must match its embedded
// checksum, a cached HDA must match the registry checksum when one is
// known. Entries that fail validation are removed and fetched again,
// and fresh downloads pass the same validation before they are stored.
func (c *Cache) GetOrFetch(ctx context.Context, slug, version, checksum string, fetch FetchFunc) ([]byte, pack.Kind, error) {
	for _, kind := range []pack.Kind{pack.KindNode, pack.KindHDA} {
		path := c.entryPath(slug, version, kind)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading cache entry %s: %w", path, err)
		}
		if err := validate(data, kind, checksum); err != nil {
			slog.WarnContext(ctx, "discarding invalid cache entry",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if err := os.Remove(path); err != nil {
				return nil, "", fmt.Errorf("removing invalid cache entry %s: %w", path, err)
			}
			break
		}
		slog.DebugContext(ctx, "cache hit", slog.String("slug", slug), slog.String("version", version))
		return data, kind, nil
	}

	data, kind, err := fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := validate(data, kind, checksum); err != nil {
		return nil, "", fmt.Errorf("downloaded payload for %s@%s is invalid: %w", slug, version, err)
	}
	if err := c.Put(slug, version, kind, data); err != nil {
		return nil, "", err
	}
	slog.DebugContext(ctx, "cache fill",
		slog.String("slug", slug),
		slog.String("version", version),
		slog.Int("bytes", len(data)))
	return data, kind, nil
}

// Put stores a payload, replacing any previous entry for that version.
func (c *Cache) Put(slug, version string, kind pack.Kind, data []byte) error {
	return c.write(entryName(slug, version, kind), data)
}

// Clear removes the cache directory and everything in it.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Entries lists the cached payloads in lexical order. A cache directory
// that does not exist yet yields an empty list.
func (c *Cache) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		entry, ok := parseEntryName(d.Name())
		if !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("inspecting cache entry %s: %w", d.Name(), err)
		}
		entry.Size = info.Size()
		entries = append(entries, entry)
	}
	return entries, nil
}

// Size reports the total bytes held by the cache.
func (c *Cache) Size() (int64, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	return total, nil
}

// Seed imports entries from a tar archive, for example a tarred cache
// directory from another machine. Files that do not look like cache
// entries or fail validation are skipped. It returns the number of
// entries imported.
func (c *Cache) Seed(ctx context.Context, r io.Reader) (int, error) {
	tfs, err := tarfs.New(r)
	if err != nil {
		return 0, fmt.Errorf("opening seed archive: %w", err)
	}
	var imported int
	err = fs.WalkDir(tfs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		entry, ok := parseEntryName(d.Name())
		if !ok {
			return nil
		}
		data, err := fs.ReadFile(tfs, path)
		if err != nil {
			return fmt.Errorf("reading %s from seed archive: %w", path, err)
		}
		if err := validate(data, entry.Kind, ""); err != nil {
			slog.WarnContext(ctx, "skipping invalid seed entry",
				slog.String("name", d.Name()),
				slog.String("error", err.Error()))
			return nil
		}
		if err := c.write(d.Name(), data); err != nil {
			return err
		}
		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("walking seed archive: %w", err)
	}
	return imported, nil
}

func validate(data []byte, kind pack.Kind, checksum string) error {
	if kind == pack.KindHDA {
		if len(data) == 0 {
			return errors.New("empty archive")
		}
		return pack.VerifyHDA(data, checksum)
	}
	pkg, err := pack.Decode(data)
	if err != nil {
		return err
	}
	return pkg.Verify()
}

func (c *Cache) write(name string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(c.dir, name)
	if err := fsutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", path, err)
	}
	return nil
}

func (c *Cache) entryPath(slug, version string, kind pack.Kind) string {
	return filepath.Join(c.dir, entryName(slug, version, kind))
}

func entryName(slug, version string, kind pack.Kind) string {
	return strings.ReplaceAll(slug, "/", "_") + "@" + version + kind.Ext()
}

func parseEntryName(name string) (Entry, bool) {
	var kind pack.Kind
	base, ok := strings.CutSuffix(name, pack.KindNode.Ext())
	if ok {
		kind = pack.KindNode
	} else if base, ok = strings.CutSuffix(name, pack.KindHDA.Ext()); ok {
		kind = pack.KindHDA
	} else {
		return Entry{}, false
	}
	at := strings.LastIndex(base, "@")
	if at <= 0 || at == len(base)-1 {
		return Entry{}, false
	}
	return Entry{Name: base[:at], Version: base[at+1:], Kind: kind}, true
}
