package cache

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopdrop.com/cli/internal/pack"
)

// nodePackage builds a node package document whose embedded checksum
// matches its payload.
func nodePackage(tb testing.TB) []byte {
	tb.Helper()
	payload := []byte(`{"nodes": ["scatter1", "attribwrangle1"]}`)
	sum := sha256.Sum256(payload)
	doc := map[string]any{
		"format":   pack.FormatV2,
		"context":  "sop",
		"data":     base64.StdEncoding.EncodeToString(payload),
		"checksum": hex.EncodeToString(sum[:]),
	}
	data, err := json.Marshal(doc)
	require.NoError(tb, err)
	return data
}

func countingFetch(count *int, data []byte, kind pack.Kind) FetchFunc {
	return func(_ context.Context) ([]byte, pack.Kind, error) {
		*count++
		return data, kind, nil
	}
}

func TestGetOrFetch_FetchesOnce(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"))
	data := nodePackage(t)
	var fetches int

	got, kind, err := c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", countingFetch(&fetches, data, pack.KindNode))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, pack.KindNode, kind)
	assert.Equal(t, 1, fetches)

	got, kind, err = c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", countingFetch(&fetches, data, pack.KindNode))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, pack.KindNode, kind)
	assert.Equal(t, 1, fetches, "second call must be served from the cache")

	_, err = os.Stat(filepath.Join(c.Dir(), "acme_scatter@1.2.0.sopdrop"))
	require.NoError(t, err)
}

func TestGetOrFetch_InvalidEntryRefetched(t *testing.T) {
	c := New(t.TempDir())
	path := filepath.Join(c.Dir(), "acme_scatter@1.2.0.sopdrop")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	data := nodePackage(t)
	var fetches int
	got, _, err := c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", countingFetch(&fetches, data, pack.KindNode))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, fetches)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk, "invalid entry is replaced by the fresh download")
}

func TestGetOrFetch_HDAChecksum(t *testing.T) {
	hda := []byte("HouNC binary payload")
	sum := pack.Sum(hda)

	t.Run("matching checksum hits", func(t *testing.T) {
		c := New(t.TempDir())
		require.NoError(t, c.Put("studio/rig", "2.0.0", pack.KindHDA, hda))

		var fetches int
		got, kind, err := c.GetOrFetch(t.Context(), "studio/rig", "2.0.0", sum, countingFetch(&fetches, nil, pack.KindHDA))
		require.NoError(t, err)
		assert.Equal(t, hda, got)
		assert.Equal(t, pack.KindHDA, kind)
		assert.Zero(t, fetches)
	})

	t.Run("mismatched checksum refetches", func(t *testing.T) {
		c := New(t.TempDir())
		require.NoError(t, c.Put("studio/rig", "2.0.0", pack.KindHDA, []byte("stale bytes")))

		var fetches int
		got, _, err := c.GetOrFetch(t.Context(), "studio/rig", "2.0.0", sum, countingFetch(&fetches, hda, pack.KindHDA))
		require.NoError(t, err)
		assert.Equal(t, hda, got)
		assert.Equal(t, 1, fetches)
	})

	t.Run("unknown checksum trusts the entry", func(t *testing.T) {
		c := New(t.TempDir())
		require.NoError(t, c.Put("studio/rig", "2.0.0", pack.KindHDA, hda))

		var fetches int
		got, _, err := c.GetOrFetch(t.Context(), "studio/rig", "2.0.0", "", countingFetch(&fetches, nil, pack.KindHDA))
		require.NoError(t, err)
		assert.Equal(t, hda, got)
		assert.Zero(t, fetches)
	})
}

func TestGetOrFetch_InvalidDownloadRejected(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"))

	var fetches int
	_, _, err := c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", countingFetch(&fetches, []byte("garbage"), pack.KindNode))
	require.Error(t, err)
	assert.Equal(t, 1, fetches)

	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "invalid downloads must not be cached")
}

func TestGetOrFetch_FetchErrorPropagates(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"))
	boom := errors.New("registry unreachable")

	_, _, err := c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", func(_ context.Context) ([]byte, pack.Kind, error) {
		return nil, "", boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed fetch must not leave an entry behind")
}

func TestEntriesAndClear(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"))

	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "a cache directory that was never written is empty")

	data := nodePackage(t)
	require.NoError(t, c.Put("acme/scatter", "1.2.0", pack.KindNode, data))
	require.NoError(t, c.Put("studio/rig", "2.0.0", pack.KindHDA, []byte("hda-bytes")))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "README"), []byte("not an entry"), 0o644))

	entries, err = c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: "acme_scatter", Version: "1.2.0", Kind: pack.KindNode, Size: int64(len(data))}, entries[0])
	assert.Equal(t, "studio_rig", entries[1].Name)
	assert.Equal(t, pack.KindHDA, entries[1].Kind)

	size, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)+len("hda-bytes")), size)

	require.NoError(t, c.Clear())
	_, statErr := os.Stat(c.Dir())
	assert.True(t, os.IsNotExist(statErr))

	entries, err = c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSeed(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeTarFile := func(name string, data []byte) {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(data))}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	good := nodePackage(t)
	writeTarFile("acme_scatter@1.2.0.sopdrop", good)
	writeTarFile("broken_tool@0.1.0.sopdrop", []byte("garbage"))
	writeTarFile("notes.txt", []byte("unrelated"))
	require.NoError(t, tw.Close())

	c := New(filepath.Join(t.TempDir(), "cache"))
	imported, err := c.Seed(t.Context(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	var fetches int
	data, kind, err := c.GetOrFetch(t.Context(), "acme/scatter", "1.2.0", "", countingFetch(&fetches, nil, pack.KindNode))
	require.NoError(t, err)
	assert.Equal(t, good, data)
	assert.Equal(t, pack.KindNode, kind)
	assert.Zero(t, fetches, "seeded entries serve installs without network access")
}
