package assets

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/storage"
)

func TestManagerPriorityAndCache(t *testing.T) {
	base, err := storage.OpenDir(filepath.Join(t.TempDir(), "base"))
	require.NoError(t, err)
	patch, err := storage.OpenDir(filepath.Join(t.TempDir(), "patch"))
	require.NoError(t, err)

	require.NoError(t, base.Write("map.json", []byte("base")))
	require.NoError(t, base.Write("region_0_0.0", []byte("chunk")))
	require.NoError(t, patch.Write("map.json", []byte("patch")))

	m := NewManager()
	m.AddArchive(base)
	m.AddArchive(patch)
	defer m.Close()

	data, err := m.Load("map.json")
	require.NoError(t, err)
	require.Equal(t, "patch", string(data))

	data, err = m.Load("region_0_0.0")
	require.NoError(t, err)
	require.Equal(t, "chunk", string(data))

	_, err = m.Load("region_9_9.0")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.True(t, m.Exists("region_0_0.0"))

	// Cached bytes survive until evicted.
	require.NoError(t, base.Write("region_0_0.0", []byte("rebaked")))
	data, _ = m.Load("region_0_0.0")
	require.Equal(t, "chunk", string(data))
	m.Evict("region_0_0.0")
	data, _ = m.Load("region_0_0.0")
	require.Equal(t, "rebaked", string(data))

	hits, misses := m.cache.Stats()
	require.Equal(t, 1, hits)
	require.Equal(t, 4, misses)
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Set("a", []byte{1})
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Clear()
	_, ok = c.Get("a")
	require.False(t, ok)
	hits, misses := c.Stats()
	require.Zero(t, hits)
	require.Equal(t, 1, misses)
}
