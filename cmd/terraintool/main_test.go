package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "map")
	cfg.Terrain = config.TerrainConfig{
		HeightFormat: "float32",
		MinHeight:    -100,
		MaxHeight:    100,
		Scale:        1,
		SectionSize:  16,
		LODCount:     3,
	}
	cfg.Streaming.RegionSize = 1
	cfg.Streaming.RegionLODLevels = 2
	return cfg
}

func TestCreateEditBakeStream(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, cmdCreate(ctx, cfg, []string{"-w", "3", "-h", "1", "-height", "2"}))
	require.NoError(t, cmdEdit(ctx, cfg, []string{"-x", "8", "-y", "8", "-radius", "2", "-strength", "5", "-falloff", "constant"}))

	a, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	require.NoError(t, err)
	d, err := mapsource.Open(a)
	require.NoError(t, err)
	require.Len(t, d.AvailableSections(), 3)
	require.NoError(t, d.LoadSection(0, 0))
	h, ok := d.PointHeight(8, 8)
	require.True(t, ok)
	require.InDelta(t, 7, float64(h), 1e-4)
	require.NoError(t, a.Close())

	require.NoError(t, cmdRaycast(ctx, cfg, []string{"-o", "8,8,50", "-d", "0,0,-1"}))
	require.NoError(t, cmdSelect(ctx, cfg, []string{"-camera", "8,8,20"}))
	require.NoError(t, cmdInfo(ctx, cfg, nil))

	out := filepath.Join(t.TempDir(), "baked")
	require.NoError(t, cmdBake(ctx, cfg, []string{"-out", out, "-name", "test"}))

	baked, err := storage.OpenDir(out)
	require.NoError(t, err)
	require.True(t, baked.Exists(formats.MapHeaderName))

	streamCfg := testConfig(t)
	streamCfg.Storage.Path = out
	require.NoError(t, cmdStream(ctx, streamCfg, []string{"-observer", "8,8,0"}))
}

func TestEditRequiresTerrain(t *testing.T) {
	cfg := testConfig(t)
	require.Error(t, cmdEdit(context.Background(), cfg, []string{"-x", "1"}))
}

func TestImportRequiresImage(t *testing.T) {
	cfg := testConfig(t)
	require.Error(t, cmdImport(context.Background(), cfg, nil))
}

func TestVecFlag(t *testing.T) {
	var v vecFlag
	require.NoError(t, v.Set("1, 2.5,-3"))
	require.True(t, v.set)
	require.Equal(t, float32(2.5), v.v.Y)
	require.Equal(t, float32(-3), v.v.Z)
	require.Error(t, v.Set("1,2"))
	require.Error(t, v.Set("a,b,c"))
}
