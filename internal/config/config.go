// Package config handles tool and viewer configuration loading.
package config

import (
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// Config holds all settings.
type Config struct {
	Terrain   TerrainConfig   `yaml:"terrain"`
	Streaming StreamingConfig `yaml:"streaming"`
	Render    RenderConfig    `yaml:"render"`
	Storage   StorageConfig   `yaml:"storage"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TerrainConfig holds the parameters of newly created maps.
type TerrainConfig struct {
	HeightFormat string `yaml:"height_format"` // uint8, uint16 or float32
	MinHeight    int32  `yaml:"min_height"`
	MaxHeight    int32  `yaml:"max_height"`
	BaseHeight   int32  `yaml:"base_height"`
	Scale        uint32 `yaml:"scale"`
	SectionSize  uint32 `yaml:"section_size"`
	LODCount     uint32 `yaml:"lod_count"`
}

// StreamingConfig holds region baking and streaming settings.
type StreamingConfig struct {
	LoadRadius      int32 `yaml:"load_radius"`
	RegionSize      int32 `yaml:"region_size"` // sections per region side
	RegionLODLevels int32 `yaml:"region_lod_levels"`
}

// RenderConfig holds render selection settings.
type RenderConfig struct {
	// VisibilityRanges are per-LOD distances; empty derives them from
	// BaseRange.
	VisibilityRanges []float32 `yaml:"visibility_ranges"`
	BaseRange        float32   `yaml:"base_range"`
	FrustumCulling   bool      `yaml:"frustum_culling"`
	SunAzimuth       float32   `yaml:"sun_azimuth"`
	SunElevation     float32   `yaml:"sun_elevation"`
}

// StorageConfig selects the map archive.
type StorageConfig struct {
	Backend string `yaml:"backend"` // dir or leveldb
	Path    string `yaml:"path"`
}

// GraphicsConfig holds viewer window settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			HeightFormat: "uint16",
			MinHeight:    -512,
			MaxHeight:    1536,
			BaseHeight:   0,
			Scale:        2,
			SectionSize:  64,
			LODCount:     4,
		},
		Streaming: StreamingConfig{
			LoadRadius:      1,
			RegionSize:      4,
			RegionLODLevels: 3,
		},
		Render: RenderConfig{
			BaseRange:      256,
			FrustumCulling: true,
			SunAzimuth:     135,
			SunElevation:   45,
		},
		Storage: StorageConfig{
			Backend: storage.BackendDir,
			Path:    "map",
		},
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Parameters converts the terrain section to parameters for a new map.
func (c TerrainConfig) Parameters() (terrain.Parameters, error) {
	format, err := terrain.ParseHeightStorageFormat(c.HeightFormat)
	if err != nil {
		return terrain.Parameters{}, err
	}
	p := terrain.Parameters{
		HeightStorageFormat: format,
		MinHeight:           c.MinHeight,
		MaxHeight:           c.MaxHeight,
		BaseHeight:          c.BaseHeight,
		Scale:               c.Scale,
		SectionSize:         c.SectionSize,
		LODCount:            c.LODCount,
	}
	return p, p.Validate()
}

// Ranges returns the visibility ranges for a terrain with params.
func (c RenderConfig) Ranges(params terrain.Parameters) []float32 {
	if len(c.VisibilityRanges) >= int(params.LODCount) {
		return c.VisibilityRanges[:params.LODCount]
	}
	return terrain.DefaultVisibilityRanges(params, c.BaseRange)
}

// Logger converts the logging section for logger.InitFromConfig.
func (c LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		File:       c.LogFile,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Console:    true,
	}
}
