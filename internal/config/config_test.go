package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Graphics.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Graphics.Width)
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Streaming.LoadRadius != 1 {
		t.Errorf("expected load radius 1, got %d", cfg.Streaming.LoadRadius)
	}
	if cfg.Storage.Backend != "dir" {
		t.Errorf("expected dir backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics to be disabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	params, err := cfg.Terrain.Parameters()
	if err != nil {
		t.Fatalf("default terrain parameters invalid: %v", err)
	}
	if params.HeightStorageFormat != terrain.HeightStorageUint16 {
		t.Errorf("expected uint16 heights, got %v", params.HeightStorageFormat)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
terrain:
  height_format: float32
  section_size: 32
  lod_count: 3

streaming:
  load_radius: 3
  region_size: 2

render:
  visibility_ranges: [100, 200, 400]

storage:
  backend: leveldb
  path: /data/world

metrics:
  enabled: true
  listen: ":9000"

logging:
  level: debug
  log_file: /var/log/terrain.log
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Terrain.HeightFormat != "float32" || cfg.Terrain.SectionSize != 32 || cfg.Terrain.LODCount != 3 {
		t.Errorf("unexpected terrain config %+v", cfg.Terrain)
	}
	// Unset fields keep their defaults.
	if cfg.Terrain.Scale != 2 {
		t.Errorf("expected default scale 2, got %d", cfg.Terrain.Scale)
	}
	if cfg.Streaming.LoadRadius != 3 || cfg.Streaming.RegionSize != 2 || cfg.Streaming.RegionLODLevels != 3 {
		t.Errorf("unexpected streaming config %+v", cfg.Streaming)
	}
	if cfg.Storage.Backend != "leveldb" || cfg.Storage.Path != "/data/world" {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9000" {
		t.Errorf("unexpected metrics config %+v", cfg.Metrics)
	}
	if cfg.Logging.LogFile != "/var/log/terrain.log" {
		t.Errorf("expected log file, got %s", cfg.Logging.LogFile)
	}

	params, err := cfg.Terrain.Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	ranges := cfg.Render.Ranges(params)
	if len(ranges) != 3 || ranges[2] != 400 {
		t.Errorf("expected configured ranges, got %v", ranges)
	}
}

func TestRangesFallBackToBaseRange(t *testing.T) {
	cfg := Default()
	params, err := cfg.Terrain.Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	cfg.Render.VisibilityRanges = []float32{10}
	ranges := cfg.Render.Ranges(params)
	if len(ranges) != int(params.LODCount) {
		t.Fatalf("expected %d ranges, got %v", params.LODCount, ranges)
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i] <= ranges[i-1] {
			t.Errorf("ranges not increasing: %v", ranges)
		}
	}
}

func TestInvalidTerrainParameters(t *testing.T) {
	cfg := Default()
	cfg.Terrain.HeightFormat = "int64"
	if _, err := cfg.Terrain.Parameters(); err == nil {
		t.Error("expected unknown height format to fail")
	}

	cfg = Default()
	cfg.Terrain.SectionSize = 48
	if _, err := cfg.Terrain.Parameters(); err == nil {
		t.Error("expected non power of two section size to fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty path", func(c *Config) { c.Storage.Path = "" }},
		{"negative radius", func(c *Config) { c.Streaming.LoadRadius = -1 }},
		{"zero region size", func(c *Config) { c.Streaming.RegionSize = 0 }},
		{"zero region LODs", func(c *Config) { c.Streaming.RegionLODLevels = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
streaming:
  load_radius: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "storage flags",
			setup: func() {
				*flagMap = "/maps/island"
				*flagBackend = "leveldb"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Path != "/maps/island" || cfg.Storage.Backend != "leveldb" {
					t.Errorf("unexpected storage %+v", cfg.Storage)
				}
			},
			teardown: func() {
				*flagMap = ""
				*flagBackend = ""
			},
		},
		{
			name:  "radius flag",
			setup: func() { *flagRadius = 4 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Streaming.LoadRadius != 4 {
					t.Errorf("expected radius 4, got %d", cfg.Streaming.LoadRadius)
				}
			},
			teardown: func() { *flagRadius = 0 },
		},
		{
			name:  "metrics flag",
			setup: func() { *flagMetrics = ":9100" },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9100" {
					t.Errorf("unexpected metrics %+v", cfg.Metrics)
				}
			},
			teardown: func() { *flagMetrics = "" },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Streaming.LoadRadius = 5
	cfg.Render.VisibilityRanges = []float32{64, 128}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Streaming.LoadRadius != 5 || len(loaded.Render.VisibilityRanges) != 2 {
		t.Errorf("round trip lost settings: %+v %+v", loaded.Streaming, loaded.Render)
	}
}
