package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func discard() {
	Log = zap.NewNop()
	Sugar = Log.Sugar()
}

// Runs first: nothing has initialized the package yet.
func TestLogDiscardsUntilInit(t *testing.T) {
	for _, lvl := range []zapcore.Level{zapcore.DebugLevel, zapcore.ErrorLevel, zapcore.FatalLevel} {
		if Log.Core().Enabled(lvl) {
			t.Errorf("uninitialized logger enables %s", lvl)
		}
	}
	Named("terrain").Error("dropped")
}

func TestInitFromConfigWritesNamedEntries(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "terrain.log")

	err := InitFromConfig(Config{Level: "info", File: logFile})
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(discard)

	Named("mapsource").Info("section loaded", zap.Int32("sectionX", -3))
	Named("world").Debug("tier unchanged")
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(content)
	for _, want := range []string{"mapsource", "section loaded", "sectionX", "-3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "tier unchanged") {
		t.Error("debug entry written at info level")
	}
}

func TestConfigFileSettings(t *testing.T) {
	if got := (Config{Level: "debug"}).fileConfig(); got != (FileConfig{}) {
		t.Errorf("expected no file output without a path, got %+v", got)
	}

	defaults := (Config{File: "terrain.log"}).fileConfig()
	if defaults != DefaultFileConfig("terrain.log") {
		t.Errorf("expected rotation defaults, got %+v", defaults)
	}

	custom := (Config{File: "terrain.log", MaxSizeMB: 5, MaxBackups: 9, MaxAgeDays: 30}).fileConfig()
	if custom.MaxSizeMB != 5 || custom.MaxBackups != 9 || custom.MaxAgeDays != 30 {
		t.Errorf("rotation overrides not applied: %+v", custom)
	}
	if !custom.Compress {
		t.Error("expected Compress to stay on")
	}
}

func TestLogRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "bake.log")

	// 1MB is the smallest rotation size lumberjack accepts.
	err := InitFromConfig(Config{Level: "debug", File: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(discard)

	padding := strings.Repeat("h", 200)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("region %d baked: %s", i, padding)
	}
	Sync()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read log dir: %v", err)
	}
	rotated := 0
	for _, f := range files {
		name := f.Name()
		if name == "bake.log" || !strings.HasPrefix(name, "bake-") {
			continue
		}
		rotated++
		if !strings.Contains(name, "-20") {
			t.Errorf("rotated file %s lacks a timestamp", name)
		}
	}
	if rotated == 0 {
		t.Errorf("expected rotated files, found %d entries", len(files))
	}
}

func TestLogLevels(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(discard)

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"fatal", nil, []string{"ERROR", "WARN", "INFO", "DEBUG"}},
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		name := tt.level
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			logFile := filepath.Join(dir, name+".log")
			err := InitWithFileConfig(tt.level, FileConfig{Path: logFile, MaxSizeMB: 10}, false)
			if err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil && !os.IsNotExist(err) {
				t.Fatalf("failed to read log file: %v", err)
			}
			out := string(content)
			for _, exp := range tt.expected {
				if !strings.Contains(out, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(out, exc) {
					t.Errorf("unexpected %s in log output for level %q", exc, tt.level)
				}
			}
		})
	}
}
