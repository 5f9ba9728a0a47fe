package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/typemat/typemat/logger"
)

func TestVisibilityLevel_FromString(t *testing.T) {
	var v VisibilityLevel
	tests := []struct {
		in   string
		want VisibilityLevel
	}{
		{"exported", VisibilityExported},
		{"public", VisibilityExported},
		{"internal", VisibilityInternal},
		{"unexported", VisibilityInternal},
		{"all", VisibilityAll},
		{"exported,internal", VisibilityAll},
		{"", VisibilityExported},
	}
	for _, tt := range tests {
		if got := v.FromString(tt.in); got != tt.want {
			t.Errorf("FromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVisibilityLevel_FromStringPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("unknown visibility level should panic")
		}
	}()
	var v VisibilityLevel
	v.FromString("bogus")
}

func TestLoadConfig_DefaultWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig with no file: %v", err)
	}
	if cfg.MaxCacheSize != DefaultMaxCacheSize {
		t.Errorf("MaxCacheSize = %d, want default %d", cfg.MaxCacheSize, DefaultMaxCacheSize)
	}
	if cfg.MemberVisibility != VisibilityExported {
		t.Errorf("MemberVisibility = %v, want exported", cfg.MemberVisibility)
	}
}

func TestLoadConfig_ExplicitMissingFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicitly named missing config must fail")
	}
}

func TestLoadConfig_Yaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typemat.yaml")
	content := `
packages:
  - ./internal/**
  - "!./internal/generated"
max_cache_size: 42
cleanup_check_every: 7
periodic_cleanup: 5m
member_visibility: all
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Packages) != 2 || cfg.Packages[1] != "!./internal/generated" {
		t.Errorf("Packages = %v", cfg.Packages)
	}
	if cfg.MaxCacheSize != 42 || cfg.CleanupCheckEvery != 7 {
		t.Errorf("cache tuning = %d/%d, want 42/7", cfg.MaxCacheSize, cfg.CleanupCheckEvery)
	}
	if cfg.PeriodicCleanup != Duration(5*time.Minute) {
		t.Errorf("PeriodicCleanup = %v, want 5m", cfg.PeriodicCleanup)
	}
	if cfg.MemberVisibility != VisibilityAll {
		t.Errorf("MemberVisibility = %v, want all", cfg.MemberVisibility)
	}
	if cfg.LogLevel != logger.LogLevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := &Config{MaxCacheSize: -1, CleanupCheckEvery: 0}
	cfg.normalize()
	if cfg.MaxCacheSize != DefaultMaxCacheSize || cfg.CleanupCheckEvery != DefaultCleanupCheckEvery {
		t.Errorf("normalize left %d/%d", cfg.MaxCacheSize, cfg.CleanupCheckEvery)
	}
	if len(cfg.Packages) == 0 {
		t.Error("normalize should default the package patterns")
	}
}
