package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/typemat/typemat/logger"
	"gopkg.in/yaml.v3"
)

// Defaults for the cache and cleanup tuning knobs
const (
	DefaultMaxCacheSize      = 5000
	DefaultCleanupCheckEvery = 1000
	// cleanupThresholdFactor: a cache is only trimmed once it exceeds
	// configured capacity by 20%
	cleanupThresholdFactor = 1.2
	// cleanupTrimFraction: trimming removes the oldest 10% in one pass
	cleanupTrimFraction = 0.1
)

// VisibilityLevel selects which members the discovery layer enumerates
type VisibilityLevel uint8

const (
	VisibilityExported VisibilityLevel = 1 << iota
	VisibilityInternal
	VisibilityAll = VisibilityExported | VisibilityInternal
)

func (v VisibilityLevel) Has(level VisibilityLevel) bool {
	return v&level == level
}

func (v VisibilityLevel) FromString(str string) VisibilityLevel {
	var level VisibilityLevel
	for _, part := range strings.Split(strings.ToLower(str), ",") {
		switch strings.TrimSpace(part) {
		case "":
			continue
		case "exported", "public":
			level |= VisibilityExported
		case "internal", "private", "unexported":
			level |= VisibilityInternal
		case "all":
			level = VisibilityAll
		default:
			panic("unknown visibility level " + part)
		}
	}
	if level == 0 {
		level = VisibilityExported
	}
	return level
}

func (v VisibilityLevel) String() string {
	var parts []string
	if v.Has(VisibilityExported) {
		parts = append(parts, "exported")
	}
	if v.Has(VisibilityInternal) {
		parts = append(parts, "internal")
	}
	return strings.Join(parts, ",")
}

func (v *VisibilityLevel) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	*v = v.FromString(str)
	return nil
}

func (v VisibilityLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

func (v *VisibilityLevel) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	*v = v.FromString(str)
	return nil
}

func (v VisibilityLevel) MarshalYAML() (any, error) {
	return v.String(), nil
}

// Duration wraps time.Duration so config files can spell values like "5m"
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// Config tunes the registry and the discovery adapter
type Config struct {
	// Packages are the package patterns handed to the discovery layer
	Packages []string `json:"packages" yaml:"packages"`
	// MaxCacheSize caps each lookup cache; a cache is trimmed once its size
	// exceeds the cap by 20%
	MaxCacheSize int `json:"max_cache_size" yaml:"max_cache_size"`
	// CleanupCheckEvery amortizes the cleanup check to every N-th lookup
	CleanupCheckEvery int `json:"cleanup_check_every" yaml:"cleanup_check_every"`
	// PeriodicCleanup, when positive, runs a background cleanup on a timer
	PeriodicCleanup Duration `json:"periodic_cleanup" yaml:"periodic_cleanup"`

	MemberVisibility VisibilityLevel `json:"member_visibility" yaml:"member_visibility"`
	LogLevel         logger.LogLevel `json:"log_level" yaml:"log_level"`
}

// NewDefaultConfig returns the default engine configuration
func NewDefaultConfig() *Config {
	return &Config{
		Packages:          []string{"./..."},
		MaxCacheSize:      DefaultMaxCacheSize,
		CleanupCheckEvery: DefaultCleanupCheckEvery,
		MemberVisibility:  VisibilityExported,
		LogLevel:          logger.LogLevelInfo,
	}
}

// LoadConfig reads a yaml config file, falling back to defaults when the path
// is empty or the default file is absent.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "typemat.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.MaxCacheSize <= 0 {
		c.MaxCacheSize = DefaultMaxCacheSize
	}
	if c.CleanupCheckEvery <= 0 {
		c.CleanupCheckEvery = DefaultCleanupCheckEvery
	}
	if c.MemberVisibility == 0 {
		c.MemberVisibility = VisibilityExported
	}
	if c.LogLevel == "" {
		c.LogLevel = logger.LogLevelInfo
	}
	if len(c.Packages) == 0 {
		c.Packages = []string{"./..."}
	}
}
