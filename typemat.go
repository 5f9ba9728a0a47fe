// Package typemat materializes full type declarations from lightweight
// runtime type information. It discovers class-like entities through a
// pluggable loader, refines them against an optional static source model,
// and serves cached, cycle-safe declarations for classes, enums, mixins,
// functions and records.
package typemat

import (
	"fmt"

	"github.com/typemat/typemat/loader"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
	"github.com/typemat/typemat/registry"
)

// NewRegistry creates an empty registry with the given configuration and an
// optional static model.
func NewRegistry(cfg *registry.Config, hints mirror.HintLookup) *registry.MaterialRegistry {
	return registry.NewMaterialRegistry(cfg, hints, logger.NewDefaultLogger())
}

// Scan discovers the packages named in the configuration, populates a
// registry with every discovered compilation unit and freezes it, ready to
// serve declaration lookups.
func Scan(cfg *registry.Config) (*registry.MaterialRegistry, error) {
	if cfg == nil {
		cfg = registry.NewDefaultConfig()
	}
	logger.SetupLogger(cfg.LogLevel)

	l := loader.NewLoader(logger.NewDefaultLogger())
	l.IncludeUnexported = cfg.MemberVisibility.Has(registry.VisibilityInternal)
	units, hints, err := l.Load(cfg.Packages...)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	reg := registry.NewMaterialRegistry(cfg, hints, logger.NewDefaultLogger())
	for _, unit := range units {
		if err := reg.AddLibrary(unit); err != nil {
			return nil, fmt.Errorf("failed to add library %s: %w", unit.Locator, err)
		}
	}
	if err := reg.Freeze(); err != nil {
		return nil, err
	}
	return reg, nil
}
