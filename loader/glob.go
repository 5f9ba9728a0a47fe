package loader

import (
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// PackageGlob is one parsed package pattern. Patterns follow the usual
// package-path spelling plus `/**` for recursion and a leading `!` for
// exclusion, normalized to the `/...` form packages.Load understands.
type PackageGlob struct {
	Pattern   string
	Recursive bool
	Exclude   bool
}

func ParseGlob(pattern string) *PackageGlob {
	g := &PackageGlob{}
	if strings.HasPrefix(pattern, "!") {
		g.Exclude = true
		pattern = strings.TrimPrefix(pattern, "!")
	}
	g.Pattern = pattern
	g.Recursive = strings.Contains(pattern, "**/") || strings.HasSuffix(pattern, "/**")
	return g
}

// LoadPattern is the pattern in the form packages.Load accepts
func (g *PackageGlob) LoadPattern() string {
	p := g.Pattern
	if strings.HasSuffix(p, "/**") {
		return strings.TrimSuffix(p, "/**") + "/..."
	}
	if strings.Contains(p, "**/") {
		return strings.ReplaceAll(p, "**/", "") + "/..."
	}
	return p
}

// Matches checks a concrete package path against the pattern
func (g *PackageGlob) Matches(pkgPath string) bool {
	p := g.Pattern
	if strings.HasSuffix(p, "/**") {
		base := strings.TrimSuffix(p, "/**")
		base = strings.TrimPrefix(strings.TrimPrefix(base, "./"), "../")
		if base == "" {
			return true
		}
		return strings.Contains(pkgPath, base)
	}
	if strings.Contains(p, "*") {
		if ok, _ := filepath.Match(p, pkgPath); ok {
			return true
		}
		ok, _ := filepath.Match(p, filepath.Base(pkgPath))
		return ok
	}
	if p == pkgPath {
		return true
	}
	// relative spellings also match on the trailing path segment
	if strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		name := strings.TrimPrefix(strings.TrimPrefix(p, "./"), "../")
		return pkgPath == name || strings.HasSuffix(pkgPath, "/"+name)
	}
	return false
}

// loadPackages expands the patterns, loads every included package and drops
// the ones matching an exclusion. Duplicates from overlapping patterns are
// removed, first occurrence wins.
func loadPackages(mode packages.LoadMode, patterns ...string) ([]*packages.Package, error) {
	var includes, excludes []*PackageGlob
	for _, pattern := range patterns {
		g := ParseGlob(pattern)
		if g.Exclude {
			excludes = append(excludes, g)
		} else {
			includes = append(includes, g)
		}
	}

	cfg := &packages.Config{Mode: mode}
	var all []*packages.Package
	for _, g := range includes {
		pkgs, err := packages.Load(cfg, g.LoadPattern())
		if err != nil {
			return nil, err
		}
		all = append(all, pkgs...)
	}

	seen := make(map[string]bool)
	var out []*packages.Package
	for _, pkg := range all {
		if seen[pkg.PkgPath] {
			continue
		}
		seen[pkg.PkgPath] = true
		excluded := false
		for _, g := range excludes {
			if g.Matches(pkg.PkgPath) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, pkg)
		}
	}
	return out, nil
}
