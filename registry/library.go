package registry

import (
	"fmt"
	"math"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

// Hierarchy ranks control deterministic iteration order once the registry is
// frozen: the application's own root package first, then the primary named
// package, its subpackages, other dependencies in discovery order, and
// built-in/SDK libraries always last.
const (
	RankRoot       = 0
	RankPrimary    = 1
	RankSubPackage = 2
	RankDependency = 3
	RankBuiltIn    = math.MaxInt32
)

// SourceLibrary wraps one compilation unit: its raw text, owning package, the
// SDK flag and a flat list of lightweight class references discovered in it.
// Immutable after Init except for the write-once hierarchy rank.
type SourceLibrary struct {
	unit *mirror.CompilationUnit
	refs []*ClassRef

	rank    int
	rankSet bool

	initialized bool
	log         logger.Logger
}

// NewSourceLibrary creates a library around a compilation unit
func NewSourceLibrary(unit *mirror.CompilationUnit, log logger.Logger) *SourceLibrary {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &SourceLibrary{unit: unit, log: log}
}

// Init is one-shot: it builds one class reference per declared entity. A
// broken entity is simply absent from the reference list, never a load-time
// fatal error.
func (l *SourceLibrary) Init() {
	if l.initialized {
		return
	}
	l.initialized = true

	for _, entity := range l.unit.Entities {
		if entity == nil || entity.Name == "" {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.log.Debug(fmt.Sprintf("skipping entity %s in %s: %v", entity.Name, l.Locator(), r))
				}
			}()
			ref := newClassRef(entity, l.unit.Locator, make(map[string]*ClassRef))
			l.refs = append(l.refs, ref)
		}()
	}
}

// Locator returns the unit's library locator
func (l *SourceLibrary) Locator() string {
	return l.unit.Locator
}

// Package returns the owning package metadata, possibly nil for built-ins
func (l *SourceLibrary) Package() *mirror.PackageMeta {
	return l.unit.Package
}

// PackageName returns the owning package name, empty when unknown
func (l *SourceLibrary) PackageName() string {
	if l.unit.Package == nil {
		return ""
	}
	return l.unit.Package.Name
}

// BuiltIn reports whether the unit belongs to the SDK
func (l *SourceLibrary) BuiltIn() bool {
	return l.unit.BuiltIn
}

// Source returns the unit's raw text
func (l *SourceLibrary) Source() string {
	return l.unit.Source
}

// Refs returns the class references discovered in this unit
func (l *SourceLibrary) Refs() []*ClassRef {
	return l.refs
}

// FindClass scans this library's references for a qualified name. Linear scan
// is fine here; libraries are small and the registry caches absorb the hot
// path.
func (l *SourceLibrary) FindClass(qualifiedName string) *ClassRef {
	for _, ref := range l.refs {
		if ref.QualifiedName == qualifiedName {
			return ref
		}
	}
	return nil
}

// FindClassByName scans for a simple name
func (l *SourceLibrary) FindClassByName(name string) *ClassRef {
	for _, ref := range l.refs {
		if ref.Name == name {
			return ref
		}
	}
	return nil
}

// FindClassByHandle scans for a type handle
func (l *SourceLibrary) FindClassByHandle(h decl.TypeHandle) *ClassRef {
	if !h.Cacheable() {
		return nil
	}
	for _, ref := range l.refs {
		if ref.Handle == h {
			return ref
		}
	}
	return nil
}

// Rank returns the assigned hierarchy rank
func (l *SourceLibrary) Rank() int {
	if l.unit.BuiltIn {
		return RankBuiltIn
	}
	return l.rank
}

// SetRank assigns the hierarchy rank. Write-once; later calls are ignored.
func (l *SourceLibrary) SetRank(rank int) {
	if l.rankSet {
		return
	}
	l.rank = rank
	l.rankSet = true
}
