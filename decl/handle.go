// Package decl defines the declaration model produced by the materialization
// engine: type handles, link declarations, and the heavyweight class, enum,
// mixin, function and record declarations with their members.
// Declarations are value-like; once produced they are cached by the registry
// and never mutated in place.
package decl

import "strings"

// BuiltInLocator is the library locator assigned to SDK/built-in types.
const BuiltInLocator = "builtin"

// TypeHandle is an opaque, comparable identifier for a concrete type in the
// host runtime. Two handles are equal iff they denote the same concrete type.
// Handles for generic type variables are flagged as Variable and must never be
// used as cache keys.
type TypeHandle struct {
	ID       string
	Variable bool
}

// NewTypeHandle creates a handle for a concrete type
func NewTypeHandle(id string) TypeHandle {
	return TypeHandle{ID: id}
}

// VariableHandle creates a synthetic handle for a generic type variable
func VariableHandle(name string) TypeHandle {
	return TypeHandle{ID: name, Variable: true}
}

// IsZero reports whether the handle is unset
func (h TypeHandle) IsZero() bool {
	return h.ID == ""
}

// Cacheable reports whether the handle may be used as a cache key
func (h TypeHandle) Cacheable() bool {
	return !h.IsZero() && !h.Variable
}

func (h TypeHandle) String() string {
	return h.ID
}

// Qualify builds a qualified name from a library locator and a simple name.
// The empty locator maps to the built-in library.
func Qualify(libraryLocator, simpleName string) string {
	if libraryLocator == "" {
		libraryLocator = BuiltInLocator
	}
	return libraryLocator + "." + simpleName
}

// SimpleName returns the last segment of a qualified name
func SimpleName(qualifiedName string) string {
	if idx := strings.LastIndex(qualifiedName, "."); idx >= 0 {
		return qualifiedName[idx+1:]
	}
	return qualifiedName
}
