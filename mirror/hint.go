package mirror

import "strings"

// HintLookup is the optional secondary static model: a richer but possibly
// absent structural source keyed by (simple name, source location). It refines
// information the primary reflection source cannot express, such as modifier
// keywords and nullability suffixes.
type HintLookup interface {
	// LookupClass returns the hint for the named entity, or nil when the
	// static model has nothing for it.
	LookupClass(simpleName, sourceLocator string) *ClassHint
}

// ClassHint is the static-model view of one class-like entity
type ClassHint struct {
	DisplayName string
	// Keywords are the modifier keywords as written: sealed, base, final,
	// interface, mixin, abstract, record.
	Keywords []string

	SuperClause      *TypeHint
	InterfaceClauses []*TypeHint
	MixinClauses     []*TypeHint

	RecordShaped bool

	// Members is keyed by member name
	Members map[string]*MemberHint
}

// HasKeyword reports whether the modifier keyword was written in source
func (h *ClassHint) HasKeyword(keyword string) bool {
	if h == nil {
		return false
	}
	for _, k := range h.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// Clause returns the clause hint matching the simple name, searching the
// super clause first, then interfaces, then mixins.
func (h *ClassHint) Clause(name string) *TypeHint {
	if h == nil {
		return nil
	}
	if h.SuperClause != nil && h.SuperClause.Matches(name) {
		return h.SuperClause
	}
	for _, c := range h.InterfaceClauses {
		if c.Matches(name) {
			return c
		}
	}
	for _, c := range h.MixinClauses {
		if c.Matches(name) {
			return c
		}
	}
	return nil
}

// MemberHint refines one member
type MemberHint struct {
	DisplayType string
	Nullable    bool
	// Record marks a member whose type is a positional tuple spelling
	Record bool
}

// TypeHint refines one type reference: a display name that may be more
// precise than the primary source's, nullability, and argument hints.
type TypeHint struct {
	DisplayName string
	// Location is the static-model source location, part of the identity key
	Location  string
	Nullable  bool
	Record    bool
	Arguments []*TypeHint
}

// Matches reports whether the hint's display name refers to the simple name,
// ignoring any type-argument suffix.
func (h *TypeHint) Matches(name string) bool {
	if h == nil || name == "" {
		return false
	}
	display := h.DisplayName
	if idx := strings.IndexAny(display, "<["); idx >= 0 {
		display = display[:idx]
	}
	return display == name
}

// Argument returns the i-th argument hint, or nil
func (h *TypeHint) Argument(i int) *TypeHint {
	if h == nil || i < 0 || i >= len(h.Arguments) {
		return nil
	}
	return h.Arguments[i]
}

// HintTable is a simple map-backed HintLookup used by the discovery adapter
// and by tests.
type HintTable map[string]*ClassHint

// HintKey builds the lookup key for a (simple name, source location) pair
func HintKey(simpleName, sourceLocator string) string {
	return sourceLocator + "#" + simpleName
}

func (t HintTable) LookupClass(simpleName, sourceLocator string) *ClassHint {
	if t == nil {
		return nil
	}
	return t[HintKey(simpleName, sourceLocator)]
}
