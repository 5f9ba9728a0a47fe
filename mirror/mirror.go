// Package mirror defines the opaque input shapes the engine consumes from the
// discovery/build layer: compilation units with their package metadata and a
// structural enumerator of class-like entities, plus the optional secondary
// static model (hints). Both input shapes are plain data; neither subclasses
// the other, and precedence between them is decided attribute by attribute in
// the resolver.
package mirror

import "github.com/typemat/typemat/decl"

// MetaHandlePrefix marks handles that point at the engine's own meta-level
// types. Such handles are never materializable into declarations.
const MetaHandlePrefix = "mirror:"

// PackageMeta describes the package owning a compilation unit
type PackageMeta struct {
	Name string
	// Root marks the application's own root package
	Root bool
	Dependencies    []string
	DevDependencies []string
}

// DependsOn reports whether the package declares a direct or dev dependency
func (p *PackageMeta) DependsOn(name string) bool {
	if p == nil {
		return false
	}
	for _, dep := range p.Dependencies {
		if dep == name {
			return true
		}
	}
	for _, dep := range p.DevDependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// CompilationUnit is one loaded source unit: its raw text, owning package and
// the class-like entities declared in it. Immutable after construction.
type CompilationUnit struct {
	// Locator uniquely identifies the unit (its library location)
	Locator string
	// Source is the raw source text, served from the discovery layer's cache
	Source  string
	Package *PackageMeta
	BuiltIn bool

	Entities []*EntityMirror
}

// MemberKind discriminates member mirrors
type MemberKind uint8

const (
	MemberField MemberKind = iota
	MemberMethod
	MemberConstructor
)

// EntityMirror is the primary (reflection-side) view of one class-like entity
type EntityMirror struct {
	Name   string
	Handle decl.TypeHandle
	// Location is the source locator used to match secondary hints
	Location string

	Enum           bool
	Abstract       bool
	FunctionShaped bool
	RecordShaped   bool

	Super      *TypeMirror
	Interfaces []*TypeMirror
	Mixins     []*TypeMirror

	TypeVariables []*TypeVariableMirror
	// TypeArguments are set on generic instantiations
	TypeArguments []*TypeMirror

	Members     []*MemberMirror
	Annotations []*AnnotationMirror

	// Signature is set for function-shaped entities and carries the
	// underlying function type
	Signature *TypeMirror
}

// MemberMirror is the primary view of one declared member
type MemberMirror struct {
	Name string
	Kind MemberKind

	// Type is the field type or the method return type
	Type       *TypeMirror
	Parameters []*ParameterMirror

	Static   bool
	Final    bool
	Abstract bool
	Factory  bool

	// EnumValue marks the static holder field of one enum value
	EnumValue bool
	// Value carries the concrete singleton value when the host exposes it
	Value any

	Annotations []*AnnotationMirror
}

// ParameterMirror is one declared parameter
type ParameterMirror struct {
	Name     string
	Type     *TypeMirror
	Named    bool
	Required bool
}

// TypeVariableMirror is one declared generic type variable
type TypeVariableMirror struct {
	Name  string
	Bound *TypeMirror
}

// AnnotationMirror is one metadata marker as the primary source sees it
type AnnotationMirror struct {
	Name          string
	QualifiedName string
	Arguments     map[string]string
}

// Is reports whether the annotation matches a marker by simple or qualified name
func (a *AnnotationMirror) Is(marker string) bool {
	if a == nil {
		return false
	}
	return a.Name == marker || a.QualifiedName == marker
}

// TypeMirror is the primary view of one type reference inside a signature,
// a supertype clause or a generic argument position.
type TypeMirror struct {
	// Name is the simple name; DisplayName may carry type arguments
	Name        string
	DisplayName string
	Handle      decl.TypeHandle
	// BaseHandle is the unparameterized handle; zero means same as Handle
	BaseHandle decl.TypeHandle
	// Library is the owning-library locator, empty for built-ins
	Library string

	Variable       bool
	FunctionShaped bool
	RecordShaped   bool

	TypeArguments []*TypeMirror

	// Entity points back at the declaration mirror when the discovery layer
	// has it loaded; nil for external leaf references.
	Entity *EntityMirror

	// Function shape
	ReturnType    *TypeMirror
	Parameters    []*ParameterMirror
	TypeVariables []*TypeVariableMirror

	// Record shape, positional fields in declaration order
	PositionalFields []*TypeMirror
	NamedFields      []*NamedFieldMirror
}

// NamedFieldMirror is one named record field
type NamedFieldMirror struct {
	Name string
	Type *TypeMirror
}

// QualifiedName returns the unit-scoped identity of the referenced type
func (t *TypeMirror) QualifiedName() string {
	if t == nil {
		return ""
	}
	return decl.Qualify(t.Library, t.Name)
}

// Base returns the unparameterized handle
func (t *TypeMirror) Base() decl.TypeHandle {
	if t == nil {
		return decl.TypeHandle{}
	}
	if !t.BaseHandle.IsZero() {
		return t.BaseHandle
	}
	return t.Handle
}
