package decl

import "strings"

// LinkDeclaration is a portable, minimal reference to a type used inside a
// signature (a field's type, a parameter's type, a generic argument). It is
// distinct from a ClassRef (hierarchy graph node) and from ClassDeclaration
// (full model with members).
type LinkDeclaration struct {
	// Name is the simple name of the referenced type
	Name string
	// DisplayName is the human readable form, possibly carrying type arguments
	DisplayName string
	// QualifiedName uniquely identifies the referenced declaration
	QualifiedName string
	// Handle is the resolved runtime handle
	Handle TypeHandle
	// BaseHandle is the unparameterized handle (same as Handle for non-generics)
	BaseHandle TypeHandle
	// TypeArguments are the resolved generic arguments, in declared order.
	// A cyclic argument position is omitted from this list.
	TypeArguments []*LinkDeclaration

	Public    bool
	Synthetic bool
	Nullable  bool

	// Function is non-nil for function-shaped links
	Function *FunctionSignature
	// Record is non-nil for record-shaped links
	Record *RecordShape
}

// FunctionSignature carries the resolved shape of a function-shaped link
type FunctionSignature struct {
	ReturnType     *LinkDeclaration
	Parameters     []*LinkDeclaration
	TypeParameters []*LinkDeclaration
}

// RecordShape carries the resolved fields of a record-shaped link.
// Positional fields preserve declaration order.
type RecordShape struct {
	Positional []*LinkDeclaration
	Named      []*NamedFieldLink
}

// NamedFieldLink is one named record field
type NamedFieldLink struct {
	Name string
	Type *LinkDeclaration
}

// IsFunction reports whether the link is function shaped
func (l *LinkDeclaration) IsFunction() bool {
	return l != nil && l.Function != nil
}

// IsRecord reports whether the link is record shaped
func (l *LinkDeclaration) IsRecord() bool {
	return l != nil && l.Record != nil
}

// Display returns the display name, falling back to the simple name
func (l *LinkDeclaration) Display() string {
	if l == nil {
		return ""
	}
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.Name
}

// HasVariableArguments reports whether any resolved type argument (directly or
// transitively) still denotes an unbound generic type variable.
func (l *LinkDeclaration) HasVariableArguments() bool {
	if l == nil {
		return false
	}
	for _, arg := range l.TypeArguments {
		if arg == nil {
			continue
		}
		if arg.Handle.Variable || arg.HasVariableArguments() {
			return true
		}
	}
	return false
}

// The dynamic/untyped and void/nothing types never go through the general
// resolution path. They short-circuit to these hard-coded links, public and
// non-synthetic, with no type arguments.

const (
	DynamicName = "dynamic"
	VoidName    = "void"
	ObjectName  = "Object"
)

// DynamicLink returns the sentinel link for the dynamic/untyped type
func DynamicLink() *LinkDeclaration {
	return sentinelLink(DynamicName)
}

// VoidLink returns the sentinel link for the void/nothing type
func VoidLink() *LinkDeclaration {
	return sentinelLink(VoidName)
}

// ObjectLink returns the last-resort link pointing at the root object type,
// used so that link resolution is total.
func ObjectLink() *LinkDeclaration {
	return sentinelLink(ObjectName)
}

func sentinelLink(name string) *LinkDeclaration {
	h := NewTypeHandle(Qualify(BuiltInLocator, name))
	return &LinkDeclaration{
		Name:          name,
		DisplayName:   name,
		QualifiedName: Qualify(BuiltInLocator, name),
		Handle:        h,
		BaseHandle:    h,
		Public:        true,
	}
}

// IsSentinelName reports whether name denotes one of the hard-coded types
func IsSentinelName(name string) bool {
	return name == DynamicName || name == VoidName
}

// IsInternalName reports whether a name's last path segment starts with a
// single leading underscore but not a double one. `_x` is internal, `__x` is
// treated as synthetic instead.
func IsInternalName(name string) bool {
	seg := SimpleName(name)
	return strings.HasPrefix(seg, "_") && !strings.HasPrefix(seg, "__")
}

// IsSyntheticName reports whether a name starts with a double underscore or
// contains the compiler-reserved joiner character.
func IsSyntheticName(name string) bool {
	seg := SimpleName(name)
	return strings.HasPrefix(seg, "__") || strings.ContainsRune(seg, '&')
}
