package decl

// AnnotationDeclaration is a resolved metadata marker attached to a
// declaration or one of its members.
type AnnotationDeclaration struct {
	Name          string
	QualifiedName string
	// Arguments holds the annotation's arguments, keyed by argument name.
	// Single positional arguments use the empty key.
	Arguments map[string]string
}

// Is reports whether the annotation matches a marker by simple or qualified name
func (a *AnnotationDeclaration) Is(marker string) bool {
	if a == nil {
		return false
	}
	return a.Name == marker || a.QualifiedName == marker
}

// Argument returns the named argument, falling back to the positional one
func (a *AnnotationDeclaration) Argument(name string) string {
	if a == nil || a.Arguments == nil {
		return ""
	}
	if v, ok := a.Arguments[name]; ok {
		return v
	}
	return a.Arguments[""]
}

// FindAnnotation returns the first annotation matching the marker, or nil
func FindAnnotation(annotations []*AnnotationDeclaration, marker string) *AnnotationDeclaration {
	for _, a := range annotations {
		if a.Is(marker) {
			return a
		}
	}
	return nil
}
