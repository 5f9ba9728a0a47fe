package registry

import (
	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/mirror"
)

// ClassRef is the lightweight graph node used for hierarchy traversal:
// qualified name, type handle, direct superclass reference and interface
// references, plus an index of annotated members. Constructing a ref eagerly
// wraps every direct supertype the same way, so the "light" graph is a real
// DAG with possible cycles on malformed input; traversals must always carry a
// visited set.
type ClassRef struct {
	QualifiedName string
	Name          string
	Handle        decl.TypeHandle
	Library       string

	Super      *ClassRef
	Interfaces []*ClassRef

	// AnnotatedMembers indexes member names by annotation marker
	AnnotatedMembers map[string][]string

	// entity keeps the mirror around for later materialization; nil on leaf
	// refs wrapped from external supertype references.
	entity *mirror.EntityMirror
}

// Entity returns the backing mirror, nil for external leaf references
func (r *ClassRef) Entity() *mirror.EntityMirror {
	return r.entity
}

// SameClass reports whether the other ref denotes the same entity, matched by
// qualified name or by non-variable type handle equality.
func (r *ClassRef) SameClass(qualifiedName string, handle decl.TypeHandle) bool {
	if r.QualifiedName != "" && r.QualifiedName == qualifiedName {
		return true
	}
	return r.Handle.Cacheable() && handle.Cacheable() && r.Handle == handle
}

// newClassRef builds the graph node for one entity, wrapping its declared
// supertype and interfaces recursively. visited breaks reference cycles.
func newClassRef(entity *mirror.EntityMirror, libraryLocator string, visited map[string]*ClassRef) *ClassRef {
	qualified := decl.Qualify(libraryLocator, entity.Name)
	if existing, ok := visited[qualified]; ok {
		return existing
	}

	ref := &ClassRef{
		QualifiedName: qualified,
		Name:          entity.Name,
		Handle:        entity.Handle,
		Library:       libraryLocator,
		entity:        entity,
	}
	visited[qualified] = ref

	if entity.Super != nil {
		ref.Super = wrapTypeRef(entity.Super, visited)
	}
	for _, iface := range entity.Interfaces {
		if wrapped := wrapTypeRef(iface, visited); wrapped != nil {
			ref.Interfaces = append(ref.Interfaces, wrapped)
		}
	}

	// one pass over the declared members builds the annotated-member index
	for _, member := range entity.Members {
		for _, ann := range member.Annotations {
			if ann.Name == "" && ann.QualifiedName == "" {
				continue
			}
			if ref.AnnotatedMembers == nil {
				ref.AnnotatedMembers = make(map[string][]string)
			}
			marker := ann.Name
			if marker == "" {
				marker = ann.QualifiedName
			}
			ref.AnnotatedMembers[marker] = append(ref.AnnotatedMembers[marker], member.Name)
		}
	}

	return ref
}

// wrapTypeRef wraps a supertype/interface reference. When the discovery layer
// has the target entity loaded the wrap recurses into its own supertypes;
// otherwise the ref is a leaf carrying just the name and handle.
func wrapTypeRef(t *mirror.TypeMirror, visited map[string]*ClassRef) *ClassRef {
	if t == nil {
		return nil
	}
	if t.Entity != nil {
		return newClassRef(t.Entity, t.Library, visited)
	}

	qualified := t.QualifiedName()
	if existing, ok := visited[qualified]; ok {
		return existing
	}
	ref := &ClassRef{
		QualifiedName: qualified,
		Name:          t.Name,
		Handle:        t.Handle,
		Library:       t.Library,
	}
	visited[qualified] = ref
	return ref
}
