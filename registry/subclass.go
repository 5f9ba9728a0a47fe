package registry

import (
	"fmt"

	"github.com/typemat/typemat/decl"
)

// GetSubClassRefs finds every class reference transitively extending or
// implementing the named parent. Results are cached under both the parent's
// qualified name and its type handle.
func (r *MaterialRegistry) GetSubClassRefs(parent any) ([]*ClassRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}
	return r.subClassRefs(parent)
}

// GetSubClasses materializes the declarations for every subclass of parent.
// Individual materialization failures are logged and skipped.
func (r *MaterialRegistry) GetSubClasses(parent any) ([]*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}

	refs, err := r.subClassRefs(parent)
	if err != nil {
		return nil, err
	}
	out := make([]*decl.ClassDeclaration, 0, len(refs))
	for _, ref := range refs {
		d, err := r.materialize(ref)
		if err != nil {
			r.log.Debug(fmt.Sprintf("subclass materialization: %v", err))
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *MaterialRegistry) subClassRefs(parent any) ([]*ClassRef, error) {
	parentRef, err := r.resolveParentRef(parent)
	if err != nil {
		return nil, err
	}

	cacheKey := "sub|" + parentRef.QualifiedName + "|" + parentRef.Handle.ID
	r.countLookup()
	if cached, ok := r.subRefs.Get(cacheKey); ok {
		return cached, nil
	}

	var out []*ClassRef
	for _, lib := range r.searchScope(parentRef) {
		for _, candidate := range lib.Refs() {
			// the parent itself is never its own subclass
			if candidate.SameClass(parentRef.QualifiedName, parentRef.Handle) {
				continue
			}
			visited := make(map[string]struct{})
			if descendsFrom(candidate, parentRef, visited) {
				out = append(out, candidate)
			}
		}
	}

	r.subRefs.Put(cacheKey, out)
	return out, nil
}

// resolveParentRef turns the parent argument (a ref, handle, qualified name
// or simple name) into a graph node to search against.
func (r *MaterialRegistry) resolveParentRef(parent any) (*ClassRef, error) {
	switch p := parent.(type) {
	case *ClassRef:
		if p != nil {
			return p, nil
		}
		return nil, notFound("<nil ref>")
	case decl.TypeHandle:
		for _, lib := range r.libraries {
			if ref := lib.FindClassByHandle(p); ref != nil {
				return ref, nil
			}
		}
		return nil, notFound(p.ID)
	case *decl.ClassDeclaration:
		if p == nil {
			return nil, notFound("<nil declaration>")
		}
		for _, lib := range r.libraries {
			if ref := lib.FindClass(p.QualifiedName); ref != nil {
				return ref, nil
			}
		}
		// declarations built from generic type strings have no backing ref
		return &ClassRef{
			QualifiedName: p.QualifiedName,
			Name:          p.Name,
			Handle:        p.Handle,
			Library:       p.LibraryLocator,
		}, nil
	case string:
		for _, lib := range r.libraries {
			if ref := lib.FindClass(p); ref != nil {
				return ref, nil
			}
		}
		for _, lib := range r.libraries {
			if ref := lib.FindClassByName(p); ref != nil {
				return ref, nil
			}
		}
		return nil, notFound(p)
	default:
		return nil, fmt.Errorf("%w: cannot search subclasses of %T", ErrImmaterialType, parent)
	}
}

// searchScope restricts the candidate libraries by package dependency: only
// libraries whose package could actually see the parent are scanned. Built-in
// or package-less parents force a full scan. Scopes are cached per parent
// package name.
func (r *MaterialRegistry) searchScope(parent *ClassRef) []*SourceLibrary {
	parentLib := r.libraryByLocator(parent.Library)
	if parentLib == nil || parentLib.BuiltIn() || parentLib.PackageName() == "" {
		return r.libraries
	}

	parentPkg := parentLib.PackageName()
	if cached, ok := r.scopes[parentPkg]; ok {
		return cached
	}

	var scope []*SourceLibrary
	for _, lib := range r.libraries {
		switch {
		case lib.PackageName() == parentPkg:
			scope = append(scope, lib)
		case lib.Package() != nil && lib.Package().DependsOn(parentPkg):
			scope = append(scope, lib)
		case lib.PackageName() == "" && !lib.BuiltIn():
			// raw local files see everything on their import path
			scope = append(scope, lib)
		}
	}

	r.scopes[parentPkg] = scope
	return scope
}

// descendsFrom walks the candidate's supertype edges depth-first. Each
// top-level candidate gets a fresh visited set so one traversal cannot mask
// membership of another.
func descendsFrom(candidate, parent *ClassRef, visited map[string]struct{}) bool {
	if candidate == nil {
		return false
	}
	if _, seen := visited[candidate.QualifiedName]; seen {
		return false
	}
	visited[candidate.QualifiedName] = struct{}{}

	if candidate.Super != nil {
		if candidate.Super.SameClass(parent.QualifiedName, parent.Handle) {
			return true
		}
		if descendsFrom(candidate.Super, parent, visited) {
			return true
		}
	}
	for _, iface := range candidate.Interfaces {
		if iface.SameClass(parent.QualifiedName, parent.Handle) {
			return true
		}
		if descendsFrom(iface, parent, visited) {
			return true
		}
	}
	return false
}
