package registry

import (
	"testing"

	"github.com/typemat/typemat/mirror"
)

// buildHierarchy wires Animal <- Dog <- Puppy, a Walker interface satisfied
// by Dog, and an unrelated Robot.
func buildHierarchy() []*mirror.EntityMirror {
	animal := testEntity("app/models", "Animal")
	walker := testEntity("app/models", "Walker")
	walker.Abstract = true

	dog := testEntity("app/models", "Dog")
	dog.Super = refMirror(animal, "app/models")
	dog.Interfaces = []*mirror.TypeMirror{refMirror(walker, "app/models")}

	puppy := testEntity("app/models", "Puppy")
	puppy.Super = refMirror(dog, "app/models")

	robot := testEntity("app/models", "Robot")

	return []*mirror.EntityMirror{animal, walker, dog, puppy, robot}
}

func subclassNames(refs []*ClassRef) map[string]bool {
	out := make(map[string]bool, len(refs))
	for _, ref := range refs {
		out[ref.Name] = true
	}
	return out
}

func TestSubClassRefs_TransitiveAndSelfExcluding(t *testing.T) {
	r := newTestRegistry(t, appUnit(buildHierarchy()...))

	refs, err := r.GetSubClassRefs("Animal")
	if err != nil {
		t.Fatalf("GetSubClassRefs: %v", err)
	}
	names := subclassNames(refs)
	if !names["Dog"] || !names["Puppy"] {
		t.Errorf("subclasses of Animal = %v, want Dog and Puppy", names)
	}
	if names["Animal"] {
		t.Error("a class is never its own subclass")
	}
	if names["Robot"] {
		t.Error("Robot is unrelated and must not appear")
	}
}

func TestSubClassRefs_ThroughInterfaces(t *testing.T) {
	r := newTestRegistry(t, appUnit(buildHierarchy()...))

	refs, err := r.GetSubClassRefs("Walker")
	if err != nil {
		t.Fatalf("GetSubClassRefs: %v", err)
	}
	names := subclassNames(refs)
	// Dog implements directly, Puppy through its superclass
	if !names["Dog"] || !names["Puppy"] {
		t.Errorf("implementors of Walker = %v, want Dog and Puppy", names)
	}
}

func TestSubClassRefs_Diamond(t *testing.T) {
	root := testEntity("app/models", "Root")
	left := testEntity("app/models", "Left")
	left.Super = refMirror(root, "app/models")
	right := testEntity("app/models", "Right")
	right.Abstract = true
	right.Interfaces = []*mirror.TypeMirror{refMirror(root, "app/models")}
	bottom := testEntity("app/models", "Bottom")
	bottom.Super = refMirror(left, "app/models")
	bottom.Interfaces = []*mirror.TypeMirror{refMirror(right, "app/models")}

	r := newTestRegistry(t, appUnit(root, left, right, bottom))

	refs, err := r.GetSubClassRefs("Root")
	if err != nil {
		t.Fatalf("GetSubClassRefs: %v", err)
	}
	// Bottom reaches Root on two paths but appears once
	counts := make(map[string]int)
	for _, ref := range refs {
		counts[ref.Name]++
	}
	if counts["Bottom"] != 1 {
		t.Errorf("Bottom appeared %d times, want exactly once", counts["Bottom"])
	}
	if len(refs) != 3 {
		t.Errorf("got %d subclasses, want 3 (Left, Right, Bottom)", len(refs))
	}
}

func TestSubClassRefs_CyclicHierarchyTerminates(t *testing.T) {
	// malformed input: A extends B extends A
	a := testEntity("app/models", "A")
	b := testEntity("app/models", "B")
	a.Super = refMirror(b, "app/models")
	b.Super = refMirror(a, "app/models")
	target := testEntity("app/models", "Target")

	r := newTestRegistry(t, appUnit(a, b, target))

	refs, err := r.GetSubClassRefs("Target")
	if err != nil {
		t.Fatalf("GetSubClassRefs: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("cyclic hierarchy produced %d matches, want 0", len(refs))
	}
}

func TestSubClassRefs_DependencyScope(t *testing.T) {
	base := testEntity("libx/src", "Base")
	libUnit := &mirror.CompilationUnit{
		Locator:  "libx/src",
		Package:  &mirror.PackageMeta{Name: "libx/src"},
		Entities: []*mirror.EntityMirror{base},
	}

	// metadata mirrors discovery output: the package name is the import path
	// and dependencies are the imported package paths
	depChild := testEntity("app/models", "DepChild")
	depChild.Super = refMirror(base, "libx/src")
	depUnit := &mirror.CompilationUnit{
		Locator:  "app/models",
		Package:  &mirror.PackageMeta{Name: "app/models", Root: true, Dependencies: []string{"libx/src"}},
		Entities: []*mirror.EntityMirror{depChild},
	}

	// same super edge, but the owning package never imports libx/src
	strayChild := testEntity("other/pkg", "StrayChild")
	strayChild.Super = refMirror(base, "libx/src")
	strayUnit := &mirror.CompilationUnit{
		Locator:  "other/pkg",
		Package:  &mirror.PackageMeta{Name: "other/pkg"},
		Entities: []*mirror.EntityMirror{strayChild},
	}

	r := newTestRegistry(t, libUnit, depUnit, strayUnit)

	refs, err := r.GetSubClassRefs("Base")
	if err != nil {
		t.Fatalf("GetSubClassRefs: %v", err)
	}
	names := subclassNames(refs)
	if !names["DepChild"] {
		t.Error("a dependent package's subclass must be found")
	}
	if names["StrayChild"] {
		t.Error("a package that cannot see the parent must be outside the search scope")
	}
}

func TestSubClassRefs_Cached(t *testing.T) {
	r := newTestRegistry(t, appUnit(buildHierarchy()...))

	first, err := r.GetSubClassRefs("Animal")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.GetSubClassRefs("Animal")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached subclass refs should be the same instances")
		}
	}
}

func TestGetSubClasses_Materializes(t *testing.T) {
	r := newTestRegistry(t, appUnit(buildHierarchy()...))

	subs, err := r.GetSubClasses("Animal")
	if err != nil {
		t.Fatalf("GetSubClasses: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d declarations, want 2", len(subs))
	}
	for _, d := range subs {
		if d.Super == nil && len(d.Interfaces) == 0 {
			t.Errorf("%s materialized without supertype links", d.Name)
		}
	}
}
