package loader

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		doc      string
		wantName string
		wantArgs map[string]string
	}{
		{"@sealed", "sealed", nil},
		{"@bindGeneric(type: Box<String>)", "bindGeneric", map[string]string{"type": "Box<String>"}},
		{"@route(/users)", "route", map[string]string{"": "/users"}},
		{"@tag(a, b)", "tag", map[string]string{"": "a", "1": "b"}},
		{"@named(key: \"quoted value\")", "named", map[string]string{"key": "quoted value"}},
		{"plain comment without markers", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			got := ParseDirectives(tt.doc)
			if tt.wantName == "" {
				if len(got) != 0 {
					t.Fatalf("ParseDirectives(%q) = %v, want none", tt.doc, got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("ParseDirectives(%q) found %d directives, want 1", tt.doc, len(got))
			}
			if got[0].Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got[0].Name, tt.wantName)
			}
			for k, want := range tt.wantArgs {
				if got[0].Arguments[k] != want {
					t.Errorf("Arguments[%q] = %q, want %q", k, got[0].Arguments[k], want)
				}
			}
		})
	}
}

func TestParseDirectives_Multiple(t *testing.T) {
	got := ParseDirectives("@sealed\n@extends(Animal)\nsome prose")
	if len(got) != 2 {
		t.Fatalf("found %d directives, want 2", len(got))
	}
	if got[0].Name != "sealed" || got[1].Name != "extends" {
		t.Errorf("directives = %s, %s", got[0].Name, got[1].Name)
	}
}

func TestTypeHintFromDisplay(t *testing.T) {
	hint := typeHintFromDisplay("Comparable<Node<T>>?", "app")
	if hint == nil {
		t.Fatal("nil hint")
	}
	if !hint.Nullable {
		t.Error("trailing ? should mark the hint nullable")
	}
	if !hint.Matches("Comparable") {
		t.Error("hint should match its base name")
	}
	arg := hint.Argument(0)
	if arg == nil || !arg.Matches("Node") {
		t.Fatalf("Argument(0) = %v, want Node<T>", arg)
	}
	if inner := arg.Argument(0); inner == nil || inner.DisplayName != "T" {
		t.Errorf("nested argument = %v, want T", inner)
	}
}

func TestTypeHintFromDisplay_Record(t *testing.T) {
	hint := typeHintFromDisplay("(int, String)", "app")
	if hint == nil || !hint.Record {
		t.Fatalf("record spelling should produce a record hint, got %v", hint)
	}
}

func collectFixtureHints(t *testing.T, src string) mirror.HintTable {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "fixture.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	l := NewLoader(logger.NewNopLogger())
	l.collectHintsFiles([]*ast.File{file}, "example.com/hints")
	return l.hints
}

func TestCollectHints(t *testing.T) {
	src := `
package fixture

// @sealed
// @extends(LifeForm<Animal>)
type Animal struct {
	// @deprecated
	Name *string
	Legs int
}

type Box[T any] struct {
	Item T
}
`
	hints := collectFixtureHints(t, src)

	animal := hints.LookupClass("Animal", "example.com/hints")
	if animal == nil {
		t.Fatal("no hint for Animal")
	}
	if !animal.HasKeyword("sealed") {
		t.Error("sealed keyword not captured")
	}
	if animal.SuperClause == nil || !animal.SuperClause.Matches("LifeForm") {
		t.Fatalf("SuperClause = %v, want LifeForm<Animal>", animal.SuperClause)
	}
	if name := animal.Members["Name"]; name == nil || !name.Nullable || name.DisplayType != "*string" {
		t.Errorf("Name member hint = %v, want nullable *string", name)
	}

	box := hints.LookupClass("Box", "example.com/hints")
	if box == nil || box.DisplayName != "Box<T>" {
		t.Fatalf("Box display = %v, want Box<T>", box)
	}
}

func TestCollectHints_MethodResults(t *testing.T) {
	src := `
package fixture

func (s *Store) Fetch(id string) (string, error) { return "", nil }

type Store struct{}

func (s *Store) Find(id string) *Store { return nil }
`
	hints := collectFixtureHints(t, src)

	store := hints.LookupClass("Store", "example.com/hints")
	if store == nil {
		t.Fatal("no hint for Store")
	}
	fetch := store.Members["Fetch"]
	if fetch == nil || !fetch.Record || fetch.DisplayType != "(string, error)" {
		t.Fatalf("Fetch hint = %+v, want record (string, error)", fetch)
	}
	find := store.Members["Find"]
	if find == nil || find.Record || !find.Nullable || find.DisplayType != "*Store" {
		t.Fatalf("Find hint = %+v, want nullable *Store", find)
	}
}

func TestCollectHints_MethodDirectives(t *testing.T) {
	src := `
package fixture

type Service struct{}

// @route(/users)
func (s *Service) Handle() {}
`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "fixture.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	l := NewLoader(logger.NewNopLogger())
	l.collectHintsFiles([]*ast.File{file}, "example.com/hints")

	key := mirror.HintKey("Service", "example.com/hints") + ".Handle"
	anns := l.annotations[key]
	if len(anns) != 1 || anns[0].Name != "route" {
		t.Fatalf("annotations = %v, want [route]", anns)
	}
	if anns[0].Arguments[""] != "/users" {
		t.Errorf("argument = %q, want /users", anns[0].Arguments[""])
	}
}
