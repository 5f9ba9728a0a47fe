package registry

import (
	"testing"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

func newTestBuilder(hints mirror.HintLookup) *DeclarationBuilder {
	return NewDeclarationBuilder(newTestResolver(), hints, logger.NewNopLogger())
}

func TestDeclarationBuilder_ModifierRegexFallback(t *testing.T) {
	tests := []struct {
		source string
		name   string
		want   decl.Modifiers
	}{
		{"sealed class Shape {}", "Shape", decl.ModifierSealed},
		{"abstract class Shape {}", "Shape", decl.ModifierAbstract},
		{"final class Shape {}", "Shape", decl.ModifierFinal},
		{"base class Shape {}", "Shape", decl.ModifierBase},
		{"sealed class Other {}", "Shape", 0},
		// substring names must not match
		{"sealed class ShapeKind {}", "Shape", 0},
		{"", "Shape", 0},
	}

	for _, tt := range tests {
		b := newTestBuilder(nil)
		b.SetSourceText(func(string) string { return tt.source })
		entity := &mirror.EntityMirror{
			Name:   tt.name,
			Handle: decl.NewTypeHandle("app." + tt.name),
		}
		got, err := b.GenerateClass(entity, "app", "app", false)
		if err != nil {
			t.Fatalf("GenerateClass: %v", err)
		}
		if tt.want != 0 && !got.Modifiers.Has(tt.want) {
			t.Errorf("source %q: modifiers %v missing %v", tt.source, got.Modifiers, tt.want)
		}
		if tt.want == 0 && got.Modifiers != 0 {
			t.Errorf("source %q: modifiers %v, want none", tt.source, got.Modifiers)
		}
	}
}

func TestDeclarationBuilder_HintKeywordsWin(t *testing.T) {
	hints := mirror.HintTable{
		mirror.HintKey("Shape", "app"): {
			Keywords: []string{"sealed", "base"},
		},
	}
	b := newTestBuilder(hints)
	entity := &mirror.EntityMirror{Name: "Shape", Handle: decl.NewTypeHandle("app.Shape")}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if !got.Modifiers.Has(decl.ModifierSealed) || !got.Modifiers.Has(decl.ModifierBase) {
		t.Errorf("modifiers = %v, want sealed|base", got.Modifiers)
	}
}

func TestDeclarationBuilder_MixinShape(t *testing.T) {
	b := newTestBuilder(nil)
	b.SetSourceText(func(string) string { return "mixin Loggable {}" })
	entity := &mirror.EntityMirror{Name: "Loggable", Handle: decl.NewTypeHandle("app.Loggable")}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Shape != decl.ShapeMixin {
		t.Errorf("Shape = %v, want mixin", got.Shape)
	}
	if !got.Modifiers.Has(decl.ModifierMixin) {
		t.Error("mixin modifier not set")
	}
}

func TestDeclarationBuilder_Enum(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:   "Color",
		Handle: decl.NewTypeHandle("app.Color"),
		Enum:   true,
		Members: []*mirror.MemberMirror{
			{Name: "red", Kind: mirror.MemberField, Static: true, Final: true, EnumValue: true, Value: 0},
			{Name: "green", Kind: mirror.MemberField, Static: true, Final: true, EnumValue: true, Value: 1},
			{Name: "index", Kind: mirror.MemberField, Type: &mirror.TypeMirror{Name: "int"}},
		},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Shape != decl.ShapeEnum {
		t.Fatalf("Shape = %v, want enum", got.Shape)
	}
	if len(got.Values) != 2 {
		t.Fatalf("got %d enum values, want 2", len(got.Values))
	}
	// each value is typed with the enum's own link and carries the singleton
	for i, v := range got.Values {
		if v.Type.QualifiedName != "app.Color" {
			t.Errorf("value %d typed %q, want app.Color", i, v.Type.QualifiedName)
		}
		if !v.Static || !v.Final {
			t.Errorf("value %d should be static final", i)
		}
	}
	if got.Values[0].Value != 0 || got.Values[1].Value != 1 {
		t.Errorf("values carry %v/%v, want 0/1", got.Values[0].Value, got.Values[1].Value)
	}
	// the holder fields are not duplicated into the ordinary field list
	if len(got.Fields) != 1 || got.Fields[0].Name != "index" {
		t.Errorf("fields = %v, want only index", got.Fields)
	}
}

func TestDeclarationBuilder_GenericBinding(t *testing.T) {
	stringLink := &decl.LinkDeclaration{
		Name:          "String",
		DisplayName:   "String",
		QualifiedName: "builtin.String",
		Handle:        decl.NewTypeHandle("builtin.String"),
		Public:        true,
	}

	b := newTestBuilder(nil)
	b.SetLinkLookup(func(name string) *decl.LinkDeclaration {
		if name == "String" {
			return stringLink
		}
		return nil
	})

	entity := &mirror.EntityMirror{
		Name:          "Box",
		Handle:        decl.NewTypeHandle("app.Box"),
		TypeVariables: []*mirror.TypeVariableMirror{{Name: "T"}},
		Annotations: []*mirror.AnnotationMirror{
			{Name: GenericBindingMarker, Arguments: map[string]string{"type": "Box<String>"}},
		},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Unresolved {
		t.Error("binding present, declaration must not be unresolved")
	}
	if len(got.TypeArguments) != 1 || got.TypeArguments[0] != stringLink {
		t.Fatalf("TypeArguments = %v, want the bound String link", got.TypeArguments)
	}
}

func TestDeclarationBuilder_UnboundGenericIsUnresolved(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:          "Box",
		Handle:        decl.NewTypeHandle("app.Box"),
		TypeVariables: []*mirror.TypeVariableMirror{{Name: "T"}},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if !got.Unresolved {
		t.Error("generic without binding or arguments must be unresolved")
	}
}

func TestDeclarationBuilder_ConcreteArgumentsResolve(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:          "Box",
		Handle:        decl.NewTypeHandle("app.Box<int>"),
		TypeVariables: []*mirror.TypeVariableMirror{{Name: "T"}},
		TypeArguments: []*mirror.TypeMirror{{Name: "int"}},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Unresolved {
		t.Error("instantiation with concrete arguments must not be unresolved")
	}
}

func TestDeclarationBuilder_Supertypes(t *testing.T) {
	hints := mirror.HintTable{
		mirror.HintKey("Dog", "app"): {
			SuperClause: &mirror.TypeHint{DisplayName: "Animal<Dog>"},
		},
	}
	b := newTestBuilder(hints)
	entity := &mirror.EntityMirror{
		Name:   "Dog",
		Handle: decl.NewTypeHandle("app.Dog"),
		Super:  &mirror.TypeMirror{Name: "Animal", Library: "app", Handle: decl.NewTypeHandle("app.Animal")},
		Interfaces: []*mirror.TypeMirror{
			{Name: "Pet", Library: "app", Handle: decl.NewTypeHandle("app.Pet")},
		},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Super == nil || got.Super.Name != "Animal" {
		t.Fatalf("Super = %v, want Animal", got.Super)
	}
	// the matching hint clause refines the display name
	if got.Super.DisplayName != "Animal<Dog>" {
		t.Errorf("Super.DisplayName = %q, want Animal<Dog>", got.Super.DisplayName)
	}
	if len(got.Interfaces) != 1 || got.Interfaces[0].Name != "Pet" {
		t.Errorf("Interfaces = %v, want [Pet]", got.Interfaces)
	}
}

func TestDeclarationBuilder_FunctionEntity(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:           "Callback",
		Handle:         decl.NewTypeHandle("app.Callback"),
		FunctionShaped: true,
		Signature: &mirror.TypeMirror{
			Name:           "Callback",
			Library:        "app",
			FunctionShaped: true,
			ReturnType:     &mirror.TypeMirror{Name: "void"},
			Parameters:     []*mirror.ParameterMirror{{Name: "event", Type: &mirror.TypeMirror{Name: "String"}}},
		},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.Shape != decl.ShapeFunction {
		t.Fatalf("Shape = %v, want function", got.Shape)
	}
	if got.FunctionLink == nil || got.FunctionLink.Function == nil {
		t.Fatal("function declaration must carry a function link")
	}
	if got.FunctionLink.Function.ReturnType.Name != decl.VoidName {
		t.Errorf("return = %q, want void", got.FunctionLink.Function.ReturnType.Name)
	}
}

func TestDeclarationBuilder_FunctionWithoutSignatureDegrades(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:           "Opaque",
		Handle:         decl.NewTypeHandle("app.Opaque"),
		FunctionShaped: true,
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if got.FunctionLink == nil {
		t.Fatal("degraded function entity must still carry a link")
	}
}

func TestDeclarationBuilder_Members(t *testing.T) {
	b := newTestBuilder(nil)
	entity := &mirror.EntityMirror{
		Name:   "User",
		Handle: decl.NewTypeHandle("app.User"),
		Members: []*mirror.MemberMirror{
			{Name: "User", Kind: mirror.MemberConstructor},
			{Name: "name", Kind: mirror.MemberField, Type: &mirror.TypeMirror{Name: "String"}},
			{Name: "_secret", Kind: mirror.MemberField, Type: &mirror.TypeMirror{Name: "int"}},
			{Name: "Greet", Kind: mirror.MemberMethod, Type: &mirror.TypeMirror{Name: "String"},
				Parameters: []*mirror.ParameterMirror{{Name: "other", Type: &mirror.TypeMirror{Name: "User", Library: "app"}}}},
		},
	}

	got, err := b.GenerateClass(entity, "app", "app", false)
	if err != nil {
		t.Fatalf("GenerateClass: %v", err)
	}
	if len(got.Constructors) != 1 || len(got.Fields) != 2 || len(got.Methods) != 1 {
		t.Fatalf("members = %d ctors / %d fields / %d methods, want 1/2/1",
			len(got.Constructors), len(got.Fields), len(got.Methods))
	}
	if got.Fields[1].Public {
		t.Error("_secret should not be public")
	}
	method := got.Methods[0]
	if method.ReturnType.Name != "String" {
		t.Errorf("return type = %q, want String", method.ReturnType.Name)
	}
	if len(method.Parameters) != 1 || method.Parameters[0].Position != 0 {
		t.Errorf("parameters = %v, want one at position 0", method.Parameters)
	}
	if method.Parent == nil || method.Parent.QualifiedName != "app.User" {
		t.Error("member parent link should point at the declaring class")
	}
}
