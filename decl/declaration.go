package decl

// ClassDeclaration is the heavyweight, fully resolved model of a class-like
// entity: supertypes, generics, annotations, members and modifier flags.
// The same struct backs classes, enums, mixins, records and (when a caller
// opts in) named function types, discriminated by Shape.
type ClassDeclaration struct {
	Name           string
	QualifiedName  string
	Handle         TypeHandle
	BaseHandle     TypeHandle
	LibraryLocator string
	SourceLocator  string
	BuiltIn        bool

	Shape     EntityShape
	Modifiers Modifiers

	// TypeParameters are the declared generic variables, TypeArguments the
	// concrete arguments of an instantiation (empty for raw generics).
	TypeParameters []*LinkDeclaration
	TypeArguments  []*LinkDeclaration

	Super      *LinkDeclaration
	Interfaces []*LinkDeclaration
	Mixins     []*LinkDeclaration

	Annotations  []*AnnotationDeclaration
	Constructors []*ConstructorDeclaration
	Fields       []*FieldDeclaration
	Methods      []*MethodDeclaration

	// Values holds the enum values as typed fields carrying the enum's own
	// link; the static holder fields are not repeated under Fields.
	Values []*FieldDeclaration

	// FunctionLink is set for function-shaped declarations
	FunctionLink *LinkDeclaration

	Public    bool
	Synthetic bool

	// Unresolved marks a generic declaration whose type variables carry no
	// explicit concrete binding; such a declaration cannot be instantiated.
	Unresolved bool
}

// SelfLink builds a link declaration pointing back at this declaration.
// Member generation receives it so members can record their parent without a
// forward reference.
func (d *ClassDeclaration) SelfLink() *LinkDeclaration {
	return &LinkDeclaration{
		Name:          d.Name,
		DisplayName:   d.Name,
		QualifiedName: d.QualifiedName,
		Handle:        d.Handle,
		BaseHandle:    d.BaseHandle,
		TypeArguments: d.TypeArguments,
		Public:        d.Public,
		Synthetic:     d.Synthetic,
	}
}

func (d *ClassDeclaration) IsAbstract() bool  { return d.Modifiers.Has(ModifierAbstract) }
func (d *ClassDeclaration) IsBase() bool      { return d.Modifiers.Has(ModifierBase) }
func (d *ClassDeclaration) IsSealed() bool    { return d.Modifiers.Has(ModifierSealed) }
func (d *ClassDeclaration) IsInterface() bool { return d.Modifiers.Has(ModifierInterface) }
func (d *ClassDeclaration) IsFinal() bool     { return d.Modifiers.Has(ModifierFinal) }
func (d *ClassDeclaration) IsMixin() bool     { return d.Shape == ShapeMixin || d.Modifiers.Has(ModifierMixin) }
func (d *ClassDeclaration) IsRecord() bool    { return d.Shape == ShapeRecord || d.Modifiers.Has(ModifierRecord) }
func (d *ClassDeclaration) IsEnum() bool      { return d.Shape == ShapeEnum }

// WithMembers returns a copy of the declaration carrying the given members.
// Declarations are never mutated in place; refinement produces a new value
// that overwrites the cache entry.
func (d *ClassDeclaration) WithMembers(constructors []*ConstructorDeclaration, fields []*FieldDeclaration, methods []*MethodDeclaration) *ClassDeclaration {
	next := *d
	next.Constructors = constructors
	next.Fields = fields
	next.Methods = methods
	return &next
}

// FindMethod returns the named method, or nil
func (d *ClassDeclaration) FindMethod(name string) *MethodDeclaration {
	for _, m := range d.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindField returns the named field, or nil
func (d *ClassDeclaration) FindField(name string) *FieldDeclaration {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ParameterDeclaration is one parameter of a constructor or method
type ParameterDeclaration struct {
	Name     string
	Type     *LinkDeclaration
	Position int
	Named    bool
	Required bool
}

// ConstructorDeclaration models one constructor of a class-like entity
type ConstructorDeclaration struct {
	Name        string
	Parent      *LinkDeclaration
	Parameters  []*ParameterDeclaration
	Annotations []*AnnotationDeclaration
	Factory     bool
	Public      bool
	Synthetic   bool
}

// FieldDeclaration models one field; enum values reuse it with the enum's own
// link as Type and the singleton value in Value.
type FieldDeclaration struct {
	Name        string
	Parent      *LinkDeclaration
	Type        *LinkDeclaration
	Annotations []*AnnotationDeclaration
	Static      bool
	Final       bool
	Public      bool
	Synthetic   bool
	// Value carries the concrete singleton for enum values, nil otherwise
	Value any
}

// MethodDeclaration models one non-constructor method
type MethodDeclaration struct {
	Name        string
	Parent      *LinkDeclaration
	ReturnType  *LinkDeclaration
	Parameters  []*ParameterDeclaration
	Annotations []*AnnotationDeclaration
	Static      bool
	Abstract    bool
	Public      bool
	Synthetic   bool
}

// HasAnnotation reports whether the method carries the marker
func (m *MethodDeclaration) HasAnnotation(marker string) bool {
	return FindAnnotation(m.Annotations, marker) != nil
}
