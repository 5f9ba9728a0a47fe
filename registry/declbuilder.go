package registry

import (
	"fmt"
	"regexp"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

// GenericBindingMarker is the annotation carrying an explicit concrete type
// for an otherwise type-erased generic class, e.g. `@bindGeneric(Box<String>)`.
const GenericBindingMarker = "bindGeneric"

// DeclarationBuilder orchestrates declaration generation: for a class-like
// entity it produces a fully populated declaration with supertype links,
// type parameters, annotations, members and modifier flags, combining the
// primary reflection source with the secondary static model and, as a last
// resort, regex fallbacks over raw source text.
type DeclarationBuilder struct {
	resolver *LinkResolver
	hints    mirror.HintLookup

	// sourceText serves raw unit text for the regex fallbacks
	sourceText func(libraryLocator string) string
	// lookupLink resolves a type name to a link, used when substituting an
	// explicit generic binding; set by the registry
	lookupLink func(name string) *decl.LinkDeclaration

	log logger.Logger
}

// NewDeclarationBuilder wires a builder to its resolver and hint source
func NewDeclarationBuilder(resolver *LinkResolver, hints mirror.HintLookup, log logger.Logger) *DeclarationBuilder {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	log.SetTag("DeclBuilder")
	return &DeclarationBuilder{
		resolver:   resolver,
		hints:      hints,
		sourceText: func(string) string { return "" },
		lookupLink: func(string) *decl.LinkDeclaration { return nil },
		log:        log,
	}
}

// SetSourceText installs the raw-text lookup used by the regex fallbacks
func (b *DeclarationBuilder) SetSourceText(fn func(libraryLocator string) string) {
	if fn != nil {
		b.sourceText = fn
	}
}

// SetLinkLookup installs the name-to-link lookup used for generic binding
// substitution
func (b *DeclarationBuilder) SetLinkLookup(fn func(name string) *decl.LinkDeclaration) {
	if fn != nil {
		b.lookupLink = fn
	}
}

func (b *DeclarationBuilder) lookupHint(name, sourceLocator string) *mirror.ClassHint {
	if b.hints == nil {
		return nil
	}
	return b.hints.LookupClass(name, sourceLocator)
}

// GenerateClass produces the declaration for one class-like entity. Shape is
// decided once, up front; per-member extraction failures are recovered
// locally, so generation never aborts because one member failed.
func (b *DeclarationBuilder) GenerateClass(entity *mirror.EntityMirror, libraryLocator, sourceLocator string, builtIn bool) (*decl.ClassDeclaration, error) {
	if entity == nil || entity.Name == "" {
		return nil, fmt.Errorf("cannot generate declaration for empty entity")
	}

	source := b.sourceText(libraryLocator)
	hint := b.lookupHint(entity.Name, sourceLocator)
	shape := classifyShape(entity, hint, source)

	switch shape {
	case decl.ShapeEnum:
		return b.generateEnum(entity, hint, libraryLocator, sourceLocator, builtIn), nil
	case decl.ShapeFunction:
		return b.generateFunction(entity, hint, libraryLocator, sourceLocator, builtIn), nil
	default:
		return b.generateClassLike(shape, entity, hint, source, libraryLocator, sourceLocator, builtIn), nil
	}
}

// classifyShape dispatches on entity shape exactly once. Mixin shape is
// detected by a source-text pattern when the primary source cannot express it
// structurally.
func classifyShape(entity *mirror.EntityMirror, hint *mirror.ClassHint, source string) decl.EntityShape {
	switch {
	case entity.Enum:
		return decl.ShapeEnum
	case entity.FunctionShaped:
		return decl.ShapeFunction
	case entity.RecordShaped || (hint != nil && hint.RecordShaped):
		return decl.ShapeRecord
	case hint.HasKeyword("mixin") || matchMixinDecl(source, entity.Name):
		return decl.ShapeMixin
	default:
		return decl.ShapeClass
	}
}

var modifierKeywords = []string{"abstract", "sealed", "base", "final", "interface", "mixin"}

// resolveModifiers ORs two sources: the secondary static-model keywords,
// authoritative when present, and a source-text regex fallback. The dual
// strategy exists because the primary reflection source frequently cannot
// express modern modifier keywords.
func resolveModifiers(hint *mirror.ClassHint, source, name string) decl.Modifiers {
	var mods decl.Modifiers
	if hint != nil {
		for _, kw := range hint.Keywords {
			mods |= decl.ModifierFromKeyword(kw)
		}
	}
	for _, kw := range modifierKeywords {
		if mods.Has(decl.ModifierFromKeyword(kw)) {
			continue
		}
		if matchModifierDecl(source, kw, name) {
			mods |= decl.ModifierFromKeyword(kw)
		}
	}
	return mods
}

func matchModifierDecl(source, keyword, name string) bool {
	if source == "" || name == "" {
		return false
	}
	pattern := `\b` + keyword + `\s+(?:mixin\s+)?class\s+` + regexp.QuoteMeta(name) + `\b`
	matched, err := regexp.MatchString(pattern, source)
	return err == nil && matched
}

func matchMixinDecl(source, name string) bool {
	if source == "" || name == "" {
		return false
	}
	pattern := `\bmixin\s+(?:class\s+)?` + regexp.QuoteMeta(name) + `\b`
	matched, err := regexp.MatchString(pattern, source)
	return err == nil && matched
}

func (b *DeclarationBuilder) generateClassLike(shape decl.EntityShape, entity *mirror.EntityMirror, hint *mirror.ClassHint, source, libraryLocator, sourceLocator string, builtIn bool) *decl.ClassDeclaration {
	d := b.newShell(shape, entity, libraryLocator, sourceLocator, builtIn)
	d.Modifiers = resolveModifiers(hint, source, entity.Name)
	if shape == decl.ShapeMixin {
		d.Modifiers |= decl.ModifierMixin
	}
	if shape == decl.ShapeRecord {
		d.Modifiers |= decl.ModifierRecord
	}
	if entity.Abstract {
		d.Modifiers |= decl.ModifierAbstract
	}

	b.resolveSupertypes(d, entity, hint)
	b.resolveGenerics(d, entity, libraryLocator)
	b.generateMembers(d, entity, hint, false)
	return d
}

// generateEnum additionally extracts each enum value as a typed field
// carrying the enum's own link and the concrete singleton value. Static
// value-holder fields are emitted once, as values, not twice.
func (b *DeclarationBuilder) generateEnum(entity *mirror.EntityMirror, hint *mirror.ClassHint, libraryLocator, sourceLocator string, builtIn bool) *decl.ClassDeclaration {
	d := b.newShell(decl.ShapeEnum, entity, libraryLocator, sourceLocator, builtIn)
	b.resolveSupertypes(d, entity, hint)
	b.resolveGenerics(d, entity, libraryLocator)
	b.generateMembers(d, entity, hint, true)

	self := d.SelfLink()
	for _, member := range entity.Members {
		if !member.EnumValue {
			continue
		}
		d.Values = append(d.Values, &decl.FieldDeclaration{
			Name:        member.Name,
			Parent:      self,
			Type:        self,
			Annotations: convertAnnotations(member.Annotations),
			Static:      true,
			Final:       true,
			Public:      !decl.IsInternalName(member.Name),
			Value:       member.Value,
		})
	}
	return d
}

func (b *DeclarationBuilder) generateFunction(entity *mirror.EntityMirror, hint *mirror.ClassHint, libraryLocator, sourceLocator string, builtIn bool) *decl.ClassDeclaration {
	d := b.newShell(decl.ShapeFunction, entity, libraryLocator, sourceLocator, builtIn)

	sig := entity.Signature
	if sig == nil {
		// degrade to a bare function shell pointing at the entity itself
		sig = &mirror.TypeMirror{
			Name:           entity.Name,
			Handle:         entity.Handle,
			Library:        libraryLocator,
			FunctionShaped: true,
		}
	}
	var clause *mirror.TypeHint
	if hint != nil {
		clause = hint.Clause(entity.Name)
	}
	d.FunctionLink = b.resolver.ResolveLink(sig, clause)
	d.TypeParameters = b.resolver.ResolveTypeParameters(entity.TypeVariables, libraryLocator)
	return d
}

// newShell builds the declaration skeleton shared by every shape
func (b *DeclarationBuilder) newShell(shape decl.EntityShape, entity *mirror.EntityMirror, libraryLocator, sourceLocator string, builtIn bool) *decl.ClassDeclaration {
	base := entity.Handle
	qualified := decl.Qualify(libraryLocator, entity.Name)
	return &decl.ClassDeclaration{
		Name:           entity.Name,
		QualifiedName:  qualified,
		Handle:         entity.Handle,
		BaseHandle:     base,
		LibraryLocator: libraryLocator,
		SourceLocator:  sourceLocator,
		BuiltIn:        builtIn,
		Shape:          shape,
		Annotations:    convertAnnotations(entity.Annotations),
		Public:         !decl.IsInternalName(entity.Name),
		Synthetic:      decl.IsSyntheticName(entity.Name),
	}
}

// resolveSupertypes resolves the supertype, interface and mixin links,
// passing the secondary model's matching clause (matched by name) as the
// hint for each.
func (b *DeclarationBuilder) resolveSupertypes(d *decl.ClassDeclaration, entity *mirror.EntityMirror, hint *mirror.ClassHint) {
	if entity.Super != nil {
		d.Super = b.resolver.ResolveLink(entity.Super, hint.Clause(entity.Super.Name))
	}
	for _, iface := range entity.Interfaces {
		if iface == nil {
			continue
		}
		if link := b.resolver.ResolveLink(iface, hint.Clause(iface.Name)); link != nil {
			d.Interfaces = append(d.Interfaces, link)
		}
	}
	for _, mixin := range entity.Mixins {
		if mixin == nil {
			continue
		}
		if link := b.resolver.ResolveLink(mixin, hint.Clause(mixin.Name)); link != nil {
			d.Mixins = append(d.Mixins, link)
		}
	}
}

// resolveGenerics resolves type parameters and arguments, then checks
// whether the declaration still carries unresolved type variables. When it
// does, an explicit generic-binding annotation substitutes the concrete
// arguments; without one the declaration is flagged unresolved and cannot be
// instantiated.
func (b *DeclarationBuilder) resolveGenerics(d *decl.ClassDeclaration, entity *mirror.EntityMirror, libraryLocator string) {
	d.TypeParameters = b.resolver.ResolveTypeParameters(entity.TypeVariables, libraryLocator)

	for _, arg := range entity.TypeArguments {
		if link := b.resolver.ResolveLink(arg, nil); link != nil {
			d.TypeArguments = append(d.TypeArguments, link)
		}
	}

	if !b.shouldCheckGeneric(d) {
		return
	}

	binding := decl.FindAnnotation(d.Annotations, GenericBindingMarker)
	if binding == nil {
		d.Unresolved = true
		return
	}

	parsed := ParseGenericType(binding.Argument("type"))
	names := []string{parsed.Base}
	if parsed.IsGeneric() {
		names = nil
		for _, arg := range parsed.Args {
			names = append(names, arg.TypeString)
		}
	}

	args := make([]*decl.LinkDeclaration, 0, len(names))
	for _, name := range names {
		link := b.lookupLink(name)
		if link == nil {
			b.log.Debug(fmt.Sprintf("generic binding %q of %s did not resolve", name, d.QualifiedName))
			link = decl.ObjectLink()
		}
		args = append(args, link)
	}
	d.TypeArguments = args
	d.Unresolved = false
}

// shouldCheckGeneric reports whether the computed handle still carries
// unresolved type variables
func (b *DeclarationBuilder) shouldCheckGeneric(d *decl.ClassDeclaration) bool {
	if len(d.TypeParameters) == 0 {
		return false
	}
	if len(d.TypeArguments) == 0 {
		return true
	}
	for _, arg := range d.TypeArguments {
		if arg.Handle.Variable {
			return true
		}
	}
	return false
}

// generateMembers enumerates constructors, fields and methods. Each member
// generation call receives a self-link so members can record their parent
// without a forward reference. skipEnumHolders drops the static value-holder
// fields of enums from the ordinary field list.
func (b *DeclarationBuilder) generateMembers(d *decl.ClassDeclaration, entity *mirror.EntityMirror, hint *mirror.ClassHint, skipEnumHolders bool) {
	self := d.SelfLink()

	for _, member := range entity.Members {
		if member == nil || member.Name == "" {
			continue
		}
		if skipEnumHolders && member.EnumValue {
			continue
		}
		b.safely(d.QualifiedName, member.Name, func() {
			switch member.Kind {
			case mirror.MemberConstructor:
				d.Constructors = append(d.Constructors, b.buildConstructor(member, self))
			case mirror.MemberField:
				d.Fields = append(d.Fields, b.buildField(member, self, hint))
			case mirror.MemberMethod:
				d.Methods = append(d.Methods, b.buildMethod(member, self, hint))
			}
		})
	}
}

// safely recovers a single member extraction failure; the surrounding
// declaration is still returned with that one piece omitted.
func (b *DeclarationBuilder) safely(parent, member string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Debug(fmt.Sprintf("skipping member %s.%s: %v", parent, member, r))
		}
	}()
	fn()
}

func (b *DeclarationBuilder) buildConstructor(m *mirror.MemberMirror, self *decl.LinkDeclaration) *decl.ConstructorDeclaration {
	return &decl.ConstructorDeclaration{
		Name:        m.Name,
		Parent:      self,
		Parameters:  b.buildParameters(m.Parameters),
		Annotations: convertAnnotations(m.Annotations),
		Factory:     m.Factory,
		Public:      !decl.IsInternalName(m.Name),
		Synthetic:   decl.IsSyntheticName(m.Name),
	}
}

func (b *DeclarationBuilder) buildField(m *mirror.MemberMirror, self *decl.LinkDeclaration, hint *mirror.ClassHint) *decl.FieldDeclaration {
	fieldType := b.resolver.ResolveLink(m.Type, memberTypeHint(hint, m.Name))
	if fieldType == nil {
		fieldType = decl.ObjectLink()
	}
	return &decl.FieldDeclaration{
		Name:        m.Name,
		Parent:      self,
		Type:        fieldType,
		Annotations: convertAnnotations(m.Annotations),
		Static:      m.Static,
		Final:       m.Final,
		Public:      !decl.IsInternalName(m.Name),
		Synthetic:   decl.IsSyntheticName(m.Name),
	}
}

func (b *DeclarationBuilder) buildMethod(m *mirror.MemberMirror, self *decl.LinkDeclaration, hint *mirror.ClassHint) *decl.MethodDeclaration {
	returnType := b.resolver.ResolveLink(m.Type, memberTypeHint(hint, m.Name))
	if returnType == nil {
		returnType = decl.DynamicLink()
	}
	return &decl.MethodDeclaration{
		Name:        m.Name,
		Parent:      self,
		ReturnType:  returnType,
		Parameters:  b.buildParameters(m.Parameters),
		Annotations: convertAnnotations(m.Annotations),
		Static:      m.Static,
		Abstract:    m.Abstract,
		Public:      !decl.IsInternalName(m.Name),
		Synthetic:   decl.IsSyntheticName(m.Name),
	}
}

func (b *DeclarationBuilder) buildParameters(params []*mirror.ParameterMirror) []*decl.ParameterDeclaration {
	var out []*decl.ParameterDeclaration
	for i, p := range params {
		if p == nil {
			continue
		}
		paramType := b.resolver.ResolveLink(p.Type, nil)
		if paramType == nil {
			paramType = decl.DynamicLink()
		}
		out = append(out, &decl.ParameterDeclaration{
			Name:     p.Name,
			Type:     paramType,
			Position: i,
			Named:    p.Named,
			Required: p.Required,
		})
	}
	return out
}

// memberTypeHint lifts a static-model member hint into a type hint
func memberTypeHint(hint *mirror.ClassHint, member string) *mirror.TypeHint {
	if hint == nil || hint.Members == nil {
		return nil
	}
	mh, ok := hint.Members[member]
	if !ok || mh == nil {
		return nil
	}
	return &mirror.TypeHint{
		DisplayName: mh.DisplayType,
		Nullable:    mh.Nullable,
		Record:      mh.Record,
	}
}

func convertAnnotations(src []*mirror.AnnotationMirror) []*decl.AnnotationDeclaration {
	var out []*decl.AnnotationDeclaration
	for _, a := range src {
		if a == nil {
			continue
		}
		out = append(out, &decl.AnnotationDeclaration{
			Name:          a.Name,
			QualifiedName: a.QualifiedName,
			Arguments:     a.Arguments,
		})
	}
	return out
}
