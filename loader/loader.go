// Package loader is the discovery adapter: it loads Go packages with the
// go/packages driver and converts their type information into the plain-data
// compilation units and static hints the registry consumes. The go/types view
// is the primary source; doc-comment directives and AST spellings become the
// secondary static model.
package loader

import (
	"fmt"
	"go/types"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedModule

// Loader converts loaded Go packages into compilation units
type Loader struct {
	log logger.Logger

	// IncludeUnexported also surfaces unexported members and types
	IncludeUnexported bool

	// entities indexes every converted entity by qualified name so type
	// references can be linked back after all units are built
	entities map[string]*mirror.EntityMirror
	// pending holds type mirrors awaiting their entity back-pointer
	pending []*mirror.TypeMirror
	hints   mirror.HintTable
	// annotations holds directives parsed from doc comments, keyed by hint
	// key for entities and by hint key + "." + member for members
	annotations map[string][]*mirror.AnnotationMirror
}

func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	log.SetTag("Loader")
	return &Loader{
		log:         log,
		entities:    make(map[string]*mirror.EntityMirror),
		hints:       make(mirror.HintTable),
		annotations: make(map[string][]*mirror.AnnotationMirror),
	}
}

// Load resolves the package patterns and converts every matched package. The
// returned hint lookup carries the static model extracted from the ASTs.
func (l *Loader) Load(patterns ...string) ([]*mirror.CompilationUnit, mirror.HintLookup, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	pkgs, err := loadPackages(loadMode, patterns...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packages: %w", err)
	}

	units := make([]*mirror.CompilationUnit, 0, len(pkgs)+1)
	units = append(units, BuiltinUnit())
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			l.log.Warn(fmt.Sprintf("package %s has no type information, skipped", pkg.PkgPath))
			continue
		}
		// hints first: the entity conversion attaches directives found there
		l.collectHints(pkg)
		units = append(units, l.convertPackage(pkg))
	}

	l.linkEntities()
	l.linkImplementations(pkgs)
	l.log.Info(fmt.Sprintf("loaded %d compilation units from %d patterns", len(units), len(patterns)))
	return units, l.hints, nil
}

// Hints returns the static model accumulated by Load
func (l *Loader) Hints() mirror.HintLookup {
	return l.hints
}

func (l *Loader) convertPackage(pkg *packages.Package) *mirror.CompilationUnit {
	unit := &mirror.CompilationUnit{
		Locator: pkg.PkgPath,
		Source:  readSources(pkg),
		Package: packageMeta(pkg),
	}

	scope := pkg.Types.Scope()
	enumValues := collectEnumConsts(scope)

	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		if !tn.Exported() && !l.IncludeUnexported {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		entity := l.convertEntity(named, pkg, enumValues[name])
		unit.Entities = append(unit.Entities, entity)
		l.entities[decl.Qualify(pkg.PkgPath, name)] = entity
	}
	return unit
}

// packageMeta records the package identity and its import closure. Name stays
// at import-path granularity so it lines up with the paths importers record
// in Dependencies; without that, dependency checks could never match.
func packageMeta(pkg *packages.Package) *mirror.PackageMeta {
	meta := &mirror.PackageMeta{Name: pkg.PkgPath}
	if pkg.Module != nil {
		meta.Root = pkg.Module.Main
	}
	seen := map[string]struct{}{pkg.PkgPath: {}}
	collectImports(pkg, seen, &meta.Dependencies)
	sort.Strings(meta.Dependencies)
	return meta
}

func collectImports(pkg *packages.Package, seen map[string]struct{}, out *[]string) {
	for path, imp := range pkg.Imports {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		*out = append(*out, path)
		collectImports(imp, seen, out)
	}
}

func readSources(pkg *packages.Package) string {
	var sb strings.Builder
	for _, file := range pkg.GoFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// collectEnumConsts groups package-level constants by the simple name of
// their named type; a type with such constants is surfaced as an enum.
func collectEnumConsts(scope *types.Scope) map[string][]*types.Const {
	out := make(map[string][]*types.Const)
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if !ok {
			continue
		}
		named, ok := c.Type().(*types.Named)
		if !ok || named.Obj().Pkg() == nil {
			continue
		}
		typeName := named.Obj().Name()
		out[typeName] = append(out[typeName], c)
	}
	return out
}

func (l *Loader) convertEntity(named *types.Named, pkg *packages.Package, enumConsts []*types.Const) *mirror.EntityMirror {
	name := named.Obj().Name()
	entity := &mirror.EntityMirror{
		Name:     name,
		Handle:   decl.NewTypeHandle(decl.Qualify(pkg.PkgPath, name)),
		Location: pkg.PkgPath,
	}

	for i := 0; i < named.TypeParams().Len(); i++ {
		entity.TypeVariables = append(entity.TypeVariables, l.typeVariable(named.TypeParams().At(i)))
	}

	switch u := named.Underlying().(type) {
	case *types.Struct:
		l.convertStruct(entity, u, pkg)
	case *types.Interface:
		entity.Abstract = true
		for i := 0; i < u.NumEmbeddeds(); i++ {
			if ref := l.typeMirror(u.EmbeddedType(i)); ref != nil {
				entity.Interfaces = append(entity.Interfaces, ref)
			}
		}
		for i := 0; i < u.NumExplicitMethods(); i++ {
			entity.Members = append(entity.Members, l.convertMethod(u.ExplicitMethod(i)))
		}
	case *types.Signature:
		entity.FunctionShaped = true
		entity.Signature = l.typeMirror(u)
	default:
		if len(enumConsts) > 0 {
			entity.Enum = true
			for _, c := range enumConsts {
				entity.Members = append(entity.Members, &mirror.MemberMirror{
					Name:      c.Name(),
					Kind:      mirror.MemberField,
					Type:      l.typeMirror(c.Type()),
					Static:    true,
					Final:     true,
					EnumValue: true,
					Value:     c.Val().String(),
				})
			}
		}
	}

	// declared methods apply regardless of the underlying shape
	for i := 0; i < named.NumMethods(); i++ {
		method := named.Method(i)
		if !method.Exported() && !l.IncludeUnexported {
			continue
		}
		entity.Members = append(entity.Members, l.convertMethod(method))
	}

	key := mirror.HintKey(name, pkg.PkgPath)
	entity.Annotations = l.annotations[key]
	for _, member := range entity.Members {
		member.Annotations = append(member.Annotations, l.annotations[key+"."+member.Name]...)
	}
	return entity
}

// convertStruct maps struct fields to members. The first embedded named
// struct becomes the superclass, further embedded structs become mixins and
// embedded interfaces become interface clauses; the rest are ordinary fields.
func (l *Loader) convertStruct(entity *mirror.EntityMirror, s *types.Struct, pkg *packages.Package) {
	for i := 0; i < s.NumFields(); i++ {
		field := s.Field(i)
		if !field.Exported() && !l.IncludeUnexported {
			continue
		}
		if field.Embedded() {
			ref := l.typeMirror(field.Type())
			if ref == nil {
				continue
			}
			switch field.Type().Underlying().(type) {
			case *types.Interface:
				entity.Interfaces = append(entity.Interfaces, ref)
			default:
				if entity.Super == nil {
					entity.Super = ref
				} else {
					entity.Mixins = append(entity.Mixins, ref)
				}
			}
			continue
		}
		entity.Members = append(entity.Members, &mirror.MemberMirror{
			Name: field.Name(),
			Kind: mirror.MemberField,
			Type: l.typeMirror(field.Type()),
		})
	}
}

func (l *Loader) convertMethod(fn *types.Func) *mirror.MemberMirror {
	sig, _ := fn.Type().(*types.Signature)
	member := &mirror.MemberMirror{
		Name: fn.Name(),
		Kind: mirror.MemberMethod,
	}
	if sig == nil {
		return member
	}
	member.Type = l.resultMirror(sig.Results())
	member.Parameters = l.convertParameters(sig)
	return member
}

func (l *Loader) convertParameters(sig *types.Signature) []*mirror.ParameterMirror {
	var out []*mirror.ParameterMirror
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		name := p.Name()
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		out = append(out, &mirror.ParameterMirror{
			Name:     name,
			Type:     l.typeMirror(p.Type()),
			Required: true,
		})
	}
	return out
}

// resultMirror maps a result tuple: nothing becomes void, a single result
// maps directly, multiple results surface as a positional record.
func (l *Loader) resultMirror(results *types.Tuple) *mirror.TypeMirror {
	switch results.Len() {
	case 0:
		return &mirror.TypeMirror{Name: decl.VoidName}
	case 1:
		return l.typeMirror(results.At(0).Type())
	default:
		rec := &mirror.TypeMirror{RecordShaped: true}
		for i := 0; i < results.Len(); i++ {
			rec.PositionalFields = append(rec.PositionalFields, l.typeMirror(results.At(i).Type()))
		}
		return rec
	}
}

func (l *Loader) typeVariable(tp *types.TypeParam) *mirror.TypeVariableMirror {
	tv := &mirror.TypeVariableMirror{Name: tp.Obj().Name()}
	if tp.Constraint() != nil {
		if iface, ok := tp.Constraint().Underlying().(*types.Interface); !ok || !iface.Empty() {
			tv.Bound = l.typeMirror(tp.Constraint())
		}
	}
	return tv
}

// typeMirror converts one type reference. Pointers surface as nullable via
// the `?` name suffix, slices and maps surface through the engine's
// collection vocabulary so their element types stay visible as arguments.
func (l *Loader) typeMirror(t types.Type) *mirror.TypeMirror {
	switch typ := t.(type) {
	case *types.Alias:
		return l.typeMirror(types.Unalias(typ))

	case *types.Named:
		return l.namedMirror(typ)

	case *types.Pointer:
		m := l.typeMirror(typ.Elem())
		if m == nil {
			return nil
		}
		nullable := *m
		nullable.Name = m.Name + "?"
		if m.DisplayName != "" {
			nullable.DisplayName = m.DisplayName + "?"
		}
		return &nullable

	case *types.Basic:
		return builtinMirror(primitiveName(typ))

	case *types.Slice:
		return l.collectionMirror("List", typ.Elem())
	case *types.Array:
		return l.collectionMirror("List", typ.Elem())
	case *types.Chan:
		return l.collectionMirror("Stream", typ.Elem())
	case *types.Map:
		return l.collectionMirror("Map", typ.Key(), typ.Elem())

	case *types.Signature:
		m := &mirror.TypeMirror{
			Name:           "Function",
			FunctionShaped: true,
			ReturnType:     l.resultMirror(typ.Results()),
			Parameters:     l.convertParameters(typ),
		}
		for i := 0; i < typ.TypeParams().Len(); i++ {
			m.TypeVariables = append(m.TypeVariables, l.typeVariable(typ.TypeParams().At(i)))
		}
		return m

	case *types.Struct:
		// anonymous struct: a named record shape
		rec := &mirror.TypeMirror{RecordShaped: true}
		for i := 0; i < typ.NumFields(); i++ {
			field := typ.Field(i)
			rec.NamedFields = append(rec.NamedFields, &mirror.NamedFieldMirror{
				Name: field.Name(),
				Type: l.typeMirror(field.Type()),
			})
		}
		return rec

	case *types.Interface:
		if typ.Empty() {
			return builtinMirror(decl.ObjectName)
		}
		return builtinMirror(decl.DynamicName)

	case *types.TypeParam:
		name := typ.Obj().Name()
		return &mirror.TypeMirror{
			Name:     name,
			Variable: true,
			Handle:   decl.VariableHandle(name),
		}

	default:
		return builtinMirror(decl.DynamicName)
	}
}

func (l *Loader) namedMirror(named *types.Named) *mirror.TypeMirror {
	obj := named.Obj()
	library := ""
	if obj.Pkg() != nil {
		library = obj.Pkg().Path()
	}

	m := &mirror.TypeMirror{
		Name:    obj.Name(),
		Library: library,
		Handle:  decl.NewTypeHandle(decl.Qualify(library, obj.Name())),
	}

	if args := named.TypeArgs(); args != nil && args.Len() > 0 {
		names := make([]string, 0, args.Len())
		for i := 0; i < args.Len(); i++ {
			arg := l.typeMirror(args.At(i))
			m.TypeArguments = append(m.TypeArguments, arg)
			names = append(names, displayOf(arg))
		}
		m.DisplayName = obj.Name() + "<" + strings.Join(names, ", ") + ">"
		m.BaseHandle = m.Handle
		m.Handle = decl.NewTypeHandle(decl.Qualify(library, m.DisplayName))
	}

	l.pending = append(l.pending, m)
	return m
}

func (l *Loader) collectionMirror(name string, elems ...types.Type) *mirror.TypeMirror {
	m := &mirror.TypeMirror{
		Name:   name,
		Handle: decl.NewTypeHandle(decl.Qualify(decl.BuiltInLocator, name)),
	}
	names := make([]string, 0, len(elems))
	for _, e := range elems {
		arg := l.typeMirror(e)
		m.TypeArguments = append(m.TypeArguments, arg)
		names = append(names, displayOf(arg))
	}
	m.DisplayName = name + "<" + strings.Join(names, ", ") + ">"
	return m
}

func builtinMirror(name string) *mirror.TypeMirror {
	return &mirror.TypeMirror{
		Name:   name,
		Handle: decl.NewTypeHandle(decl.Qualify(decl.BuiltInLocator, name)),
	}
}

func displayOf(m *mirror.TypeMirror) string {
	if m == nil {
		return decl.DynamicName
	}
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// primitiveName maps Go basic kinds onto the engine's primitive vocabulary
func primitiveName(b *types.Basic) string {
	switch b.Info() & (types.IsBoolean | types.IsInteger | types.IsFloat | types.IsComplex | types.IsString) {
	case types.IsBoolean:
		return "bool"
	case types.IsInteger:
		return "int"
	case types.IsFloat, types.IsComplex:
		return "double"
	case types.IsString:
		return "String"
	default:
		return decl.DynamicName
	}
}

// linkEntities sets the entity back-pointer on every type mirror whose
// target was loaded, turning leaf references into traversable graph edges.
func (l *Loader) linkEntities() {
	for _, m := range l.pending {
		if entity, ok := l.entities[decl.Qualify(m.Library, m.Name)]; ok {
			m.Entity = entity
		}
	}
	l.pending = nil
}

// linkImplementations adds interface clauses for satisfied interfaces across
// the loaded set, which Go never states explicitly. Quadratic over declared
// types, fine at package-set scale.
func (l *Loader) linkImplementations(pkgs []*packages.Package) {
	type ifaceEntry struct {
		iface  *types.Interface
		mirror *mirror.TypeMirror
	}
	var ifaces []ifaceEntry

	namedOf := make(map[string]*types.Named)
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			qualified := decl.Qualify(pkg.PkgPath, name)
			namedOf[qualified] = named
			if iface, ok := named.Underlying().(*types.Interface); ok && !iface.Empty() {
				ifaces = append(ifaces, ifaceEntry{iface: iface, mirror: l.namedMirror(named)})
			}
		}
	}
	l.linkEntities()

	for qualified, entity := range l.entities {
		named, ok := namedOf[qualified]
		if !ok || entity.Abstract {
			continue
		}
		for _, entry := range ifaces {
			if entry.mirror.Entity == entity {
				continue
			}
			if types.Implements(named, entry.iface) || types.Implements(types.NewPointer(named), entry.iface) {
				if !hasInterface(entity, entry.mirror) {
					entity.Interfaces = append(entity.Interfaces, entry.mirror)
				}
			}
		}
	}
}

func hasInterface(entity *mirror.EntityMirror, ref *mirror.TypeMirror) bool {
	for _, existing := range entity.Interfaces {
		if existing.QualifiedName() == ref.QualifiedName() {
			return true
		}
	}
	return false
}
