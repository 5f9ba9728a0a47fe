package registry

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

// LinkResolver turns any type reference (a primary-source mirror, optionally
// paired with a secondary static-model hint) into a resolved LinkDeclaration.
// It owns cycle detection via an in-flight identity-key set: a key already in
// flight means the resolution is cyclic and the link is omitted, which is the
// expected outcome for self-referential generics and mutually recursive
// aliases, not an error.
type LinkResolver struct {
	inflight map[uint64]struct{}
	log      logger.Logger
}

// NewLinkResolver creates a resolver with an empty in-flight set
func NewLinkResolver(log logger.Logger) *LinkResolver {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	log.SetTag("LinkResolver")
	return &LinkResolver{
		inflight: make(map[uint64]struct{}),
		log:      log,
	}
}

// InFlightCount returns the size of the cycle-guard set
func (r *LinkResolver) InFlightCount() int {
	return len(r.inflight)
}

// ClearInFlight drops every in-flight key. Cleanup always calls this: a stuck
// entry would deadlock future resolutions.
func (r *LinkResolver) ClearInFlight() {
	clear(r.inflight)
}

// identityKey builds the stable identity key for a (primary, hint) pair. The
// extra component carries a content hash for structural (function/record)
// types so two structurally distinct shapes never collide.
func (r *LinkResolver) identityKey(src *mirror.TypeMirror, hint *mirror.TypeHint, extra uint64) uint64 {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(src.Name)
	write(src.Handle.ID)
	if hint != nil {
		write(hint.DisplayName)
		write(hint.Location)
	}
	write(src.Library)
	if extra != 0 {
		fmt.Fprintf(h, "%x", extra)
	}
	return h.Sum64()
}

// ResolveLink resolves a type reference to a link declaration. It returns nil
// only for a nil mirror or a detected cycle; callers must treat nil as "omit
// this link". For every fully-formed request resolution is total: when
// nothing else matches, the link falls back to the root object type.
func (r *LinkResolver) ResolveLink(src *mirror.TypeMirror, hint *mirror.TypeHint) *decl.LinkDeclaration {
	if src == nil {
		return nil
	}

	// dynamic/untyped and void/nothing never take the general path
	switch src.Name {
	case decl.DynamicName:
		return decl.DynamicLink()
	case decl.VoidName:
		return decl.VoidLink()
	}

	// record shape requires confirmation from both sources before taking the
	// record path; an unconfirmed record reference degrades to a plain link
	if src.RecordShaped && hint != nil && hint.Record {
		return r.resolveRecordLink(src, hint)
	}

	if src.FunctionShaped {
		return r.resolveFunctionLink(src, hint)
	}

	key := r.identityKey(src, hint, 0)
	if _, busy := r.inflight[key]; busy {
		r.log.Debug(fmt.Sprintf("cycle detected resolving %s, omitting link", src.QualifiedName()))
		return nil
	}
	r.inflight[key] = struct{}{}
	// cleanup must run on every exit path
	defer delete(r.inflight, key)

	name := strings.TrimSuffix(src.Name, "?")
	nullable := name != src.Name
	if hint != nil && hint.Nullable {
		nullable = true
	}

	display := mergeDisplayName(src.DisplayName, hint)
	if display == "" {
		display = name
	}

	link := &decl.LinkDeclaration{
		Name:          name,
		DisplayName:   display,
		QualifiedName: decl.Qualify(src.Library, name),
		Handle:        src.Handle,
		BaseHandle:    src.Base(),
		Public:        !decl.IsInternalName(name),
		Synthetic:     decl.IsSyntheticName(name),
		Nullable:      nullable,
	}

	// recursively resolve each type argument through this same entry point,
	// skipping any argument whose own identity key is already in flight
	for i, arg := range src.TypeArguments {
		if arg == nil {
			continue
		}
		argHint := hint.Argument(i)
		if _, busy := r.inflight[r.identityKey(arg, argHint, 0)]; busy {
			r.log.Debug(fmt.Sprintf("cyclic argument %d of %s, omitting", i, link.QualifiedName))
			continue
		}
		if resolved := r.ResolveLink(arg, argHint); resolved != nil {
			link.TypeArguments = append(link.TypeArguments, resolved)
		}
	}

	if link.Name == "" && link.Handle.IsZero() {
		return decl.ObjectLink()
	}
	return link
}

// mergeDisplayName prefers the primary source's display name unless it is
// absent or imprecise and the hint's is non-trivial.
func mergeDisplayName(primary string, hint *mirror.TypeHint) string {
	if hint == nil || hint.DisplayName == "" || hint.DisplayName == decl.DynamicName {
		return primary
	}
	if primary == "" || primary == decl.DynamicName {
		return hint.DisplayName
	}
	// the hint wins when it carries type arguments the primary erased
	if strings.ContainsAny(hint.DisplayName, "<[") && !strings.ContainsAny(primary, "<[") {
		return hint.DisplayName
	}
	return primary
}

// contentHash folds a structural type's shape into a hash so that two
// distinct function or record types never share an identity key.
func (r *LinkResolver) contentHash(src *mirror.TypeMirror) uint64 {
	h := fnv.New64a()
	var walk func(t *mirror.TypeMirror, depth int)
	walk = func(t *mirror.TypeMirror, depth int) {
		if t == nil || depth > 8 {
			return
		}
		h.Write([]byte(t.Name))
		h.Write([]byte{'/'})
		h.Write([]byte(t.Handle.ID))
		h.Write([]byte{';'})
		walk(t.ReturnType, depth+1)
		for _, p := range t.Parameters {
			walk(p.Type, depth+1)
		}
		for _, f := range t.PositionalFields {
			walk(f, depth+1)
		}
		for _, f := range t.NamedFields {
			h.Write([]byte(f.Name))
			walk(f.Type, depth+1)
		}
		for _, a := range t.TypeArguments {
			walk(a, depth+1)
		}
	}
	walk(src, 0)
	return h.Sum64()
}

// resolveFunctionLink resolves a function-shaped type: return-type link,
// parameter links by position, declared type-parameter links and the type
// argument list, with a display name of the shape
// `ReturnType<TypeParams>Function(Param1, Param2)?`.
func (r *LinkResolver) resolveFunctionLink(src *mirror.TypeMirror, hint *mirror.TypeHint) *decl.LinkDeclaration {
	key := r.identityKey(src, hint, r.contentHash(src))
	if _, busy := r.inflight[key]; busy {
		r.log.Debug(fmt.Sprintf("cycle detected resolving function type %s, omitting link", src.Name))
		return nil
	}
	r.inflight[key] = struct{}{}
	defer delete(r.inflight, key)

	sig := &decl.FunctionSignature{}

	sig.ReturnType = r.ResolveLink(src.ReturnType, nil)
	if sig.ReturnType == nil {
		sig.ReturnType = decl.DynamicLink()
	}

	for _, p := range src.Parameters {
		link := r.ResolveLink(p.Type, nil)
		if link == nil {
			// keep the position, a cyclic parameter degrades to dynamic
			link = decl.DynamicLink()
		}
		sig.Parameters = append(sig.Parameters, link)
	}

	sig.TypeParameters = r.ResolveTypeParameters(src.TypeVariables, src.Library)

	nullable := strings.HasSuffix(src.Name, "?") || strings.HasSuffix(src.DisplayName, "?")
	if hint != nil && hint.Nullable {
		nullable = true
	}

	display := functionDisplayName(sig, nullable)
	name := strings.TrimSuffix(src.Name, "?")
	if name == "" {
		name = display
	}

	link := &decl.LinkDeclaration{
		Name:          name,
		DisplayName:   display,
		QualifiedName: decl.Qualify(src.Library, name),
		Handle:        src.Handle,
		BaseHandle:    src.Base(),
		Public:        !decl.IsInternalName(name),
		Synthetic:     decl.IsSyntheticName(name),
		Nullable:      nullable,
		Function:      sig,
	}

	for i, arg := range src.TypeArguments {
		if resolved := r.ResolveLink(arg, hint.Argument(i)); resolved != nil {
			link.TypeArguments = append(link.TypeArguments, resolved)
		}
	}
	return link
}

func functionDisplayName(sig *decl.FunctionSignature, nullable bool) string {
	var b strings.Builder
	b.WriteString(sig.ReturnType.Display())
	if len(sig.TypeParameters) > 0 {
		b.WriteByte('<')
		for i, tp := range sig.TypeParameters {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tp.Display())
		}
		b.WriteByte('>')
	}
	b.WriteString("Function(")
	for i, p := range sig.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Display())
	}
	b.WriteByte(')')
	if nullable {
		b.WriteByte('?')
	}
	return b.String()
}

// resolveRecordLink resolves a record-shaped type field by field, preserving
// declared order for positional fields.
func (r *LinkResolver) resolveRecordLink(src *mirror.TypeMirror, hint *mirror.TypeHint) *decl.LinkDeclaration {
	key := r.identityKey(src, hint, r.contentHash(src))
	if _, busy := r.inflight[key]; busy {
		r.log.Debug(fmt.Sprintf("cycle detected resolving record type %s, omitting link", src.Name))
		return nil
	}
	r.inflight[key] = struct{}{}
	defer delete(r.inflight, key)

	shape := &decl.RecordShape{}
	for _, f := range src.PositionalFields {
		link := r.ResolveLink(f, nil)
		if link == nil {
			link = decl.DynamicLink()
		}
		shape.Positional = append(shape.Positional, link)
	}
	for _, f := range src.NamedFields {
		link := r.ResolveLink(f.Type, nil)
		if link == nil {
			link = decl.DynamicLink()
		}
		shape.Named = append(shape.Named, &decl.NamedFieldLink{Name: f.Name, Type: link})
	}

	nullable := hint != nil && hint.Nullable

	name := strings.TrimSuffix(src.Name, "?")
	display := recordDisplayName(shape, nullable)
	if name == "" {
		name = display
	}

	return &decl.LinkDeclaration{
		Name:          name,
		DisplayName:   display,
		QualifiedName: decl.Qualify(src.Library, name),
		Handle:        src.Handle,
		BaseHandle:    src.Base(),
		Public:        !decl.IsInternalName(name),
		Synthetic:     decl.IsSyntheticName(name),
		Nullable:      nullable,
		Record:        shape,
	}
}

func recordDisplayName(shape *decl.RecordShape, nullable bool) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range shape.Positional {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Display())
	}
	if len(shape.Named) > 0 {
		if len(shape.Positional) > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('{')
		for i, f := range shape.Named {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(f.Type.Display())
		}
		b.WriteByte('}')
	}
	b.WriteByte(')')
	if nullable {
		b.WriteByte('?')
	}
	return b.String()
}

// ResolveTypeParameters resolves each declared type variable to a link.
// Type parameters never carry arguments of their own; a variable whose name
// the host erased to a synthetic placeholder displays as the generic root
// object. Every variable is guarded with its own cycle key so F-bounded
// variables (`T extends Comparable<T>`) do not recurse forever.
func (r *LinkResolver) ResolveTypeParameters(vars []*mirror.TypeVariableMirror, library string) []*decl.LinkDeclaration {
	var out []*decl.LinkDeclaration
	for i, v := range vars {
		if v == nil {
			continue
		}
		if vl := r.resolveTypeVariable(v, library, i); vl != nil {
			out = append(out, vl)
		}
	}
	return out
}

func (r *LinkResolver) resolveTypeVariable(v *mirror.TypeVariableMirror, library string, index int) *decl.LinkDeclaration {
	key := r.typeVarKey(v.Name, library, index)
	if _, busy := r.inflight[key]; busy {
		return nil
	}
	r.inflight[key] = struct{}{}
	defer delete(r.inflight, key)

	name := v.Name
	if name == "" || strings.HasPrefix(name, "__") {
		name = decl.ObjectName
	}

	// resolve the bound so nested types materialize; a cyclic bound
	// simply short-circuits
	if v.Bound != nil {
		r.ResolveLink(v.Bound, nil)
	}

	return &decl.LinkDeclaration{
		Name:          name,
		DisplayName:   name,
		QualifiedName: decl.Qualify(library, name),
		Handle:        decl.VariableHandle(name),
		BaseHandle:    decl.VariableHandle(name),
		Public:        true,
	}
}

func (r *LinkResolver) typeVarKey(name, library string, index int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "typevar_%s_%s_%d", name, library, index)
	return h.Sum64()
}
