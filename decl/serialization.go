package decl

// Serialization mirrors the declaration model into plain maps so downstream
// tooling can dump it as JSON without reaching into engine internals.

func serializeLink(l *LinkDeclaration) any {
	if l == nil {
		return nil
	}
	out := map[string]any{
		"name":          l.Name,
		"displayName":   l.Display(),
		"qualifiedName": l.QualifiedName,
		"handle":        l.Handle.ID,
	}
	if l.BaseHandle != l.Handle && !l.BaseHandle.IsZero() {
		out["baseHandle"] = l.BaseHandle.ID
	}
	if len(l.TypeArguments) > 0 {
		args := make([]any, 0, len(l.TypeArguments))
		for _, arg := range l.TypeArguments {
			args = append(args, serializeLink(arg))
		}
		out["typeArguments"] = args
	}
	if !l.Public {
		out["internal"] = true
	}
	if l.Synthetic {
		out["synthetic"] = true
	}
	if l.Nullable {
		out["nullable"] = true
	}
	if l.Function != nil {
		fn := map[string]any{
			"returnType": serializeLink(l.Function.ReturnType),
		}
		if len(l.Function.Parameters) > 0 {
			params := make([]any, 0, len(l.Function.Parameters))
			for _, p := range l.Function.Parameters {
				params = append(params, serializeLink(p))
			}
			fn["parameters"] = params
		}
		out["function"] = fn
	}
	if l.Record != nil {
		rec := map[string]any{}
		if len(l.Record.Positional) > 0 {
			pos := make([]any, 0, len(l.Record.Positional))
			for _, p := range l.Record.Positional {
				pos = append(pos, serializeLink(p))
			}
			rec["positional"] = pos
		}
		if len(l.Record.Named) > 0 {
			named := map[string]any{}
			for _, f := range l.Record.Named {
				named[f.Name] = serializeLink(f.Type)
			}
			rec["named"] = named
		}
		out["record"] = rec
	}
	return out
}

// Serialize returns a serializable representation of the link
func (l *LinkDeclaration) Serialize() any {
	return serializeLink(l)
}

func serializeAnnotations(annotations []*AnnotationDeclaration) []any {
	if len(annotations) == 0 {
		return nil
	}
	out := make([]any, 0, len(annotations))
	for _, a := range annotations {
		entry := map[string]any{"name": a.Name}
		if a.QualifiedName != "" {
			entry["qualifiedName"] = a.QualifiedName
		}
		if len(a.Arguments) > 0 {
			entry["arguments"] = a.Arguments
		}
		out = append(out, entry)
	}
	return out
}

func serializeParameters(params []*ParameterDeclaration) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, 0, len(params))
	for _, p := range params {
		out = append(out, map[string]any{
			"name":     p.Name,
			"type":     serializeLink(p.Type),
			"position": p.Position,
			"named":    p.Named,
			"required": p.Required,
		})
	}
	return out
}

// Serialize returns a serializable representation of the declaration
func (d *ClassDeclaration) Serialize() any {
	out := map[string]any{
		"name":          d.Name,
		"qualifiedName": d.QualifiedName,
		"handle":        d.Handle.ID,
		"library":       d.LibraryLocator,
		"shape":         d.Shape.String(),
	}
	if d.BuiltIn {
		out["builtIn"] = true
	}
	if keywords := d.Modifiers.Keywords(); len(keywords) > 0 {
		out["modifiers"] = keywords
	}
	if d.Unresolved {
		out["unresolved"] = true
	}
	if d.Super != nil {
		out["super"] = serializeLink(d.Super)
	}
	for key, links := range map[string][]*LinkDeclaration{
		"interfaces":     d.Interfaces,
		"mixins":         d.Mixins,
		"typeParameters": d.TypeParameters,
		"typeArguments":  d.TypeArguments,
	} {
		if len(links) == 0 {
			continue
		}
		vals := make([]any, 0, len(links))
		for _, l := range links {
			vals = append(vals, serializeLink(l))
		}
		out[key] = vals
	}
	if a := serializeAnnotations(d.Annotations); a != nil {
		out["annotations"] = a
	}
	if len(d.Constructors) > 0 {
		ctors := make([]any, 0, len(d.Constructors))
		for _, c := range d.Constructors {
			ctors = append(ctors, map[string]any{
				"name":        c.Name,
				"parameters":  serializeParameters(c.Parameters),
				"factory":     c.Factory,
				"annotations": serializeAnnotations(c.Annotations),
			})
		}
		out["constructors"] = ctors
	}
	if len(d.Fields) > 0 {
		fields := make([]any, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, f.Serialize())
		}
		out["fields"] = fields
	}
	if len(d.Values) > 0 {
		values := make([]any, 0, len(d.Values))
		for _, v := range d.Values {
			values = append(values, v.Serialize())
		}
		out["values"] = values
	}
	if len(d.Methods) > 0 {
		methods := make([]any, 0, len(d.Methods))
		for _, m := range d.Methods {
			methods = append(methods, m.Serialize())
		}
		out["methods"] = methods
	}
	if d.FunctionLink != nil {
		out["functionType"] = serializeLink(d.FunctionLink)
	}
	return out
}

// Serialize returns a serializable representation of the field
func (f *FieldDeclaration) Serialize() any {
	out := map[string]any{
		"name": f.Name,
		"type": serializeLink(f.Type),
	}
	if f.Static {
		out["static"] = true
	}
	if f.Final {
		out["final"] = true
	}
	if f.Value != nil {
		out["value"] = f.Value
	}
	if a := serializeAnnotations(f.Annotations); a != nil {
		out["annotations"] = a
	}
	return out
}

// Serialize returns a serializable representation of the method
func (m *MethodDeclaration) Serialize() any {
	out := map[string]any{
		"name":       m.Name,
		"returnType": serializeLink(m.ReturnType),
	}
	if p := serializeParameters(m.Parameters); p != nil {
		out["parameters"] = p
	}
	if m.Static {
		out["static"] = true
	}
	if m.Abstract {
		out["abstract"] = true
	}
	if a := serializeAnnotations(m.Annotations); a != nil {
		out["annotations"] = a
	}
	return out
}
