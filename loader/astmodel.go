package loader

import (
	"go/ast"
	"go/types"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/typemat/typemat/mirror"
)

// directivePattern matches doc-comment directives of the form
// @name or @name(arg, key: value)
var directivePattern = regexp.MustCompile(`@([A-Za-z_][\w.]*)(?:\(([^)]*)\))?`)

// ParseDirectives extracts annotation mirrors from a doc comment. Directives
// are one per match; arguments split on top-level commas, with `key: value`
// pairs keyed and bare values stored positionally (first under the empty key).
func ParseDirectives(doc string) []*mirror.AnnotationMirror {
	if doc == "" {
		return nil
	}
	var out []*mirror.AnnotationMirror
	for _, match := range directivePattern.FindAllStringSubmatch(doc, -1) {
		ann := &mirror.AnnotationMirror{Name: match[1]}
		if match[2] != "" {
			ann.Arguments = parseDirectiveArgs(match[2])
		}
		out = append(out, ann)
	}
	return out
}

func parseDirectiveArgs(raw string) map[string]string {
	args := make(map[string]string)
	positional := 0
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, ":")
		if found {
			args[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
			continue
		}
		if positional == 0 {
			args[""] = unquote(part)
		} else {
			args[strconv.Itoa(positional)] = unquote(part)
		}
		positional++
	}
	return args
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// collectHints walks the package ASTs and fills the static model: modifier
// keywords and supertype clauses come from doc-comment directives since Go
// has no spelling for them, display types come from the written AST
// expressions, which preserve spellings the checked types erase.
func (l *Loader) collectHints(pkg *packages.Package) {
	l.collectHintsFiles(pkg.Syntax, pkg.PkgPath)
}

func (l *Loader) collectHintsFiles(files []*ast.File, pkgPath string) {
	for _, file := range files {
		for _, d := range file.Decls {
			node, ok := d.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range node.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := typeSpec.Doc
				if doc == nil {
					doc = node.Doc
				}
				hint := l.buildClassHint(typeSpec, doc, pkgPath)
				l.hints[mirror.HintKey(typeSpec.Name.Name, pkgPath)] = hint
			}
		}
	}

	// methods second, so their hints land on class hints already built
	// regardless of declaration order across files
	for _, file := range files {
		for _, d := range file.Decls {
			node, ok := d.(*ast.FuncDecl)
			if !ok || node.Recv == nil {
				continue
			}
			recv := receiverTypeName(node.Recv)
			if recv == "" {
				continue
			}
			l.collectMethodHint(node, recv, pkgPath)
		}
	}
}

// collectMethodHint records the written result spelling for one method. Doc
// directives live on the func decl, not the type spec. A multi-result method
// is marked record-shaped so the tuple survives into link resolution.
func (l *Loader) collectMethodHint(node *ast.FuncDecl, recv, pkgPath string) {
	key := mirror.HintKey(recv, pkgPath)
	hint := l.hints[key]
	if hint == nil {
		hint = &mirror.ClassHint{Members: make(map[string]*mirror.MemberHint)}
		l.hints[key] = hint
	}
	if results := node.Type.Results; results != nil && results.NumFields() > 0 {
		mh := &mirror.MemberHint{DisplayType: resultSpelling(results)}
		if results.NumFields() > 1 {
			mh.Record = true
		} else if _, isPtr := results.List[0].Type.(*ast.StarExpr); isPtr {
			mh.Nullable = true
		}
		hint.Members[node.Name.Name] = mh
	}
	if node.Doc != nil {
		if anns := ParseDirectives(node.Doc.Text()); len(anns) > 0 {
			annKey := key + "." + node.Name.Name
			l.annotations[annKey] = append(l.annotations[annKey], anns...)
		}
	}
}

// resultSpelling rebuilds the result tuple as written, e.g. (string, error)
func resultSpelling(results *ast.FieldList) string {
	var parts []string
	for _, field := range results.List {
		spelled := types.ExprString(field.Type)
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			parts = append(parts, spelled)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func receiverTypeName(recv *ast.FieldList) string {
	if len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

func (l *Loader) buildClassHint(spec *ast.TypeSpec, doc *ast.CommentGroup, pkgPath string) *mirror.ClassHint {
	hint := &mirror.ClassHint{
		DisplayName: displayName(spec),
		Members:     make(map[string]*mirror.MemberHint),
	}

	text := ""
	if doc != nil {
		text = doc.Text()
	}
	key := mirror.HintKey(spec.Name.Name, pkgPath)
	for _, ann := range ParseDirectives(text) {
		switch ann.Name {
		case "sealed", "abstract", "base", "final", "interface", "mixin", "record":
			hint.Keywords = append(hint.Keywords, ann.Name)
		case "extends":
			hint.SuperClause = clauseHint(ann, pkgPath)
		case "implements":
			hint.InterfaceClauses = append(hint.InterfaceClauses, clauseHints(ann, pkgPath)...)
		case "mixes":
			hint.MixinClauses = append(hint.MixinClauses, clauseHints(ann, pkgPath)...)
		default:
			l.annotations[key] = append(l.annotations[key], ann)
		}
	}
	if hint.HasKeyword("record") {
		hint.RecordShaped = true
	}

	if structType, ok := spec.Type.(*ast.StructType); ok && structType.Fields != nil {
		for _, field := range structType.Fields.List {
			memberHint := &mirror.MemberHint{
				DisplayType: types.ExprString(field.Type),
			}
			if _, isPtr := field.Type.(*ast.StarExpr); isPtr {
				memberHint.Nullable = true
			}
			var memberAnns []*mirror.AnnotationMirror
			if field.Doc != nil {
				memberAnns = ParseDirectives(field.Doc.Text())
			}
			for _, name := range field.Names {
				hint.Members[name.Name] = memberHint
				if len(memberAnns) > 0 {
					l.annotations[key+"."+name.Name] = memberAnns
				}
			}
		}
	}
	if ifaceType, ok := spec.Type.(*ast.InterfaceType); ok && ifaceType.Methods != nil {
		for _, method := range ifaceType.Methods.List {
			var memberAnns []*mirror.AnnotationMirror
			if method.Doc != nil {
				memberAnns = ParseDirectives(method.Doc.Text())
			}
			ft, _ := method.Type.(*ast.FuncType)
			for _, name := range method.Names {
				// member mirrors carry the result type, so the hint does too
				if ft != nil && ft.Results != nil && ft.Results.NumFields() > 0 {
					hint.Members[name.Name] = &mirror.MemberHint{
						DisplayType: resultSpelling(ft.Results),
						Record:      ft.Results.NumFields() > 1,
					}
				}
				if len(memberAnns) > 0 {
					l.annotations[key+"."+name.Name] = memberAnns
				}
			}
		}
	}

	return hint
}

// displayName rebuilds the generic spelling, e.g. Box<T> for `type Box[T any]`
func displayName(spec *ast.TypeSpec) string {
	if spec.TypeParams == nil || len(spec.TypeParams.List) == 0 {
		return spec.Name.Name
	}
	var params []string
	for _, field := range spec.TypeParams.List {
		for _, name := range field.Names {
			params = append(params, name.Name)
		}
	}
	return spec.Name.Name + "<" + strings.Join(params, ", ") + ">"
}

// clauseHint builds the supertype clause hint from a directive's first
// argument, e.g. @extends(Comparable<Node<T>>)
func clauseHint(ann *mirror.AnnotationMirror, pkgPath string) *mirror.TypeHint {
	value := ann.Arguments[""]
	if value == "" {
		return nil
	}
	return typeHintFromDisplay(value, pkgPath)
}

func clauseHints(ann *mirror.AnnotationMirror, pkgPath string) []*mirror.TypeHint {
	var out []*mirror.TypeHint
	keys := make([]string, 0, len(ann.Arguments))
	for k := range ann.Arguments {
		keys = append(keys, k)
	}
	// positional keys sort as "", "1", "2", ... preserving written order
	for _, k := range sortedKeys(keys) {
		if h := typeHintFromDisplay(ann.Arguments[k], pkgPath); h != nil {
			out = append(out, h)
		}
	}
	return out
}

func sortedKeys(keys []string) []string {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && clauseLess(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func clauseLess(a, b string) bool {
	if a == "" {
		return true
	}
	if b == "" {
		return false
	}
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// typeHintFromDisplay parses a written type spelling into a hint tree,
// peeling the nullability suffix and recursing into the argument list.
func typeHintFromDisplay(display, pkgPath string) *mirror.TypeHint {
	display = strings.TrimSpace(display)
	if display == "" {
		return nil
	}
	hint := &mirror.TypeHint{
		DisplayName: display,
		Location:    pkgPath,
	}
	if strings.HasSuffix(display, "?") {
		hint.Nullable = true
	}
	if strings.HasPrefix(display, "(") {
		hint.Record = true
		return hint
	}
	for _, arg := range splitTypeArguments(display) {
		hint.Arguments = append(hint.Arguments, typeHintFromDisplay(arg, pkgPath))
	}
	return hint
}

// splitTypeArguments returns the top-level arguments of a generic spelling,
// or nothing when the spelling has no argument list.
func splitTypeArguments(display string) []string {
	display = strings.TrimSuffix(strings.TrimSpace(display), "?")
	start := strings.IndexAny(display, "<")
	if start < 0 || !strings.HasSuffix(display, ">") {
		return nil
	}
	inner := display[start+1 : len(display)-1]
	var out []string
	depth := 0
	last := 0
	for i, r := range inner {
		switch r {
		case '<', '[', '(':
			depth++
		case '>', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(inner[last:i]))
				last = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(inner[last:]))
	return out
}
