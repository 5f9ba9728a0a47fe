package registry

import "strings"

// GenericParseResult is the outcome of parsing a textual generic type
// expression into a base name and its ordered argument expressions.
type GenericParseResult struct {
	Base string
	Args []*GenericParseResult
	// TypeString is the normalized full expression
	TypeString string
}

// IsGeneric reports whether the expression carried a type-argument list
func (r *GenericParseResult) IsGeneric() bool {
	return len(r.Args) > 0
}

// ParseGenericType parses a generic type expression such as
// `Outer<Arg1, Arg2>` or `Outer[Arg1, Arg2]` into a base name plus an ordered
// list of argument expressions, each parsed recursively. A naive split on `,`
// fails on nested arguments like `Map<String, List<int>>`, so the split
// keeps `<>`, `[]`, `()` and `{}` balanced. Expressions without an argument
// list come back with an empty Args and the caller treats the name as
// non-generic. Pure function; callers own caching.
func ParseGenericType(expr string) *GenericParseResult {
	expr = strings.TrimSpace(expr)
	res := &GenericParseResult{Base: expr, TypeString: expr}
	if expr == "" {
		return res
	}

	start := argumentListStart(expr)
	if start < 0 {
		return res
	}

	inner := expr[start+1 : len(expr)-1]
	res.Base = strings.TrimSpace(expr[:start])
	if res.Base == "" {
		// no base name in front of the bracket, treat as non-generic
		res.Base = expr
		return res
	}

	for _, part := range splitBalanced(inner) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		res.Args = append(res.Args, ParseGenericType(part))
	}
	if len(res.Args) == 0 {
		res.Base = expr
	}
	return res
}

// argumentListStart finds the opening bracket of a trailing type-argument
// list and returns its index, or -1. The list must terminate at the end of
// the expression; `map[string]int` has no trailing list and is not considered
// generic.
func argumentListStart(expr string) int {
	var openCh, closeCh byte
	switch expr[len(expr)-1] {
	case '>':
		openCh, closeCh = '<', '>'
	case ']':
		openCh, closeCh = '[', ']'
	default:
		return -1
	}

	depth := 0
	for i := len(expr) - 1; i >= 0; i-- {
		switch expr[i] {
		case closeCh:
			depth++
		case openCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitBalanced splits a comma separated list while keeping every bracket
// pair balanced.
func splitBalanced(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '[', '(', '{':
			depth++
		case '>', ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
