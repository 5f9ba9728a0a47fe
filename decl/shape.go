package decl

// EntityShape is the tagged union of class-like entity shapes. Declaration
// generation matches on it exactly once, at the top of the pipeline.
type EntityShape uint8

const (
	ShapeClass EntityShape = iota
	ShapeEnum
	ShapeMixin
	ShapeFunction
	ShapeRecord
)

func (s EntityShape) String() string {
	switch s {
	case ShapeClass:
		return "class"
	case ShapeEnum:
		return "enum"
	case ShapeMixin:
		return "mixin"
	case ShapeFunction:
		return "function"
	case ShapeRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Modifiers is the bitmask of modifier flags a declaration can carry
type Modifiers uint16

const (
	ModifierAbstract Modifiers = 1 << iota
	ModifierBase
	ModifierSealed
	ModifierInterface
	ModifierFinal
	ModifierMixin
	ModifierRecord
)

func (m Modifiers) Has(flag Modifiers) bool {
	return m&flag == flag
}

// ModifierFromKeyword maps a modifier keyword to its flag. Unknown keywords
// map to zero.
func ModifierFromKeyword(keyword string) Modifiers {
	switch keyword {
	case "abstract":
		return ModifierAbstract
	case "base":
		return ModifierBase
	case "sealed":
		return ModifierSealed
	case "interface":
		return ModifierInterface
	case "final":
		return ModifierFinal
	case "mixin":
		return ModifierMixin
	case "record":
		return ModifierRecord
	default:
		return 0
	}
}

func (m Modifiers) Keywords() []string {
	var out []string
	if m.Has(ModifierAbstract) {
		out = append(out, "abstract")
	}
	if m.Has(ModifierBase) {
		out = append(out, "base")
	}
	if m.Has(ModifierSealed) {
		out = append(out, "sealed")
	}
	if m.Has(ModifierInterface) {
		out = append(out, "interface")
	}
	if m.Has(ModifierFinal) {
		out = append(out, "final")
	}
	if m.Has(ModifierMixin) {
		out = append(out, "mixin")
	}
	if m.Has(ModifierRecord) {
		out = append(out, "record")
	}
	return out
}
