package loader

import (
	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/mirror"
)

// BuiltinUnit returns the synthetic compilation unit declaring the primitive
// and collection root types every hierarchy bottoms out in. The registry
// warms these at freeze time so primitive lookups never walk the libraries.
func BuiltinUnit() *mirror.CompilationUnit {
	object := builtinEntity(decl.ObjectName)

	unit := &mirror.CompilationUnit{
		Locator: decl.BuiltInLocator,
		BuiltIn: true,
		Entities: []*mirror.EntityMirror{
			object,
			builtinChild("String", object),
			builtinChild("bool", object),
			builtinChild("int", object),
			builtinChild("double", object),
			builtinChild("num", object),
			builtinGeneric("Iterable", object, "E"),
			builtinGeneric("List", object, "E"),
			builtinGeneric("Set", object, "E"),
			builtinGeneric("Map", object, "K", "V"),
			builtinGeneric("Stream", object, "E"),
		},
	}
	return unit
}

func builtinEntity(name string) *mirror.EntityMirror {
	return &mirror.EntityMirror{
		Name:     name,
		Handle:   decl.NewTypeHandle(decl.Qualify(decl.BuiltInLocator, name)),
		Location: decl.BuiltInLocator,
	}
}

func builtinChild(name string, super *mirror.EntityMirror) *mirror.EntityMirror {
	entity := builtinEntity(name)
	entity.Super = &mirror.TypeMirror{
		Name:   super.Name,
		Handle: super.Handle,
		Entity: super,
	}
	return entity
}

func builtinGeneric(name string, super *mirror.EntityMirror, vars ...string) *mirror.EntityMirror {
	entity := builtinChild(name, super)
	for _, v := range vars {
		entity.TypeVariables = append(entity.TypeVariables, &mirror.TypeVariableMirror{Name: v})
	}
	return entity
}
