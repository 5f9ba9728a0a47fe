package registry

import (
	"testing"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

func TestSourceLibrary_Init(t *testing.T) {
	unit := &mirror.CompilationUnit{
		Locator: "app/models",
		Entities: []*mirror.EntityMirror{
			testEntity("app/models", "User"),
			nil,
			{Name: ""}, // unnamed entities are skipped, not fatal
			testEntity("app/models", "Order"),
		},
	}
	lib := NewSourceLibrary(unit, logger.NewNopLogger())
	lib.Init()

	if got := len(lib.Refs()); got != 2 {
		t.Fatalf("Init built %d refs, want 2", got)
	}

	// Init is one-shot
	lib.Init()
	if got := len(lib.Refs()); got != 2 {
		t.Errorf("second Init grew the ref list to %d", got)
	}
}

func TestSourceLibrary_Find(t *testing.T) {
	user := testEntity("app/models", "User")
	lib := NewSourceLibrary(&mirror.CompilationUnit{
		Locator:  "app/models",
		Entities: []*mirror.EntityMirror{user},
	}, logger.NewNopLogger())
	lib.Init()

	if ref := lib.FindClass("app/models.User"); ref == nil || ref.Name != "User" {
		t.Errorf("FindClass = %v, want User", ref)
	}
	if ref := lib.FindClassByName("User"); ref == nil {
		t.Error("FindClassByName missed User")
	}
	if ref := lib.FindClassByHandle(user.Handle); ref == nil {
		t.Error("FindClassByHandle missed User")
	}
	if lib.FindClass("app/models.Ghost") != nil {
		t.Error("FindClass found a type that does not exist")
	}
	// variable handles are never cache keys and never match
	if lib.FindClassByHandle(decl.VariableHandle("T")) != nil {
		t.Error("variable handle must not match any ref")
	}
}

func TestSourceLibrary_RankWriteOnce(t *testing.T) {
	lib := NewSourceLibrary(&mirror.CompilationUnit{Locator: "app"}, logger.NewNopLogger())

	lib.SetRank(RankPrimary)
	lib.SetRank(RankDependency)
	if got := lib.Rank(); got != RankPrimary {
		t.Errorf("Rank = %d, want the first assignment %d", got, RankPrimary)
	}
}

func TestSourceLibrary_BuiltInRank(t *testing.T) {
	lib := NewSourceLibrary(&mirror.CompilationUnit{Locator: "core", BuiltIn: true}, logger.NewNopLogger())
	lib.SetRank(RankRoot)
	if got := lib.Rank(); got != RankBuiltIn {
		t.Errorf("built-in library ranked %d, want the maximal rank", got)
	}
}
