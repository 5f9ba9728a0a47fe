package loader

import "testing"

func TestParseGlob(t *testing.T) {
	tests := []struct {
		pattern   string
		exclude   bool
		recursive bool
		load      string
	}{
		{"./...", false, false, "./..."},
		{"./internal/**", false, true, "./internal/..."},
		{"!./internal/generated", true, false, "./internal/generated"},
		{"**/models", false, true, "models/..."},
		{"github.com/acme/app", false, false, "github.com/acme/app"},
	}
	for _, tt := range tests {
		g := ParseGlob(tt.pattern)
		if g.Exclude != tt.exclude {
			t.Errorf("%q: Exclude = %v, want %v", tt.pattern, g.Exclude, tt.exclude)
		}
		if g.Recursive != tt.recursive {
			t.Errorf("%q: Recursive = %v, want %v", tt.pattern, g.Recursive, tt.recursive)
		}
		if got := g.LoadPattern(); got != tt.load {
			t.Errorf("%q: LoadPattern = %q, want %q", tt.pattern, got, tt.load)
		}
	}
}

func TestPackageGlob_Matches(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"github.com/acme/app", "github.com/acme/app", true},
		{"github.com/acme/app", "github.com/acme/other", false},
		{"./internal/**", "github.com/acme/app/internal/models", true},
		{"./internal/**", "github.com/acme/app/pkg/models", false},
		{"./generated", "github.com/acme/app/generated", true},
		{"*/models", "acme/models", true},
	}
	for _, tt := range tests {
		g := ParseGlob(tt.pattern)
		if got := g.Matches(tt.path); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
