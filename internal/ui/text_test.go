package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

// withColor forces colored output for the duration of a test.
func withColor(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "")
	// t.Setenv cannot unset; an empty NO_COLOR still counts as set.
	if err := os.Unsetenv("NO_COLOR"); err != nil {
		t.Fatalf("unsetting NO_COLOR: %v", err)
	}
	saved := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = saved })
}

func TestPlainOutputIsCopyable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	token := "q1w2e3r4t5y6u7i8o9p0AbCdEfGhIjKlMnOpQrStUvW="
	if got := Token.Sprint(token); got != token {
		t.Errorf("Token.Sprint() = %q, want the token unchanged", got)
	}

	cmd := "kestrel vault project export botc"
	if got := Command.Sprint(cmd); got != "`"+cmd+"`" {
		t.Errorf("Command.Sprint() = %q, want backticks", got)
	}
	if got := Path.Sprint("/tmp/vault.db"); got != "/tmp/vault.db" {
		t.Errorf("Path.Sprint() = %q", got)
	}
}

func TestPlainNamesAreQuoted(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"project", Project.Sprint("botc"), "'botc'"},
		{"detail", Detail.Sprint("email"), "'email'"},
		{"detail ref", DetailRef("botc", "email"), "'botc'/'email'"},
		{"empty listing", None.Sprint("no projects"), "(no projects)"},
		{"operation", Operation.Sprint("rotate"), "rotate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMarksWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	marks := map[string]Mark{"✓": Check, "✗": Cross, "⚠": Caution, "→": Arrow}
	for glyph, m := range marks {
		if got := m.String(); got != glyph {
			t.Errorf("mark String() = %q, want %q", got, glyph)
		}
	}
	if got := Caution.Sprint("2 warning(s)"); got != "2 warning(s)" {
		t.Errorf("Caution.Sprint() = %q", got)
	}
}

func TestColoredOutputDropsDecorations(t *testing.T) {
	withColor(t)

	got := Project.Sprint("botc")
	if strings.Contains(got, "'") {
		t.Errorf("Project.Sprint() = %q, quotes should only appear without color", got)
	}
	if !strings.Contains(got, "\x1b[") || !strings.Contains(got, "botc") {
		t.Errorf("Project.Sprint() = %q, want an ANSI-colored name", got)
	}

	if got := Check.String(); !strings.Contains(got, "\x1b[") || !strings.Contains(got, "✓") {
		t.Errorf("Check.String() = %q, want a colored glyph", got)
	}
}

func TestNoColorFollowsLibraryDetection(t *testing.T) {
	withColor(t)
	if noColor() {
		t.Fatal("noColor() = true with color forced on")
	}

	color.NoColor = true
	if !noColor() {
		t.Error("noColor() = false while fatih/color reports no color support")
	}
}

func TestEnsureNewline(t *testing.T) {
	tests := map[string]string{
		"":       "\n",
		"done":   "done\n",
		"done\n": "done\n",
		"a\nb":   "a\nb\n",
	}
	for in, want := range tests {
		if got := EnsureNewline(in); got != want {
			t.Errorf("EnsureNewline(%q) = %q, want %q", in, got, want)
		}
	}
}
