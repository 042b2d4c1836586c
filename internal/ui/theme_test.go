package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Court" {
		t.Fatalf("ThemeNames()[0] = %q, want Court", names[0])
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Court"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Court) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Court" {
		t.Fatalf("NextTheme(Slate) = %q, want Court", got)
	}
	if got := NextTheme("Unknown"); got != "Court" {
		t.Fatalf("NextTheme(Unknown) = %q, want Court", got)
	}
}

func TestGetTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		if th.Name != name {
			t.Fatalf("GetTheme(%s).Name = %q", name, th.Name)
		}
		for _, level := range []string{"beginner", "intermediate", "advanced", "elite", "pro"} {
			if th.LevelColors[level] == "" {
				t.Fatalf("theme %s has no color for level %s", name, level)
			}
		}
	}
	if got := GetTheme("Unknown").Name; got != "Court" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Court (fallback)", got)
	}
}

func TestLevelStyleFallsBackToMuted(t *testing.T) {
	th := GetTheme("Court")
	styles := th.Styles()
	if got := styles.LevelStyle(" Elite ").GetBackground(); got != styles.LevelStyle("elite").GetBackground() {
		t.Fatalf("LevelStyle should ignore case and spaces")
	}
	if got, want := styles.LevelStyle("-").GetBackground(), styles.LevelStyle("unknown").GetBackground(); got != want {
		t.Fatalf("LevelStyle(-) = %v, want muted fallback %v", got, want)
	}
}
