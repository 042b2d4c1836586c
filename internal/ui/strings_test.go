package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestClip(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"  smash.mp4 ", 20, "smash.mp4"},
		{"abcdefgh", 5, "abcd…"},
		{"abcdefgh", 1, "a"},
		{"abc", 0, "abc"},
		{"分析失败: server", 5, "分析…"},
		{"🏸🏸🏸", 4, "🏸…"},
	}
	for _, tt := range tests {
		got := clip(tt.in, tt.width)
		if got != tt.want {
			t.Fatalf("clip(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if tt.width > 0 && lipgloss.Width(got) > tt.width {
			t.Fatalf("clip(%q, %d) is %d cells wide", tt.in, tt.width, lipgloss.Width(got))
		}
	}
}

func TestLevelLabel(t *testing.T) {
	tests := map[string]string{
		"advanced":           "Advanced",
		" ELITE ":            "Elite",
		"upper_intermediate": "Upper Intermediate",
		"semi-pro":           "Semi Pro",
		"  ":                 "Beginner",
	}
	for in, want := range tests {
		if got := levelLabel(in); got != want {
			t.Fatalf("levelLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPadCells(t *testing.T) {
	if got := padCells("ab", 4); got != "ab  " {
		t.Fatalf("padCells = %q, want %q", got, "ab  ")
	}
	if got := padCells("分析", 6); got != "分析  " {
		t.Fatalf("padCells wide = %q, want two trailing spaces", got)
	}
	if got := padCells("abcdef", 4); got != "abcdef" {
		t.Fatalf("padCells longer = %q, want unchanged", got)
	}
}

func TestHeaderBar(t *testing.T) {
	bar := newHeaderBar("#112233")
	bar.add("SMASHTRACK", lipgloss.NewStyle())
	bar.add("   ", lipgloss.NewStyle())
	bar.add("signed out", lipgloss.NewStyle())

	if len(bar.segments) != 2 {
		t.Fatalf("segments = %d, want 2 (blank text skipped)", len(bar.segments))
	}
	if got := lipgloss.Width(bar.render(" | ", 40)); got != 40 {
		t.Fatalf("rendered width = %d, want 40", got)
	}
	want := lipgloss.Width("SMASHTRACK | signed out")
	if got := lipgloss.Width(bar.render(" | ", 0)); got != want {
		t.Fatalf("unpadded width = %d, want %d", got, want)
	}
}
