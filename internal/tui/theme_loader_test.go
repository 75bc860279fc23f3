package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestLoadThemeEmptyPath(t *testing.T) {
	before := CurrentTheme
	if err := LoadTheme(""); err != nil {
		t.Fatalf("LoadTheme(\"\") failed: %v", err)
	}
	if CurrentTheme != before {
		t.Error("LoadTheme(\"\") should not touch the current theme")
	}
}

func TestLoadThemeOverridesSubset(t *testing.T) {
	t.Cleanup(func() { CurrentTheme = NewDefaultTheme() })

	path := filepath.Join(t.TempDir(), "theme.toml")
	data := "Primary = \"#ff0000\"\nSignalLow = \"#111111\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadTheme(path); err != nil {
		t.Fatalf("LoadTheme() failed: %v", err)
	}
	if CurrentTheme.Primary != lipgloss.Color("#ff0000") {
		t.Errorf("Primary = %v, want #ff0000", CurrentTheme.Primary)
	}
	if CurrentTheme.SignalLow != "#111111" {
		t.Errorf("SignalLow = %q, want #111111", CurrentTheme.SignalLow)
	}
	// Untouched fields keep their defaults.
	def := NewDefaultTheme()
	if CurrentTheme.Success != def.Success {
		t.Errorf("Success changed unexpectedly: %v", CurrentTheme.Success)
	}
}

func TestLoadThemeMissingFile(t *testing.T) {
	if err := LoadTheme(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadTheme() on a missing file should fail")
	}
}

func TestLoadThemeBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.toml")
	if err := os.WriteFile(path, []byte("Primary = [not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadTheme(path); err == nil {
		t.Error("LoadTheme() on malformed toml should fail")
	}
}
