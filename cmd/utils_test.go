package cmd

import (
	"slices"
	"testing"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("cc", map[string]string{"cc": "direct", "ninja": "buildfile"})

	if e.Value() != "cc" {
		t.Errorf("default = %q", e.Value())
	}
	if err := e.Set("ninja"); err != nil {
		t.Fatal(err)
	}
	if e.Value() != "ninja" {
		t.Errorf("value after Set = %q", e.Value())
	}
	if err := e.Set("make"); err == nil {
		t.Error("Set accepted a value outside the allowed set")
	}
	if got := e.AllowedKeys(); !slices.Equal(got, []string{"cc", "ninja"}) {
		t.Errorf("AllowedKeys = %v, want sorted [cc ninja]", got)
	}
}

func TestEnumValueBadDefault(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a default outside the allowed set")
		}
	}()
	NewEnumValue("missing", map[string]string{"cc": ""})
}
