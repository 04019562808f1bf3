package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treekit-build/treekit/internal/target"
)

func parseTestConfig(t *testing.T, toml string, triple target.Triple) *Config {
	t.Helper()
	cfg, err := ParseConfig(strings.NewReader(toml), NewConfigEnv(t.TempDir(), triple))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestParseConfigDefaults(t *testing.T) {
	cfg := parseTestConfig(t, `[package]
name = "treekit"
`, linuxGnu)

	if cfg.Package.Name != "treekit" {
		t.Errorf("name = %q", cfg.Package.Name)
	}
	if cfg.Build.SourceDir != "src" {
		t.Errorf("source-dir default = %q, want src", cfg.Build.SourceDir)
	}

	profiles := cfg.Profiles()
	if len(profiles) != 2 || profiles[0] != "debug" || profiles[1] != "release" {
		t.Errorf("default profiles = %v", profiles)
	}
	releaseOpt := cfg.Profile["release"].OptLevel
	if releaseOpt.String() != "3" {
		t.Errorf("release opt-level = %q, want 3", releaseOpt.String())
	}
	debugOpt := cfg.Profile["debug"].OptLevel
	if debugOpt.String() != "" {
		t.Errorf("debug opt-level = %q, want empty", debugOpt.String())
	}
}

func TestParseConfigConditionalBuild(t *testing.T) {
	toml := `[build]
amalgamated = true

[build.'target_abi == "musl"']
wasm = true
`
	musl := target.Triple{Arch: target.ArchX8664, OS: target.OSLinux, ABI: target.ABIMusl}

	cfg := parseTestConfig(t, toml, musl)
	if !cfg.Build.Wasm {
		t.Error("musl-conditional [build] section not merged")
	}
	if !cfg.Build.Amalgamated {
		t.Error("base [build] section lost during conditional merge")
	}

	cfg = parseTestConfig(t, toml, linuxGnu)
	if cfg.Build.Wasm {
		t.Error("musl-conditional section merged for a gnu triple")
	}
}

func TestParseConfigStringInterpolation(t *testing.T) {
	cfg := parseTestConfig(t, `[package]
name = "treekit"
description = "built for {{ target_arch }}-{{ target_os }}"
`, linuxGnu)

	want := "built for x86_64-linux"
	if cfg.Package.Description != want {
		t.Errorf("description = %q, want %q", cfg.Package.Description, want)
	}
}

func TestParseConfigProfileOverride(t *testing.T) {
	cfg := parseTestConfig(t, `[profile.release]
opt-level = "fast"

[profile.tiny]
opt-level = "s"
`, linuxGnu)

	releaseOpt := cfg.Profile["release"].OptLevel
	if got := releaseOpt.String(); got != "fast" {
		t.Errorf("release opt-level = %q, want fast", got)
	}
	tinyOpt := cfg.Profile["tiny"].OptLevel
	if got := tinyOpt.String(); got != "s" {
		t.Errorf("tiny opt-level = %q, want s", got)
	}
	// a second parse must not see the previous override
	cfg = parseTestConfig(t, "", linuxGnu)
	releaseOpt = cfg.Profile["release"].OptLevel
	if got := releaseOpt.String(); got != "3" {
		t.Errorf("default release opt-level leaked to %q", got)
	}
}

func TestParseConfigBadTOML(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[package\nname="), NewConfigEnv(t.TempDir(), linuxGnu))
	if err == nil {
		t.Error("expected a parse error")
	}
}

func TestParseConfigBadExpression(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(`[package]
description = "{{ no_such_var }}"
`), NewConfigEnv(t.TempDir(), linuxGnu))
	if err == nil {
		t.Error("expected an error for an unknown expression variable")
	}
}

func TestConfigEnvReadFileContainment(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "pkg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("inside\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("outside\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := NewConfigEnv(dir, linuxGnu)

	got, err := env.ReadFile("notes.txt")
	if err != nil || got != "inside\n" {
		t.Fatalf("ReadFile(notes.txt) = %q, %v", got, err)
	}

	defer func() {
		if recover() == nil {
			t.Error("ReadFile followed .. out of the package directory")
		}
	}()
	env.ReadFile("../secret.txt")
}

func TestConfigEnvTriple(t *testing.T) {
	env := NewConfigEnv(t.TempDir(), target.Triple{Arch: target.ArchAarch64, OS: target.OSMacos})
	if env.TargetOS != "macos" || env.TargetArch != "aarch64" || env.TargetABI != "" {
		t.Errorf("env = %+v", env)
	}
}
