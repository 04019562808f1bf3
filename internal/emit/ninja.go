package emit

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// NinjaGen writes a build.ninja describing the plan instead of building it.
// Output is deterministic for a given plan so generated files diff cleanly.
type NinjaGen struct {
	cc  string
	lib Library
}

func (g *NinjaGen) SetCompiler(cc string) { g.cc = cc }

func (g *NinjaGen) AddLibrary(lib Library) { g.lib = lib }

func (g *NinjaGen) BuildFile() string { return "build.ninja" }

var ninjaPathEscaper = strings.NewReplacer(":", "$:", " ", "$ ")

func quote(s string) string { return ninjaPathEscaper.Replace(s) }

func (g *NinjaGen) objPath(src string) string {
	rel, err := filepath.Rel(g.lib.Basedir, src)
	if err != nil {
		rel = filepath.Base(src)
	}
	return quote(filepath.ToSlash(filepath.Join("TreekitFiles", g.lib.Name+".dir", rel))) + ".obj"
}

func (g *NinjaGen) Generate() string {
	var sb strings.Builder

	writeln(&sb, "ninja_required_version = 1.1")
	writeln(&sb, "cflags = ", strings.Join(g.lib.Cflags, " "))
	writeln(&sb, "ldflags = ", strings.Join(g.lib.Ldflags, " "))
	writeln(&sb, "cc = ", g.cc)
	writeln(&sb)

	write(&sb,
		`rule cc
  command = $cc $cflags -c $in -o $out
  description = CC $out
`)
	write(&sb,
		`rule shlib
  command = $cc -shared -o $out $in $ldflags
  description = LINK $out
`)
	write(&sb,
		`rule ar
  command = ar rcs $out $in
  description = AR $out
`)
	writeln(&sb)

	objs := make([]string, len(g.lib.Sources))
	for i, src := range g.lib.Sources {
		objs[i] = g.objPath(src)
		writeln(&sb, "build ", objs[i], ": cc ", quote(src))
	}
	writeln(&sb)

	write(&sb, "build ", quote(g.lib.Name), ": ")
	if g.lib.Dynamic {
		write(&sb, "shlib")
	} else {
		write(&sb, "ar")
	}
	for _, obj := range objs {
		write(&sb, " ", obj)
	}
	writeln(&sb)

	return sb.String()
}

func (g *NinjaGen) Invoke(buildDir string) error {
	cmd := exec.Command("ninja", "-C", buildDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
