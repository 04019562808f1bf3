package emit

import (
	"strings"
	"testing"
)

func testLibrary(dynamic bool) Library {
	return Library{
		Name:    "libtreekit.a",
		Basedir: "/work/treekit",
		Sources: []string{"/work/treekit/src/lexer.c", "/work/treekit/src/parser.c"},
		Cflags:  []string{"-D_POSIX_C_SOURCE=200112L", "-Iinclude"},
		Ldflags: []string{"-L/opt/lib", "-lwasmtime"},
		Dynamic: dynamic,
	}
}

func TestNinjaGenerateStatic(t *testing.T) {
	g := &NinjaGen{}
	g.SetCompiler("cc")
	g.AddLibrary(testLibrary(false))

	out := g.Generate()

	for _, want := range []string{
		"ninja_required_version",
		"rule cc",
		"rule ar",
		"cflags = -D_POSIX_C_SOURCE=200112L -Iinclude",
		"build libtreekit.a: ar",
		"src/lexer.c.obj",
		"src/parser.c.obj",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated ninja file is missing %q:\n%s", want, out)
		}
	}
}

func TestNinjaGenerateDynamic(t *testing.T) {
	lib := testLibrary(true)
	lib.Name = "libtreekit.so"

	g := &NinjaGen{}
	g.SetCompiler("cc")
	g.AddLibrary(lib)

	out := g.Generate()
	if !strings.Contains(out, "build libtreekit.so: shlib") {
		t.Errorf("dynamic library does not use the shlib rule:\n%s", out)
	}
	if !strings.Contains(out, "ldflags = -L/opt/lib -lwasmtime") {
		t.Errorf("ldflags not emitted:\n%s", out)
	}
}

func TestNinjaGenerateDeterministic(t *testing.T) {
	g := &NinjaGen{}
	g.SetCompiler("cc")
	g.AddLibrary(testLibrary(false))

	first := g.Generate()
	for range 5 {
		if again := g.Generate(); again != first {
			t.Fatal("ninja output differs between calls for the same plan")
		}
	}
}

func TestNinjaQuote(t *testing.T) {
	if got := quote("a b:c"); got != "a$ b$:c" {
		t.Errorf("quote = %q", got)
	}
}
