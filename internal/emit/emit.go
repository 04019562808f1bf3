// Package emit turns a finished build plan into an artifact. Emitters are
// deliberately dumb: every decision was already made during planning, and an
// emitter only executes (or serializes) the plan it is handed.
package emit

import "strings"

// Emitter consumes one library target and produces the artifact, either by
// compiling directly or by generating a build file for an external tool.
type Emitter interface {
	SetCompiler(cc string)
	AddLibrary(lib Library)
	Generate() string
	BuildFile() string
	Invoke(buildDir string) error
}

// Library is the emitter's view of a build plan: resolved paths and fully
// rendered flag sets, nothing left to decide.
type Library struct {
	Name    string // artifact file name, e.g. libtreekit.a
	Basedir string
	Sources []string
	Headers []string // installed next to the artifact under include/
	Cflags  []string
	Ldflags []string
	Dynamic bool
}

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
	sb.WriteByte('\n')
}
