package builder

import (
	"os"
	"os/exec"
)

// TODO: zig cc
var commonCCompilers = []string{"clang", "gcc", "icx", "icc", "tcc", "cl"}

// findCompiler attempts to find a suitable C compiler on the system: the CC
// environment variable first, then common compilers on PATH, then (on
// Windows) a Visual Studio installation.
func findCompiler() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}

	for _, compiler := range commonCCompilers {
		path, err := exec.LookPath(compiler)
		if err == nil {
			return path
		}
	}

	return findMSVC()
}
