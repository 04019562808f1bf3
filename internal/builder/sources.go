package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// AmalgamationFile is the single pre-merged source file standing in for
	// the whole source tree. It must never be compiled together with the
	// split sources: that would define every symbol twice and fail the link.
	AmalgamationFile = "treekit.c"

	sourceExt = ".c"
)

// SourceMode selects between the amalgamated source file and the split
// multi-file tree.
type SourceMode int

const (
	SourceAmalgamated SourceMode = iota
	SourceSplit
)

func (m SourceMode) String() string {
	if m == SourceAmalgamated {
		return "amalgamated"
	}
	return "split"
}

// ResolveSources returns the source files to compile from sourceDir.
//
// Amalgamated mode returns exactly one path and does not touch the
// filesystem. Split mode lists sourceDir (non-recursive), keeps regular .c
// files, drops the amalgamation file, and sorts the result so the same
// directory state always yields the same plan.
func ResolveSources(mode SourceMode, sourceDir string) ([]string, error) {
	if mode == SourceAmalgamated {
		return []string{filepath.Join(sourceDir, AmalgamationFile)}, nil
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list source directory %s: %w", sourceDir, err)
	}

	var sources []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != sourceExt || name == AmalgamationFile {
			continue
		}
		sources = append(sources, filepath.Join(sourceDir, name))
	}
	slices.Sort(sources)
	return sources, nil
}

// collectGlobs resolves doublestar patterns relative to basedir into a
// deduplicated, sorted list of absolute file paths. Used for the extra
// sources and header globs from Treekit.toml.
func collectGlobs(basedir string, patterns []string) ([]string, error) {
	var files []string
	fsys := os.DirFS(basedir)

	for _, pat := range patterns {
		if filepath.IsAbs(pat) {
			files = append(files, filepath.Clean(pat))
			continue
		}
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pat), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", pat, err)
		}
		for _, match := range matches {
			abs, err := filepath.Abs(filepath.Join(basedir, match))
			if err != nil {
				return nil, fmt.Errorf("while globbing %s: %w", match, err)
			}
			files = append(files, abs)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// headerDirs reduces a list of header files to the sorted set of directories
// containing them, for use as include paths.
func headerDirs(headers []string) []string {
	seen := make(map[string]struct{})
	for _, h := range headers {
		seen[filepath.Dir(h)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// isSource reports whether path looks like a compilable C source file.
func isSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), sourceExt)
}
