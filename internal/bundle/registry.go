// Package bundle holds the registry mapping wasmtime-c-api dependency
// identifiers to the sources they are fetched from. Identifiers without a
// registry entry fall back to the default origin convention.
package bundle

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/treekit-build/treekit/internal/target"
)

const (
	RegistryFilename = "treekit_registry.json"

	// RegistryEnv points at an alternative registry file. This is the hook
	// for environments that mirror bundles internally.
	RegistryEnv = "TREEKIT_REGISTRY"
)

// Registry maps dependency identifiers to bundle sources. Sources use the
// same syntax as Treekit.toml's wasm_bundle key: git:, forge shortcuts
// (gh:/gl:/bb:/sr:/cb:) or a plain local path.
type Registry struct {
	Sources map[target.Dependency]string
}

func Parse(rdr io.Reader) (*Registry, error) {
	var sources map[target.Dependency]string
	if err := json.NewDecoder(bufio.NewReader(rdr)).Decode(&sources); err != nil {
		return nil, err
	}
	return &Registry{Sources: sources}, nil
}

// Load reads the registry at path. A missing file is not an error: it yields
// an empty registry so every lookup falls through to the default origin.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Registry{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// DefaultPath returns the registry location: $TREEKIT_REGISTRY when set,
// otherwise <user cache>/treekit/treekit_registry.json.
func DefaultPath() (string, error) {
	if path := os.Getenv(RegistryEnv); path != "" {
		return path, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "treekit", RegistryFilename), nil
}

// LoadDefault loads the registry from DefaultPath.
func LoadDefault() (*Registry, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Source returns the registered source for dep, if any.
func (r *Registry) Source(dep target.Dependency) (string, bool) {
	src, ok := r.Sources[dep]
	return src, ok
}

// SetSource records (or replaces) the source for dep.
func (r *Registry) SetSource(dep target.Dependency, src string) {
	if r.Sources == nil {
		r.Sources = make(map[target.Dependency]string)
	}
	r.Sources[dep] = src
}

// Save writes the registry back to path, pretty-printed so the file stays
// hand-editable.
func (r *Registry) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	defer bufw.Flush()

	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Sources)
}
