package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/treekit-build/treekit/internal/bundle"
	"github.com/treekit-build/treekit/internal/msg"
	"github.com/treekit-build/treekit/internal/target"
)

// BundleDirEnv overrides bundle resolution entirely: when set, every bundle
// is expected under $TREEKIT_WASMTIME_DIR/<identifier>. This is the hook for
// host toolchains that fetch bundles themselves.
const BundleDirEnv = "TREEKIT_WASMTIME_DIR"

const defaultBundleOrigin = "gh:treekit-build/"

var sourceShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const gitPrefix = "git:"

var errEmptyBundleSource = errors.New("empty bundle source")

// Bundle is a fetched (or host-provided) prebuilt wasmtime-c-api artifact
// bundle on disk. Bundles always expose include/ and lib/ subdirectories.
type Bundle struct {
	Dep target.Dependency
	Dir string
}

func (b Bundle) IncludeDir() string { return filepath.Join(b.Dir, "include") }
func (b Bundle) LibDir() string     { return filepath.Join(b.Dir, "lib") }

// checkLayout verifies the include/ + lib/ contract of a bundle directory.
func (b Bundle) checkLayout() error {
	for _, dir := range []string{b.IncludeDir(), b.LibDir()} {
		stat, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("bundle %s is missing %s: %w", b.Dep, filepath.Base(dir), err)
		}
		if !stat.IsDir() {
			return fmt.Errorf("bundle %s: %s is not a directory", b.Dep, dir)
		}
	}
	return nil
}

// BundleProvider resolves a classified dependency identifier to a bundle on
// disk. Planning and building use different providers: planning only needs
// the paths, building needs the bundle to actually exist.
type BundleProvider func(dep target.Dependency) (Bundle, error)

// bundleCacheDir returns the per-user bundle cache root
// (e.g. ~/.cache/treekit/bundles).
func bundleCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine bundle cache directory: %w", err)
	}
	return filepath.Join(base, "treekit", "bundles"), nil
}

// LocateBundle resolves a dependency to its on-disk location without
// fetching anything. The returned directory may not exist yet; FetchBundle
// populates it.
func LocateBundle(dep target.Dependency) (Bundle, error) {
	if override := os.Getenv(BundleDirEnv); override != "" {
		return Bundle{Dep: dep, Dir: filepath.Join(override, string(dep))}, nil
	}
	cache, err := bundleCacheDir()
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Dep: dep, Dir: filepath.Join(cache, string(dep))}, nil
}

// FetchBundle resolves a dependency and fetches it into the cache if it is
// not already there. source overrides the default origin; it accepts the
// same syntax as Treekit.toml's wasm_bundle key (git:, gh:/gl:/bb:/sr:/cb:
// shortcuts, or a plain local path).
func FetchBundle(dep target.Dependency, source string) (Bundle, error) {
	b, err := LocateBundle(dep)
	if err != nil {
		return Bundle{}, err
	}

	if err := b.checkLayout(); err == nil {
		return b, nil
	}

	if source == "" {
		source, err = resolveBundleSource(dep)
		if err != nil {
			return Bundle{}, err
		}
	}

	if err := os.MkdirAll(b.Dir, 0755); err != nil && !os.IsExist(err) {
		return Bundle{}, err
	}
	msg.Info("fetching bundle %s", dep)
	if err := fetchBundleSource(source, b.Dir); err != nil {
		// a partial clone left behind would wedge every later fetch
		os.RemoveAll(b.Dir)
		return Bundle{}, fmt.Errorf("failed to fetch bundle %s: %w", dep, err)
	}

	if err := b.checkLayout(); err != nil {
		os.RemoveAll(b.Dir)
		return Bundle{}, err
	}
	return b, nil
}

// resolveBundleSource consults the bundle registry for dep and falls back to
// the default origin convention.
func resolveBundleSource(dep target.Dependency) (string, error) {
	reg, err := bundle.LoadDefault()
	if err != nil {
		return "", fmt.Errorf("bundle registry: %w", err)
	}
	if src, ok := reg.Source(dep); ok {
		return src, nil
	}
	return defaultBundleOrigin + string(dep), nil
}

func fetchBundleSource(source, toWhere string) error {
	if source == "" {
		return errEmptyBundleSource
	}

	// git:https://example.com/bundles/foo.git
	if strings.HasPrefix(source, gitPrefix) {
		return cloneBundleRepo(source[len(gitPrefix):], toWhere)
	}

	// gh:treekit-build/wasmtime_c_api_x86_64_linux
	for shortcut, url := range sourceShortcuts {
		if strings.HasPrefix(source, shortcut) {
			return cloneBundleRepo(url+source[len(shortcut):], toWhere)
		}
	}

	// otherwise a local directory holding the bundle
	return copyBundleDir(source, toWhere)
}

type gitSource struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

// someone/bundle@main#v1.2.0
// someone/bundle#12345abc
func parseGitSource(raw string) (res gitSource) {
	parts := strings.SplitN(raw, "#", 2)
	base := parts[0]
	if len(parts) == 2 {
		res.commitOrTag = parts[1]
	}

	parts = strings.SplitN(base, "@", 2)
	res.cleanURL = parts[0]
	if len(parts) == 2 {
		res.branch = parts[1]
	}

	if !strings.HasSuffix(res.cleanURL, ".git") {
		res.cleanURL += ".git"
	}

	return
}

// cloneBundleRepo clones a bundle's Git remote into the cache directory.
func cloneBundleRepo(url, toWhere string) error {
	src := parseGitSource(url)

	meter := msg.NewTransferMeter(msg.Out)
	cloneOptions := &git.CloneOptions{
		URL:      src.cleanURL,
		Progress: meter,
	}

	if src.commitOrTag == "" {
		cloneOptions.Depth = 1 // shallow clone of the latest commit is enough
	}
	if src.branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(src.branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := git.PlainClone(toWhere, cloneOptions)
	meter.Finish()
	if err != nil {
		return err
	}

	if src.commitOrTag != "" {
		w, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("could not get worktree: %w", err)
		}

		hash, err := repo.ResolveRevision(plumbing.Revision(src.commitOrTag))
		if err != nil {
			return fmt.Errorf("could not resolve revision `%s`: %w", src.commitOrTag, err)
		}

		if err := w.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
			return fmt.Errorf("failed to checkout `%s`: %w", src.commitOrTag, err)
		}
	}

	return nil
}

// copyBundleDir mirrors a local bundle directory into the cache so that the
// cached layout is identical regardless of where the bundle came from.
func copyBundleDir(from, toWhere string) error {
	return filepath.WalkDir(from, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(toWhere, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
}
