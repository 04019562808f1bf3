package builder

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/treekit-build/treekit/internal/target"
)

// Linkage is the kind of artifact the plan produces.
type Linkage int

const (
	LinkStatic Linkage = iota
	LinkDynamic
)

func (l Linkage) String() string {
	if l == LinkDynamic {
		return "dynamic"
	}
	return "static"
}

// FeatureWasmDefine gates the wasm query extension in the C sources.
const FeatureWasmDefine = "TREEKIT_FEATURE_WASM"

// baselineDefines are required unconditionally for POSIX extension
// visibility across every supported OS. Not feature-gated.
var baselineDefines = map[string]string{
	"_POSIX_C_SOURCE": "200112L",
	"_DEFAULT_SOURCE": "",
}

// ErrInvariant marks a plan that violates its own construction contract.
// Seeing it means a logic defect in the planner, not a user error.
var ErrInvariant = errors.New("build plan invariant violated")

// Options are the three switches that drive planning. Immutable once
// planning starts.
type Options struct {
	Wasm        bool // enable the wasm query extension
	Shared      bool // produce a dynamic library instead of a static one
	Amalgamated bool // compile the single pre-merged source file
}

// SourceMode returns the source resolution mode implied by the options.
func (o Options) SourceMode() SourceMode {
	if o.Amalgamated {
		return SourceAmalgamated
	}
	return SourceSplit
}

// OptionPlan is the partial plan derived from Options alone, before any
// source discovery. Produced by BuildOptionPlan, consumed by Assemble.
type OptionPlan struct {
	Defines     map[string]string
	IncludeDirs []string
	LibDirs     []string
	Links       []string
	Cflags      []string
	Headers     []string
	Linkage     Linkage
	PIC         bool
	Dependency  target.Dependency

	mode SourceMode
	wasm bool
}

// BuildPlan is the final, reproducible description of one build: everything
// the artifact emitter needs and nothing it has to decide. Constructed
// exactly once per invocation, never persisted.
type BuildPlan struct {
	Triple      string            `toml:"triple"`
	Sources     []string          `toml:"sources"`
	IncludeDirs []string          `toml:"include_dirs"`
	Defines     map[string]string `toml:"defines"`
	Linkage     string            `toml:"linkage"`
	PIC         bool              `toml:"pic"`
	Links       []string          `toml:"links"`
	LibDirs     []string          `toml:"lib_dirs"`
	Cflags      []string          `toml:"cflags"`
	Headers     []string          `toml:"headers"`
	Dependency  string            `toml:"dependency,omitempty"`
}

// BuildOptionPlan turns the option switches into a partial plan.
//
// The wasm extension requires a prebuilt wasmtime-c-api bundle; the triple is
// classified to find which one, and classification failure aborts the whole
// build. A shared artifact with the extension enabled must also link the
// bundle's library, otherwise symbol resolution fails at load time. This
// function performs no directory scanning; source discovery belongs to
// ResolveSources.
func BuildOptionPlan(opts Options, triple target.Triple, bundles BundleProvider) (*OptionPlan, error) {
	op := &OptionPlan{
		Defines: maps.Clone(baselineDefines),
		mode:    opts.SourceMode(),
		wasm:    opts.Wasm,
	}

	if opts.Shared {
		op.Linkage = LinkDynamic
		op.PIC = true
	}

	if opts.Wasm {
		dep, err := target.Classify(triple)
		if err != nil {
			return nil, err
		}

		bundle, err := bundles(dep)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bundle %s: %w", dep, err)
		}

		op.Defines[FeatureWasmDefine] = ""
		op.Dependency = dep
		op.IncludeDirs = append(op.IncludeDirs, bundle.IncludeDir())
		op.LibDirs = append(op.LibDirs, bundle.LibDir())
		if opts.Shared {
			op.Links = append(op.Links, "wasmtime")
		}
	}

	return op, nil
}

// Assemble merges resolved sources and an option plan into the final
// BuildPlan. It is a pure merge with no decisions of its own, but it
// re-checks the planner's invariants instead of trusting its callers: a
// violation here is a bug upstream and must never reach the emitter.
func Assemble(triple target.Triple, sources []string, op *OptionPlan) (*BuildPlan, error) {
	if op.wasm && op.Dependency == "" {
		return nil, fmt.Errorf("%w: wasm extension requested but no bundle was classified", ErrInvariant)
	}
	if op.mode == SourceAmalgamated && len(sources) != 1 {
		return nil, fmt.Errorf("%w: amalgamated mode produced %d sources, want exactly 1", ErrInvariant, len(sources))
	}
	if op.mode == SourceSplit {
		for _, src := range sources {
			if filepath.Base(src) == AmalgamationFile {
				return nil, fmt.Errorf("%w: split mode must not compile %s", ErrInvariant, AmalgamationFile)
			}
		}
	}

	return &BuildPlan{
		Triple:      triple.String(),
		Sources:     slices.Clone(sources),
		IncludeDirs: slices.Clone(op.IncludeDirs),
		Defines:     maps.Clone(op.Defines),
		Linkage:     op.Linkage.String(),
		PIC:         op.PIC,
		Links:       slices.Clone(op.Links),
		LibDirs:     slices.Clone(op.LibDirs),
		Cflags:      slices.Clone(op.Cflags),
		Headers:     slices.Clone(op.Headers),
		Dependency:  string(op.Dependency),
	}, nil
}

// DefineFlags renders the plan's defines as sorted -D compiler flags.
// Sorting keeps the rendered command line stable across runs.
func (p *BuildPlan) DefineFlags() []string {
	flags := make([]string, 0, len(p.Defines))
	for _, name := range slices.Sorted(maps.Keys(p.Defines)) {
		if v := p.Defines[name]; v != "" {
			flags = append(flags, "-D"+name+"="+v)
		} else {
			flags = append(flags, "-D"+name)
		}
	}
	return flags
}

// CompileFlags renders the full compiler flag set: defines, include paths,
// position independence and any extra cflags, in that order.
func (p *BuildPlan) CompileFlags() []string {
	flags := p.DefineFlags()
	for _, dir := range p.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	if p.PIC {
		flags = append(flags, "-fPIC")
	}
	flags = append(flags, p.Cflags...)
	return flags
}

// LinkFlags renders the linker flag set for a dynamic build.
func (p *BuildPlan) LinkFlags() []string {
	var flags []string
	for _, dir := range p.LibDirs {
		flags = append(flags, "-L"+dir)
	}
	for _, lib := range p.Links {
		flags = append(flags, "-l"+lib)
	}
	return flags
}
