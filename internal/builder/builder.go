package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/treekit-build/treekit/internal/emit"
	"github.com/treekit-build/treekit/internal/target"
	"golang.org/x/sync/errgroup"
)

// Builder plans (and optionally performs) a build of the treekit C library
// for a single target triple. Builders share no mutable state, so planning
// several targets from one process just means constructing several Builders.
type Builder struct {
	cfg     *Config
	basedir string
	env     ConfigEnv
	triple  target.Triple
}

func NewBuilderInDirectory(path string, triple target.Triple) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	env := NewConfigEnv(path, triple)
	cfg, err := ParseConfigFromFile(filepath.Join(path, ConfigFilename), env)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, basedir: path, env: env, triple: triple}, nil
}

func (b *Builder) Config() *Config       { return b.cfg }
func (b *Builder) Triple() target.Triple { return b.triple }

// Options returns the option switches from [build], which the CLI flags may
// have overridden before planning.
func (b *Builder) Options() Options {
	return Options{
		Wasm:        b.cfg.Build.Wasm,
		Shared:      b.cfg.Build.Shared,
		Amalgamated: b.cfg.Build.Amalgamated,
	}
}

func (b *Builder) sourceDir() string {
	return filepath.Join(b.basedir, b.cfg.Build.SourceDir)
}

// Plan runs the full planning pass: option plan, source resolution, config
// additions, assembly. Any failure aborts before a plan exists; a plan is
// never partially constructed.
func (b *Builder) Plan(opts Options, bundles BundleProvider) (*BuildPlan, error) {
	op, err := BuildOptionPlan(opts, b.triple, bundles)
	if err != nil {
		return nil, err
	}

	sources, err := ResolveSources(opts.SourceMode(), b.sourceDir())
	if err != nil {
		return nil, err
	}

	// fold [target] additions from Treekit.toml into the option plan
	if opts.SourceMode() == SourceSplit && len(b.cfg.Target.ExtraSources) > 0 {
		extra, err := collectGlobs(b.basedir, b.cfg.Target.ExtraSources)
		if err != nil {
			return nil, fmt.Errorf("failed to collect extra sources: %w", err)
		}
		for _, src := range extra {
			if isSource(src) && filepath.Base(src) != AmalgamationFile {
				sources = append(sources, src)
			}
		}
		slices.Sort(sources)
		sources = slices.Compact(sources)
	}

	if len(b.cfg.Target.Headers) > 0 {
		headers, err := collectGlobs(b.basedir, b.cfg.Target.Headers)
		if err != nil {
			return nil, fmt.Errorf("failed to collect headers: %w", err)
		}
		op.Headers = headers
		op.IncludeDirs = append(op.IncludeDirs, headerDirs(headers)...)
	}

	for define, v := range b.cfg.Target.Defines {
		op.Defines[define] = v
	}
	op.Cflags = append(op.Cflags, b.cfg.Target.Cflags...)
	op.Links = append(op.Links, b.cfg.Target.Links...)

	return Assemble(b.triple, sources, op)
}

// FetchProvider returns the bundle provider used for real builds: resolve
// from the cache, fetch when missing, honoring the [build] wasm-bundle
// source override.
func (b *Builder) FetchProvider() BundleProvider {
	source := b.cfg.Build.WasmBundle
	return func(dep target.Dependency) (Bundle, error) {
		return FetchBundle(dep, source)
	}
}

func (b *Builder) makeCflags(profile string) ([]string, error) {
	if prof, ok := b.cfg.Profile[profile]; ok {
		var cflags []string
		optLevel := prof.OptLevel.String()
		if optLevel != "" {
			cflags = append(cflags, "-O"+optLevel)
		}
		return cflags, nil
	}
	return nil, fmt.Errorf("unknown profile %q, known profiles: %s", profile, strings.Join(b.cfg.Profiles(), ", "))
}

// outputName returns the artifact name for this library on the target OS
// (e.g. libtreekit.a, libtreekit.so, treekit.lib, treekit.dll).
func (b *Builder) outputName(linkage string) string {
	name := b.cfg.Package.Name
	if name == "" {
		name = "treekit"
	}

	if b.triple.OS == target.OSWindows {
		if linkage == "dynamic" {
			return name + ".dll"
		}
		return name + ".lib"
	}
	if linkage == "dynamic" {
		if b.triple.OS == target.OSMacos {
			return "lib" + name + ".dylib"
		}
		return "lib" + name + ".so"
	}
	return "lib" + name + ".a"
}

const (
	GeneratorCC    = "cc"
	GeneratorNinja = "ninja"
)

func createEmitter(generator string) emit.Emitter {
	switch generator {
	case GeneratorCC:
		return emit.NewCCEmitter()
	case GeneratorNinja:
		return &emit.NinjaGen{}
	default:
		panic("createEmitter: unreachable")
	}
}

// Build plans and then hands the plan to the selected artifact emitter.
func (b *Builder) Build(opts Options, profile, generator string) error {
	profileCflags, err := b.makeCflags(profile)
	if err != nil {
		return err
	}

	plan, err := b.Plan(opts, b.FetchProvider())
	if err != nil {
		return err
	}
	plan.Cflags = append(profileCflags, plan.Cflags...)

	buildDir := filepath.Join(b.basedir, "build")
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}

	cc := findCompiler()
	if cc == "" {
		return errors.New("no C compiler found (set CC or install one)")
	}

	e := createEmitter(generator)
	e.SetCompiler(cc)
	e.AddLibrary(emit.Library{
		Name:    b.outputName(plan.Linkage),
		Basedir: b.basedir,
		Sources: plan.Sources,
		Headers: plan.Headers,
		Cflags:  plan.CompileFlags(),
		Ldflags: plan.LinkFlags(),
		Dynamic: plan.Linkage == "dynamic",
	})

	out := e.Generate()
	if out != "" {
		buildFile := filepath.Join(buildDir, e.BuildFile())
		if err := os.WriteFile(buildFile, []byte(out), 0644); err != nil {
			return err
		}
	}

	return e.Invoke(buildDir)
}

// PlanMatrix plans every supported triple concurrently. Each goroutine gets
// its own Builder so no state is shared; the classifier itself is pure. The
// returned plans are in the same order as target.Supported().
func PlanMatrix(path string, opts Options, bundles BundleProvider) ([]*BuildPlan, error) {
	triples := target.Supported()
	plans := make([]*BuildPlan, len(triples))

	var eg errgroup.Group
	for i, triple := range triples {
		eg.Go(func() error {
			b, err := NewBuilderInDirectory(path, triple)
			if err != nil {
				return err
			}
			plan, err := b.Plan(opts, bundles)
			if err != nil {
				return fmt.Errorf("planning %s: %w", triple, err)
			}
			plans[i] = plan
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}
