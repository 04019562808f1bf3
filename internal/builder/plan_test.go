package builder

import (
	"errors"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/treekit-build/treekit/internal/target"
)

var linuxGnu = target.Triple{Arch: target.ArchX8664, OS: target.OSLinux, ABI: target.ABIGnu}

// testBundles pretends every bundle lives under /opt/bundles without
// touching the filesystem.
func testBundles(dep target.Dependency) (Bundle, error) {
	return Bundle{Dep: dep, Dir: filepath.Join("/opt/bundles", string(dep))}, nil
}

func TestBuildOptionPlanBaseline(t *testing.T) {
	op, err := BuildOptionPlan(Options{}, linuxGnu, testBundles)
	if err != nil {
		t.Fatal(err)
	}

	if op.Defines["_POSIX_C_SOURCE"] != "200112L" {
		t.Errorf("_POSIX_C_SOURCE = %q, want 200112L", op.Defines["_POSIX_C_SOURCE"])
	}
	if _, ok := op.Defines["_DEFAULT_SOURCE"]; !ok {
		t.Error("baseline define _DEFAULT_SOURCE missing")
	}
	if _, ok := op.Defines[FeatureWasmDefine]; ok {
		t.Errorf("%s set without the wasm option", FeatureWasmDefine)
	}
	if op.Linkage != LinkStatic || op.PIC {
		t.Errorf("default linkage = %v pic=%v, want static without PIC", op.Linkage, op.PIC)
	}
	if op.Dependency != "" {
		t.Errorf("dependency = %q, want none", op.Dependency)
	}
}

func TestBuildOptionPlanWasmOffSkipsClassification(t *testing.T) {
	// an unclassifiable triple must not matter when the extension is off
	bad := target.Triple{Arch: "mips", OS: target.OSLinux, ABI: target.ABIGnu}

	called := false
	op, err := BuildOptionPlan(Options{}, bad, func(dep target.Dependency) (Bundle, error) {
		called = true
		return Bundle{}, nil
	})
	if err != nil {
		t.Fatalf("planning without wasm failed on unsupported triple: %v", err)
	}
	if called {
		t.Error("bundle provider invoked although the wasm option is off")
	}
	if _, ok := op.Defines[FeatureWasmDefine]; ok {
		t.Errorf("%s set although the wasm option is off", FeatureWasmDefine)
	}
}

func TestBuildOptionPlanSharedWasm(t *testing.T) {
	op, err := BuildOptionPlan(Options{Wasm: true, Shared: true}, linuxGnu, testBundles)
	if err != nil {
		t.Fatal(err)
	}

	if op.Linkage != LinkDynamic {
		t.Errorf("linkage = %v, want dynamic", op.Linkage)
	}
	if !op.PIC {
		t.Error("shared build is not position independent")
	}
	if op.Dependency != "wasmtime_c_api_x86_64_linux" {
		t.Errorf("dependency = %q, want wasmtime_c_api_x86_64_linux", op.Dependency)
	}
	if _, ok := op.Defines[FeatureWasmDefine]; !ok {
		t.Errorf("%s not defined", FeatureWasmDefine)
	}

	wantInclude := filepath.Join("/opt/bundles", "wasmtime_c_api_x86_64_linux", "include")
	if !slices.Contains(op.IncludeDirs, wantInclude) {
		t.Errorf("include dirs %v missing %s", op.IncludeDirs, wantInclude)
	}
	if !slices.Contains(op.Links, "wasmtime") {
		t.Errorf("links %v missing required wasmtime", op.Links)
	}
}

func TestBuildOptionPlanStaticWasmDoesNotLink(t *testing.T) {
	op, err := BuildOptionPlan(Options{Wasm: true}, linuxGnu, testBundles)
	if err != nil {
		t.Fatal(err)
	}
	// static archives carry no link-time dependency; consumers link wasmtime
	if slices.Contains(op.Links, "wasmtime") {
		t.Errorf("static build links wasmtime: %v", op.Links)
	}
	if op.Dependency == "" {
		t.Error("dependency not recorded for static wasm build")
	}
}

func TestBuildOptionPlanUnsupportedTriple(t *testing.T) {
	bad := target.Triple{Arch: "mips", OS: target.OSLinux, ABI: target.ABIGnu}

	op, err := BuildOptionPlan(Options{Wasm: true, Shared: true}, bad, testBundles)
	if op != nil {
		t.Fatalf("got a plan for an unsupported triple: %+v", op)
	}
	var unsupported *target.UnsupportedTargetError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error is %T, want *target.UnsupportedTargetError", err)
	}
	if unsupported.Arch != "mips" {
		t.Errorf("error arch = %q, want mips", unsupported.Arch)
	}
}

func TestAssembleInvariants(t *testing.T) {
	t.Run("wasm without dependency", func(t *testing.T) {
		op := &OptionPlan{wasm: true, mode: SourceSplit}
		if _, err := Assemble(linuxGnu, []string{"a.c"}, op); !errors.Is(err, ErrInvariant) {
			t.Errorf("err = %v, want ErrInvariant", err)
		}
	})

	t.Run("amalgamated with two sources", func(t *testing.T) {
		op := &OptionPlan{mode: SourceAmalgamated}
		if _, err := Assemble(linuxGnu, []string{"a.c", "b.c"}, op); !errors.Is(err, ErrInvariant) {
			t.Errorf("err = %v, want ErrInvariant", err)
		}
	})

	t.Run("split containing the amalgamation file", func(t *testing.T) {
		op := &OptionPlan{mode: SourceSplit}
		sources := []string{"a.c", filepath.Join("src", AmalgamationFile)}
		if _, err := Assemble(linuxGnu, sources, op); !errors.Is(err, ErrInvariant) {
			t.Errorf("err = %v, want ErrInvariant", err)
		}
	})

	t.Run("valid plan", func(t *testing.T) {
		op := &OptionPlan{mode: SourceAmalgamated, Linkage: LinkDynamic, PIC: true}
		plan, err := Assemble(linuxGnu, []string{filepath.Join("src", AmalgamationFile)}, op)
		if err != nil {
			t.Fatal(err)
		}
		if plan.Linkage != "dynamic" || !plan.PIC {
			t.Errorf("plan linkage = %q pic=%v", plan.Linkage, plan.PIC)
		}
		if plan.Triple != "x86_64-linux-gnu" {
			t.Errorf("plan triple = %q", plan.Triple)
		}
	})
}

func TestDefineFlagsSorted(t *testing.T) {
	plan := &BuildPlan{Defines: map[string]string{
		"_POSIX_C_SOURCE": "200112L",
		"_DEFAULT_SOURCE": "",
		FeatureWasmDefine: "",
	}}

	want := []string{"-DTREEKIT_FEATURE_WASM", "-D_DEFAULT_SOURCE", "-D_POSIX_C_SOURCE=200112L"}
	if got := plan.DefineFlags(); !slices.Equal(got, want) {
		t.Errorf("DefineFlags() = %v, want %v", got, want)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	dir := writeTestProject(t)

	plan1 := planTestProject(t, dir, Options{Wasm: true, Shared: true})
	plan2 := planTestProject(t, dir, Options{Wasm: true, Shared: true})

	if !reflect.DeepEqual(plan1, plan2) {
		t.Errorf("two identical planning passes differ:\n%+v\n%+v", plan1, plan2)
	}
}

func planTestProject(t *testing.T, dir string, opts Options) *BuildPlan {
	t.Helper()
	b, err := NewBuilderInDirectory(dir, linuxGnu)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := b.Plan(opts, testBundles)
	if err != nil {
		t.Fatal(err)
	}
	return plan
}
