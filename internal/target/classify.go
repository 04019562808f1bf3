package target

import "fmt"

// Dependency names a prebuilt wasmtime-c-api bundle for a single target.
// Only the classifier produces these.
type Dependency string

// UnsupportedTargetError reports a triple with no prebuilt bundle. The three
// fields are echoed back verbatim so a failing cross-build is diagnosable.
type UnsupportedTargetError struct {
	Arch Arch
	OS   OS
	ABI  ABI
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("no prebuilt wasmtime-c-api bundle for target arch=%q os=%q abi=%q", e.Arch, e.OS, e.ABI)
}

type rule struct {
	os   OS
	arch Arch
	abi  ABI // ABIAny matches every ABI
	dep  Dependency
}

var rules = []rule{
	{OSLinux, ArchX8664, ABIGnu, "wasmtime_c_api_x86_64_linux"},
	{OSLinux, ArchAarch64, ABIGnu, "wasmtime_c_api_aarch64_linux"},
	{OSLinux, ArchX8664, ABIMusl, "wasmtime_c_api_x86_64_musl"},
	{OSLinux, ArchAarch64, ABIMusl, "wasmtime_c_api_aarch64_musl"},
	{OSLinux, ArchX8664, ABIAndroid, "wasmtime_c_api_x86_64_android"},
	{OSLinux, ArchAarch64, ABIAndroid, "wasmtime_c_api_aarch64_android"},
	{OSLinux, ArchRiscv64, ABIGnu, "wasmtime_c_api_riscv64gc_linux"},
	{OSLinux, ArchS390x, ABIGnu, "wasmtime_c_api_s390x_linux"},
	{OSMacos, ArchX8664, ABIAny, "wasmtime_c_api_x86_64_macos"},
	{OSMacos, ArchAarch64, ABIAny, "wasmtime_c_api_aarch64_macos"},
	{OSWindows, ArchX8664, ABIMsvc, "wasmtime_c_api_x86_64_windows"},
	{OSWindows, ArchX8664, ABIGnu, "wasmtime_c_api_x86_64_mingw"},
	{OSWindows, ArchI686, ABIMsvc, "wasmtime_c_api_i686_windows"},
}

// lookup is built once from the rule table: os -> arch -> abi -> dependency.
var lookup map[OS]map[Arch]map[ABI]Dependency

func init() {
	lookup = make(map[OS]map[Arch]map[ABI]Dependency)
	for _, r := range rules {
		byArch, ok := lookup[r.os]
		if !ok {
			byArch = make(map[Arch]map[ABI]Dependency)
			lookup[r.os] = byArch
		}
		byABI, ok := byArch[r.arch]
		if !ok {
			byABI = make(map[ABI]Dependency)
			byArch[r.arch] = byABI
		}
		if _, dup := byABI[r.abi]; dup {
			panic(fmt.Sprintf("duplicate classification rule for %s-%s-%s", r.arch, r.os, r.abi))
		}
		byABI[r.abi] = r.dep
	}
}

// Classify maps a target triple to the prebuilt bundle it needs, or fails
// with an *UnsupportedTargetError. It never guesses: a triple outside the
// rule table is a hard error, because linking against the wrong bundle fails
// much later with a far worse message.
//
// Classify is pure and safe to call from multiple goroutines.
func Classify(t Triple) (Dependency, error) {
	byArch, ok := lookup[t.OS]
	if !ok {
		return "", &UnsupportedTargetError{Arch: t.Arch, OS: t.OS, ABI: t.ABI}
	}
	byABI, ok := byArch[t.Arch]
	if !ok {
		return "", &UnsupportedTargetError{Arch: t.Arch, OS: t.OS, ABI: t.ABI}
	}
	if dep, ok := byABI[ABIAny]; ok {
		return dep, nil
	}
	dep, ok := byABI[t.ABI]
	if !ok {
		return "", &UnsupportedTargetError{Arch: t.Arch, OS: t.OS, ABI: t.ABI}
	}
	return dep, nil
}

// Supported returns every triple in the classification table, sorted by the
// table's declaration order. Triples with a wildcard ABI are reported with
// the ABI left empty.
func Supported() []Triple {
	out := make([]Triple, 0, len(rules))
	for _, r := range rules {
		abi := r.abi
		if abi == ABIAny {
			abi = ""
		}
		out = append(out, Triple{Arch: r.arch, OS: r.os, ABI: abi})
	}
	return out
}
