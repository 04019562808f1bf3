package target

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a CPU architecture in triple notation (x86_64, not amd64).
type Arch string

const (
	ArchX8664   Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
	ArchRiscv64 Arch = "riscv64"
	ArchS390x   Arch = "s390x"
	ArchI686    Arch = "i686"
)

// OS is a target operating system.
type OS string

const (
	OSLinux   OS = "linux"
	OSMacos   OS = "macos"
	OSWindows OS = "windows"
)

// ABI distinguishes C runtimes that share an (os, arch) pair.
type ABI string

const (
	ABIGnu     ABI = "gnu"
	ABIMusl    ABI = "musl"
	ABIAndroid ABI = "android"
	ABIMsvc    ABI = "msvc"
	// ABIAny marks table entries that match every ABI (e.g. macos).
	ABIAny ABI = "*"
)

// Triple identifies a compilation target. Immutable for the duration of a
// planning pass.
type Triple struct {
	Arch Arch
	OS   OS
	ABI  ABI
}

func (t Triple) String() string {
	if t.ABI == "" || t.ABI == ABIAny {
		return string(t.Arch) + "-" + string(t.OS)
	}
	return string(t.Arch) + "-" + string(t.OS) + "-" + string(t.ABI)
}

// ParseTriple parses "arch-os" or "arch-os-abi" notation, e.g.
// "x86_64-linux-gnu" or "aarch64-macos".
func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 2:
		return Triple{Arch: Arch(parts[0]), OS: OS(parts[1])}, nil
	case 3:
		return Triple{Arch: Arch(parts[0]), OS: OS(parts[1]), ABI: ABI(parts[2])}, nil
	default:
		return Triple{}, fmt.Errorf("invalid target triple %q, want arch-os[-abi]", s)
	}
}

var goarchNames = map[string]Arch{
	"amd64":   ArchX8664,
	"arm64":   ArchAarch64,
	"riscv64": ArchRiscv64,
	"s390x":   ArchS390x,
	"386":     ArchI686,
}

// Host returns the triple of the machine the tool is running on, assuming the
// default ABI for each OS (gnu on linux, msvc on windows).
func Host() Triple {
	arch, ok := goarchNames[runtime.GOARCH]
	if !ok {
		arch = Arch(runtime.GOARCH)
	}

	switch runtime.GOOS {
	case "darwin":
		return Triple{Arch: arch, OS: OSMacos}
	case "windows":
		return Triple{Arch: arch, OS: OSWindows, ABI: ABIMsvc}
	case "android":
		return Triple{Arch: arch, OS: OSLinux, ABI: ABIAndroid}
	default:
		return Triple{Arch: arch, OS: OS(runtime.GOOS), ABI: ABIGnu}
	}
}
