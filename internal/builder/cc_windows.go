//go:build windows

package builder

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/heaths/go-vssetup"
)

// findMSVC locates cl.exe through the Visual Studio setup API when no
// compiler was found on PATH.
func findMSVC() string {
	instances, err := vssetup.Instances(false)
	if err != nil {
		return ""
	}

	host := "Hostx64"
	arch := "x64"
	if runtime.GOARCH == "386" {
		host, arch = "Hostx86", "x86"
	}

	for _, instance := range instances {
		installPath, err := instance.InstallationPath()
		if err != nil {
			continue
		}

		toolsRoot := filepath.Join(installPath, "VC", "Tools", "MSVC")
		versions, err := os.ReadDir(toolsRoot)
		if err != nil {
			continue
		}

		// pick the newest toolset version
		for i := len(versions) - 1; i >= 0; i-- {
			cl := filepath.Join(toolsRoot, versions[i].Name(), "bin", host, arch, "cl.exe")
			if _, err := os.Stat(cl); err == nil {
				return cl
			}
		}
	}

	return ""
}
