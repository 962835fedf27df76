package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckCoreBinary reports where a Capricoin+ Core binary will be executed
// from.
//
// The lookup prefers the configured binaries directory, which is where the
// prepare tool installs the verified release, and falls back to resolving the
// bare name from PATH for operators who installed Core themselves.
func CheckCoreBinary(binDir, name, description string) Status {
	result := Status{
		Name:        name,
		Description: description,
	}

	dir := strings.TrimSpace(binDir)
	if dir != "" {
		candidate := filepath.Join(dir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = name
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

// CheckCoreBinaries resolves the daemon, CLI and transaction tools from the
// configured binaries directory.
func CheckCoreBinaries(binDir string) []Status {
	return []Status{
		CheckCoreBinary(binDir, "capricoinplusd", "Capricoin+ Core daemon"),
		CheckCoreBinary(binDir, "capricoinplus-cli", "Capricoin+ Core RPC client"),
		CheckCoreBinary(binDir, "capricoinplus-tx", "Capricoin+ Core transaction tool"),
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
