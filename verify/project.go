package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	RunnerPnpm = "pnpm"
	RunnerYarn = "yarn"
	RunnerNpm  = "npm"
)

// DetectRunner picks the package runner by lockfile presence.
func DetectRunner(workdir string) string {
	if _, err := os.Stat(filepath.Join(workdir, "pnpm-lock.yaml")); err == nil {
		return RunnerPnpm
	}
	if _, err := os.Stat(filepath.Join(workdir, "yarn.lock")); err == nil {
		return RunnerYarn
	}
	return RunnerNpm
}

// readScripts returns the scripts block of package.json. A missing or
// unparsable file yields an empty map, disabling every script-gated check.
func readScripts(workdir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(workdir, "package.json"))
	if err != nil {
		return map[string]string{}
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Scripts == nil {
		return map[string]string{}
	}
	return pkg.Scripts
}
