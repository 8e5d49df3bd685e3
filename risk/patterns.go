package risk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// commandPattern maps a compiled expression to the risk classification it
// triggers. Tables are ordered; the first match within a class wins.
type commandPattern struct {
	label string
	re    *regexp.Regexp
}

var dangerousCommandPatterns = []commandPattern{
	{label: "recursive force delete", re: regexp.MustCompile(`(?i)\brm\s+(-[a-z]+\s+)*-[a-z]*(rf|fr)[a-z]*\b`)},
	{label: "recursive delete of root", re: regexp.MustCompile(`(?i)\brm\s+(-[a-z]+\s+)*-[a-z]*r[a-z]*\s+/\s*$`)},
	{label: "filesystem format", re: regexp.MustCompile(`(?i)\bmkfs(\.[a-z0-9]+)?\b`)},
	{label: "drive format", re: regexp.MustCompile(`(?i)(^|\s)format(\.com|\.exe)?\s+[a-z]:`)},
	{label: "raw disk copy", re: regexp.MustCompile(`(?i)\bdd\s+if=`)},
	{label: "system shutdown", re: regexp.MustCompile(`(?i)(^|[;&|]\s*)(sudo\s+)?(shutdown|reboot|poweroff|halt)\b`)},
	{label: "fork bomb", re: regexp.MustCompile(`:\(\)\s*\{\s*:\|:\s*&\s*\}\s*;?\s*:`)},
	{label: "write to block device", re: regexp.MustCompile(`(?i)>\s*/dev/(sd|hd|nvme|disk)`)},
}

var httpCommandPatterns = []commandPattern{
	{label: "curl request", re: regexp.MustCompile(`(?i)\bcurl\b[^|;&]*https?://`)},
	{label: "wget request", re: regexp.MustCompile(`(?i)\bwget\b[^|;&]*https?://`)},
	{label: "fetch request", re: regexp.MustCompile(`(?i)(^|\s)fetch\s+[^|;&]*https?://`)},
	{label: "powershell web cmdlet", re: regexp.MustCompile(`(?i)\b(invoke-webrequest|invoke-restmethod|iwr|irm)\b`)},
}

var installCommandPatterns = []commandPattern{
	{label: "npm install", re: regexp.MustCompile(`(?i)\bnpm\s+(install|i|ci|add)\b`)},
	{label: "pnpm install", re: regexp.MustCompile(`(?i)\bpnpm\s+(install|i|add)\b`)},
	{label: "yarn install", re: regexp.MustCompile(`(?i)\byarn\s+(install|add)\b`)},
	{label: "pip install", re: regexp.MustCompile(`(?i)\bpip3?\s+install\b`)},
	{label: "apt install", re: regexp.MustCompile(`(?i)\bapt(-get)?\s+install\b`)},
	{label: "brew install", re: regexp.MustCompile(`(?i)\bbrew\s+install\b`)},
	{label: "piped remote script", re: regexp.MustCompile(`(?i)\b(curl|wget)\b[^|]*\|\s*(ba|z)?sh\b`)},
}

// defaultSensitivePatterns are file patterns whose mutation always needs
// explicit approval. Matching follows matchSensitivePattern semantics.
var defaultSensitivePatterns = []string{
	".env",
	".env.*",
	".git/*",
	"*.pem",
	"*.key",
	"id_rsa*",
	"id_ed25519*",
	".ssh/*",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
}

func matchCommand(table []commandPattern, command string) (string, bool) {
	for _, p := range table {
		if p.re.MatchString(command) {
			return p.label, true
		}
	}
	return "", false
}

// matchSensitivePattern supports three pattern forms: an exact base name
// ("yarn.lock"), a base-name glob ("*.pem", ".env.*"), and a directory
// component ("dir/*" matches any path containing that directory).
func matchSensitivePattern(pattern, path string) bool {
	norm := filepath.ToSlash(path)
	base := filepath.Base(norm)

	if strings.HasSuffix(pattern, "/*") {
		dir := strings.TrimSuffix(pattern, "/*")
		for _, part := range strings.Split(norm, "/") {
			if part == dir {
				return true
			}
		}
		return false
	}

	if strings.ContainsAny(pattern, "*?") {
		ok, err := filepath.Match(pattern, base)
		return err == nil && ok
	}

	return base == pattern
}

func matchesAnySensitive(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchSensitivePattern(p, path) {
			return true
		}
	}
	return false
}
