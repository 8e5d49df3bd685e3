package risk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const (
	defaultBulkChangeThreshold  = 5
	defaultLargeWriteThreshold  = 50_000
	argCommand                  = "command"
	argPath                     = "path"
	argContent                  = "content"
	untrustedInputMarker        = "[untrusted input]"
	summaryOutsideWorkdirFormat = "command references a path outside the working directory: %s"
)

// Context carries the per-turn facts risk analysis and approval resolution
// depend on. Identical inputs always yield identical outputs.
type Context struct {
	WorkingDirectory   string
	UserText           string
	InputTrustLevel    types.TrustLevel
	AlwaysApproveTools bool
}

type Analyzer struct {
	bulkThreshold  int
	largeThreshold int
	sensitive      []string
}

type AnalyzerOption func(*Analyzer)

func WithBulkChangeThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.bulkThreshold = n
		}
	}
}

func WithLargeWriteThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.largeThreshold = n
		}
	}
}

// WithSensitivePatterns appends extra sensitive file patterns to the built-in
// table.
func WithSensitivePatterns(patterns []string) AnalyzerOption {
	return func(a *Analyzer) {
		a.sensitive = append(a.sensitive, patterns...)
	}
}

func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		bulkThreshold:  defaultBulkChangeThreshold,
		largeThreshold: defaultLargeWriteThreshold,
		sensitive:      append([]string(nil), defaultSensitivePatterns...),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze classifies each pending call against the pattern tables and returns
// the deduplicated risk items plus the overall level. Shell commands
// short-circuit on the dangerous table; otherwise outside-workdir and HTTP
// checks precede the install table. File mutations check sensitive paths
// first, then batch bulk size, then single-write size.
func (a *Analyzer) Analyze(calls []types.ToolCall, ctx Context) types.RiskAnalysis {
	mutations := 0
	for _, call := range calls {
		if isFileMutation(call.Name) {
			mutations++
		}
	}

	var items []types.ApprovalRiskItem
	for _, call := range calls {
		switch {
		case call.Name == types.ToolCommandExecute:
			if item, ok := a.analyzeCommand(call, ctx.WorkingDirectory); ok {
				items = append(items, item)
			}
		case isFileMutation(call.Name):
			if item, ok := a.analyzeFileMutation(call, mutations); ok {
				items = append(items, item)
			}
		}
	}

	items = dedupeByCall(items)

	return types.RiskAnalysis{
		Items:     items,
		RiskLevel: overallLevel(items),
	}
}

func (a *Analyzer) analyzeCommand(call types.ToolCall, workdir string) (types.ApprovalRiskItem, bool) {
	command := strings.TrimSpace(call.StringArg(argCommand))
	if command == "" {
		return types.ApprovalRiskItem{}, false
	}

	if label, ok := matchCommand(dangerousCommandPatterns, command); ok {
		return riskItem(call, types.RiskDangerousCommand, types.SeverityHigh,
			fmt.Sprintf("dangerous command: %s", label), command, ""), true
	}

	if offending, ok := commandEscapesWorkdir(workdir, command); ok {
		return riskItem(call, types.RiskOutsideWorkdirCommand, types.SeverityHigh,
			fmt.Sprintf(summaryOutsideWorkdirFormat, offending), command, ""), true
	}

	if label, ok := matchCommand(httpCommandPatterns, command); ok {
		return riskItem(call, types.RiskHTTPRequestCommand, types.SeverityHigh,
			fmt.Sprintf("HTTP request from shell: %s", label), command, ""), true
	}

	if label, ok := matchCommand(installCommandPatterns, command); ok {
		return riskItem(call, types.RiskNetworkInstallCommand, types.SeverityMedium,
			fmt.Sprintf("network install: %s", label), command, ""), true
	}

	return types.ApprovalRiskItem{}, false
}

func (a *Analyzer) analyzeFileMutation(call types.ToolCall, batchMutations int) (types.ApprovalRiskItem, bool) {
	path := strings.TrimSpace(call.StringArg(argPath))

	if path != "" && matchesAnySensitive(a.sensitive, path) {
		return riskItem(call, types.RiskSensitiveFileChange, types.SeverityHigh,
			fmt.Sprintf("sensitive file change: %s", path), "", path), true
	}

	if batchMutations >= a.bulkThreshold {
		return riskItem(call, types.RiskBulkFileChange, types.SeverityMedium,
			fmt.Sprintf("bulk change: %d file mutations in one batch", batchMutations), "", path), true
	}

	if call.Name == types.ToolFileWrite {
		if n := len(call.StringArg(argContent)); n > a.largeThreshold {
			return riskItem(call, types.RiskLargeFileWrite, types.SeverityMedium,
				fmt.Sprintf("large write: %d characters to %s", n, path), "", path), true
		}
	}

	return types.ApprovalRiskItem{}, false
}

// commandEscapesWorkdir extracts absolute paths and cd targets from the
// command and reports the first one that resolves outside workdir. Bare "~",
// "/" and ".." targets are flagged outright.
func commandEscapesWorkdir(workdir, command string) (string, bool) {
	if strings.TrimSpace(workdir) == "" {
		return "", false
	}

	for _, candidate := range pathCandidates(command) {
		if candidate == "~" || candidate == "/" || candidate == ".." {
			return candidate, true
		}
		if strings.HasPrefix(candidate, "~") {
			return candidate, true
		}

		target := candidate
		if !filepath.IsAbs(target) {
			if !strings.Contains(target, "..") {
				continue
			}
			target = filepath.Join(workdir, target)
		}
		if escapesWorkDir(workdir, target) {
			return candidate, true
		}
	}

	return "", false
}

// pathCandidates returns absolute-path tokens plus every cd target, with
// quotes stripped. Flags and URLs are skipped. Tokenization is whitespace
// field splitting, so a quoted multi-word target (cd "two words") arrives as
// separate tokens and may be missed; precision here bounds false positives,
// not false negatives.
func pathCandidates(command string) []string {
	var out []string

	for _, segment := range splitCommandSegments(command) {
		fields := strings.Fields(segment)
		for i, field := range fields {
			token := strings.Trim(field, `"'`)
			if token == "" || strings.HasPrefix(token, "-") || strings.Contains(token, "://") {
				continue
			}

			isCdTarget := i > 0 && strings.Trim(fields[i-1], `"'`) == "cd"
			looksLikePath := filepath.IsAbs(token) ||
				strings.HasPrefix(token, "~") ||
				token == ".." ||
				strings.HasPrefix(token, "../") ||
				strings.Contains(token, "/../")

			if isCdTarget || looksLikePath {
				out = append(out, token)
			}
		}
	}

	return out
}

func splitCommandSegments(command string) []string {
	return strings.FieldsFunc(command, func(r rune) bool {
		return r == ';' || r == '|' || r == '&'
	})
}

func isFileMutation(name string) bool {
	switch name {
	case types.ToolFileWrite, types.ToolFileEdit, types.ToolFileDelete:
		return true
	}
	return false
}

func riskItem(call types.ToolCall, reason types.RiskReason, severity types.Severity, summary, command, path string) types.ApprovalRiskItem {
	return types.ApprovalRiskItem{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Reason:     reason,
		Summary:    summary,
		Severity:   severity,
		Command:    command,
		FilePath:   path,
	}
}

// dedupeByCall keeps one item per tool-call id, preferring the higher
// severity, preserving first-seen order.
func dedupeByCall(items []types.ApprovalRiskItem) []types.ApprovalRiskItem {
	if len(items) < 2 {
		return items
	}

	index := make(map[string]int, len(items))
	var out []types.ApprovalRiskItem
	for _, item := range items {
		at, seen := index[item.ToolCallID]
		if !seen {
			index[item.ToolCallID] = len(out)
			out = append(out, item)
			continue
		}
		if item.Severity.Rank() > out[at].Severity.Rank() {
			out[at] = item
		}
	}
	return out
}

func overallLevel(items []types.ApprovalRiskItem) types.Severity {
	level := types.SeverityLow
	for _, item := range items {
		if item.Severity.Rank() > level.Rank() {
			level = item.Severity
		}
	}
	return level
}

// escapesWorkDir returns true if path, when resolved relative to workdir, is outside workdir.
func escapesWorkDir(workdir, path string) bool {
	wd := filepath.Clean(workdir)

	var full string
	if filepath.IsAbs(path) {
		full = filepath.Clean(path)
	} else {
		full = filepath.Clean(filepath.Join(wd, path))
	}

	if full == wd {
		return false
	}
	prefix := wd + string(filepath.Separator)
	return !strings.HasPrefix(full, prefix)
}
