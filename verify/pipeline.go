package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
)

const (
	CheckTypeCheck       = "type-check"
	CheckLint            = "lint"
	CheckTestBackend     = "test:backend"
	CheckScriptExecution = "script-execution"

	DefaultLintFileLimit = 10

	detailsMaxChars = 1200
)

// checkFailurePatterns decide pass/fail per check from command output. The
// match is a text heuristic, a known precision limit.
var checkFailurePatterns = map[string][]*regexp.Regexp{
	CheckTypeCheck: {
		regexp.MustCompile(`error TS\d+`),
	},
	CheckLint: {
		regexp.MustCompile(`(?m)^\s*\d+:\d+\s+error\s`),
		regexp.MustCompile(`\([1-9]\d* errors?[,)]`),
	},
	CheckTestBackend: {
		regexp.MustCompile(`(?m)^\s*FAIL\b`),
		regexp.MustCompile(`[1-9]\d* failed`),
	},
}

var typescriptExts = map[string]bool{".ts": true, ".tsx": true}

var lintableExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

var scriptExts = map[string]bool{".py": true, ".sh": true, ".bash": true}

// DefaultBackendTestDirs are the path components that mark a modified file
// as backend-relevant for the focused test gate.
var DefaultBackendTestDirs = []string{"src/main", "electron", "server"}

type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Command string `json:"command,omitempty"`
}

type Report struct {
	Checks           []CheckResult `json:"checks"`
	AllPassed        bool          `json:"all_passed"`
	Skipped          bool          `json:"skipped"`
	ExecutedCommands []string      `json:"executed_commands,omitempty"`
}

// FailedChecks lists the names of failed checks, in check order.
func (r Report) FailedChecks() []string {
	var out []string
	for _, check := range r.Checks {
		if !check.Passed {
			out = append(out, check.Name)
		}
	}
	return out
}

// ScriptNotExecuted reports whether the run failed solely because generated
// scripts were never run. Drives the rollback carve-out.
func (r Report) ScriptNotExecuted() bool {
	failed := r.FailedChecks()
	return len(failed) == 1 && failed[0] == CheckScriptExecution
}

// CommandRunner runs one shell command in the workdir; satisfied by
// tools.ExecShellRunner.
//
//go:generate mockgen -destination=runnermocks_test.go -package=verify_test github.com/jhl-labs/sepilot-desktop-sub001/verify CommandRunner
type CommandRunner interface {
	Run(ctx context.Context, workDir string, command string) (tools.Result, error)
}

// Pipeline runs the project's own checks against the files an agent run
// modified. Checks are conditional: each one runs only when the project
// declares the script and the modified set makes it relevant.
type Pipeline struct {
	runner CommandRunner
	debug  *zap.SugaredLogger

	lintFileLimit int
	backendDirs   []string
}

type PipelineOption func(*Pipeline)

func WithLintFileLimit(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.lintFileLimit = n
		}
	}
}

func WithBackendTestDirs(dirs []string) PipelineOption {
	return func(p *Pipeline) {
		if len(dirs) > 0 {
			p.backendDirs = dirs
		}
	}
}

func WithPipelineDebugLogger(l *zap.SugaredLogger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.debug = l
		}
	}
}

func NewPipeline(runner CommandRunner, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		runner:        runner,
		debug:         zap.NewNop().Sugar(),
		lintFileLimit: DefaultLintFileLimit,
		backendDirs:   DefaultBackendTestDirs,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run verifies the modified set. An empty set skips verification entirely.
// executedCommands are the shell commands the run has already issued, used
// by the script-execution check.
func (p *Pipeline) Run(ctx context.Context, workdir string, modified []string, executedCommands []string) Report {
	if len(modified) == 0 {
		return Report{AllPassed: true, Skipped: true}
	}

	runner := DetectRunner(workdir)
	scripts := readScripts(workdir)
	report := Report{AllPassed: true}

	if _, ok := scripts[CheckTypeCheck]; ok && anyWithExt(modified, typescriptExts) {
		command := fmt.Sprintf("%s run %s", runner, CheckTypeCheck)
		report.append(p.runCheck(ctx, workdir, CheckTypeCheck, command))
	}

	if _, ok := scripts[CheckLint]; ok {
		if files := relWithExt(workdir, modified, lintableExts, p.lintFileLimit); len(files) > 0 {
			command := fmt.Sprintf("%s run %s -- %s", runner, CheckLint, strings.Join(files, " "))
			report.append(p.runCheck(ctx, workdir, CheckLint, command))
		}
	}

	if _, ok := scripts[CheckTestBackend]; ok && p.anyBackendPath(workdir, modified) {
		command := fmt.Sprintf("%s run %s", runner, CheckTestBackend)
		report.append(p.runCheck(ctx, workdir, CheckTestBackend, command))
	}

	if result, relevant := scriptExecutionCheck(modified, executedCommands); relevant {
		report.append(result)
	}

	return report
}

func (r *Report) append(check CheckResult) {
	r.Checks = append(r.Checks, check)
	if check.Command != "" {
		r.ExecutedCommands = append(r.ExecutedCommands, check.Command)
	}
	if !check.Passed {
		r.AllPassed = false
	}
}

func (p *Pipeline) runCheck(ctx context.Context, workdir, name, command string) CheckResult {
	p.debug.Debugf("verification check %s: %s", name, command)

	res, err := p.runner.Run(ctx, workdir, command)
	if err != nil {
		return CheckResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("%s could not run: %v", name, err),
			Command: command,
		}
	}

	output := res.Stdout + "\n" + res.Stderr
	for _, re := range checkFailurePatterns[name] {
		if re.MatchString(output) {
			return CheckResult{
				Name:    name,
				Passed:  false,
				Message: name + " failed",
				Details: limitDetails(output),
				Command: command,
			}
		}
	}

	return CheckResult{
		Name:    name,
		Passed:  true,
		Message: name + " passed",
		Command: command,
	}
}

// scriptExecutionCheck fails when a modified script was never run by any
// executed command, so generated scripts do not silently rot.
func scriptExecutionCheck(modified []string, executedCommands []string) (CheckResult, bool) {
	var pending []string
	for _, path := range modified {
		if !scriptExts[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		base := filepath.Base(path)
		executed := false
		for _, command := range executedCommands {
			if strings.Contains(command, base) {
				executed = true
				break
			}
		}
		if !executed {
			pending = append(pending, base)
		}
	}

	if len(pending) == 0 {
		return CheckResult{}, false
	}

	return CheckResult{
		Name:    CheckScriptExecution,
		Passed:  false,
		Message: "script written but not executed: " + strings.Join(pending, ", "),
	}, true
}

func (p *Pipeline) anyBackendPath(workdir string, modified []string) bool {
	for _, path := range modified {
		rel := relOrSelf(workdir, path)
		for _, dir := range p.backendDirs {
			if strings.HasPrefix(rel, dir+"/") || strings.Contains(rel, "/"+dir+"/") {
				return true
			}
		}
	}
	return false
}

func anyWithExt(paths []string, exts map[string]bool) bool {
	for _, path := range paths {
		if exts[strings.ToLower(filepath.Ext(path))] {
			return true
		}
	}
	return false
}

func relWithExt(workdir string, paths []string, exts map[string]bool, limit int) []string {
	var out []string
	for _, path := range paths {
		if len(out) >= limit {
			break
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			out = append(out, relOrSelf(workdir, path))
		}
	}
	return out
}

func relOrSelf(workdir, path string) string {
	rel, err := filepath.Rel(workdir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func limitDetails(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= detailsMaxChars {
		return s
	}
	return s[:detailsMaxChars] + "\n…(truncated)\n"
}
