package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

//go:generate mockgen -destination=shellmocks_test.go -package=tools_test github.com/jhl-labs/sepilot-desktop-sub001/tools Shell
type Shell interface {
	Run(ctx context.Context, workDir string, command string) (Result, error)
}

// ExecShellRunner runs one command string through the system shell. A
// non-zero exit is reported in the Result, not as an error.
type ExecShellRunner struct{}

func NewExecShellRunner() *ExecShellRunner {
	return &ExecShellRunner{}
}

func (r *ExecShellRunner) Run(ctx context.Context, workDir string, command string) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = workDir

	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err := cmd.Run()

	exit := 0
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exit = ee.ExitCode()
		} else {
			return Result{
				Stdout:   outb.String(),
				Stderr:   errb.String(),
				Duration: time.Since(start),
			}, err
		}
	}

	return Result{
		Stdout:   outb.String(),
		Stderr:   errb.String(),
		ExitCode: exit,
		Duration: time.Since(start),
	}, nil
}
