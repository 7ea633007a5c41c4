package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecError wraps an execution error with the command output
type ExecError struct {
	Command string
	Err     error
	Output  string
}

func (e *ExecError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Output)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// RealCommandExecutor implements CommandExecutor using the actual os/exec package.
// This is the production implementation that executes real system commands.
type RealCommandExecutor struct{}

// LookPath searches for an executable named file in the directories
// named by the PATH environment variable.
func (e *RealCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Execute runs the command with the given name and arguments.
// It waits for the command to complete and returns any error.
func (e *RealCommandExecutor) Execute(name string, arg ...string) error {
	cmd := exec.Command(name, arg...)
	// Capture stderr to include in error messages
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ExecError{
			Command: cmd.String(),
			Err:     err,
			Output:  string(output),
		}
	}
	return nil
}

// Output runs the command and returns what it wrote to stdout. Stderr is only
// surfaced on failure.
func (e *RealCommandExecutor) Output(name string, arg ...string) (string, error) {
	cmd := exec.Command(name, arg...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &ExecError{
			Command: cmd.String(),
			Err:     err,
			Output:  stderr.String(),
		}
	}
	return string(out), nil
}

// Stream runs the command and copies its output to the configured writers as
// it is produced.
func (e *RealCommandExecutor) Stream(ctx context.Context, opts StreamOptions, name string, arg ...string) error {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		return &ExecError{
			Command: cmd.String(),
			Err:     fmt.Errorf("exit code %d: %w", exitCode, err),
		}
	}
	return nil
}
