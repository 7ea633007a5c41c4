package visual

import (
	"context"
	"fmt"
	"io"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
)

// Command is a BackstopJS run mode.
type Command string

const (
	CommandReference  Command = "reference"
	CommandTest       Command = "test"
	CommandApprove    Command = "approve"
	CommandOpenReport Command = "openReport"
)

// ParseCommand accepts a run mode keyword; "report" is an alias of openReport.
func ParseCommand(s string) (Command, error) {
	switch s {
	case string(CommandReference):
		return CommandReference, nil
	case string(CommandTest):
		return CommandTest, nil
	case string(CommandApprove):
		return CommandApprove, nil
	case string(CommandOpenReport), "report":
		return CommandOpenReport, nil
	}
	return "", fmt.Errorf("unknown backstop command %q", s)
}

// Engine runs the screenshot diff tool.
type Engine interface {
	Run(ctx context.Context, command Command, configPath, filter string) error
}

// BackstopEngine invokes the BackstopJS CLI.
type BackstopEngine struct {
	exec   exec.CommandExecutor
	argv   config.Command
	stdout io.Writer
	stderr io.Writer
}

// NewBackstopEngine creates an engine that runs argv with the command
// appended, streaming its output to stdout and stderr.
func NewBackstopEngine(executor exec.CommandExecutor, argv config.Command, stdout, stderr io.Writer) *BackstopEngine {
	return &BackstopEngine{exec: executor, argv: argv, stdout: stdout, stderr: stderr}
}

// Run implements Engine.
func (e *BackstopEngine) Run(ctx context.Context, command Command, configPath, filter string) error {
	name, args, err := e.argv.Expand(nil, nil)
	if err != nil {
		return fmt.Errorf("backstop command: %w", err)
	}
	args = append(args, string(command), "--config="+configPath)
	if filter != "" {
		args = append(args, "--filter="+filter)
	}
	return e.exec.Stream(ctx, exec.StreamOptions{Stdout: e.stdout, Stderr: e.stderr}, name, args...)
}
