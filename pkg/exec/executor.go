package exec

import (
	"context"
	"io"
)

// StreamOptions controls where a streamed command writes and what extra
// environment it sees.
type StreamOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Env    []string
}

// CommandExecutor defines an interface for running external commands.
// This abstraction allows for easier testing by providing a mockable interface.
type CommandExecutor interface {
	// LookPath searches for an executable named file in the directories
	// named by the PATH environment variable.
	LookPath(file string) (string, error)

	// Execute runs the command with the given name and arguments.
	// It waits for the command to complete and returns any error.
	Execute(name string, arg ...string) error

	// Output runs the command and returns its standard output.
	Output(name string, arg ...string) (string, error)

	// Stream runs the command with its output attached to opts writers.
	Stream(ctx context.Context, opts StreamOptions, name string, arg ...string) error
}
