package exec

import (
	"context"
	"strings"
	"sync"
)

// MockCommandExecutor is a mock implementation of CommandExecutor for testing.
// It records all commands that would be executed without actually running them.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Commands records all commands that were executed
	Commands []string

	// LookPathFunc allows custom behavior for LookPath in tests
	LookPathFunc func(file string) (string, error)

	// ExecuteFunc allows custom behavior for Execute in tests
	ExecuteFunc func(name string, arg ...string) error

	// OutputFunc allows custom behavior for Output in tests
	OutputFunc func(name string, arg ...string) (string, error)

	// StreamFunc allows custom behavior for Stream in tests
	StreamFunc func(ctx context.Context, opts StreamOptions, name string, arg ...string) error
}

// LookPath implements the CommandExecutor interface for testing.
func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	// By default, assume commands exist
	return "/path/to/" + file, nil
}

// Execute implements the CommandExecutor interface for testing.
// It records the command that would be executed.
func (m *MockCommandExecutor) Execute(name string, arg ...string) error {
	m.record(name, arg)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(name, arg...)
	}
	return nil
}

// Output implements the CommandExecutor interface for testing.
func (m *MockCommandExecutor) Output(name string, arg ...string) (string, error) {
	m.record(name, arg)
	if m.OutputFunc != nil {
		return m.OutputFunc(name, arg...)
	}
	return "", nil
}

// Stream implements the CommandExecutor interface for testing.
func (m *MockCommandExecutor) Stream(ctx context.Context, opts StreamOptions, name string, arg ...string) error {
	m.record(name, arg)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, opts, name, arg...)
	}
	return nil
}

// Recorded returns a copy of the recorded command lines.
func (m *MockCommandExecutor) Recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Commands))
	copy(out, m.Commands)
	return out
}

func (m *MockCommandExecutor) record(name string, arg []string) {
	cmdStr := name
	if len(arg) > 0 {
		cmdStr = name + " " + strings.Join(arg, " ")
	}
	m.mu.Lock()
	m.Commands = append(m.Commands, cmdStr)
	m.mu.Unlock()
}
