package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattsolo1/grove-assets/pkg/visual"
	"gopkg.in/yaml.v3"
)

// State is the locally persisted record of past runs.
type State struct {
	LastVisualRun *VisualRun `yaml:"last_visual_run,omitempty"`
	LastTask      *TaskRun   `yaml:"last_task,omitempty"`
}

// VisualRun summarizes the most recent visual regression run.
type VisualRun struct {
	RunID      string    `yaml:"run_id"`
	Command    string    `yaml:"command"`
	Group      string    `yaml:"group"`
	User       string    `yaml:"user"`
	Success    bool      `yaml:"success"`
	Error      string    `yaml:"error,omitempty"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// TaskRun summarizes the most recent pipeline task run.
type TaskRun struct {
	Name       string    `yaml:"name"`
	Success    bool      `yaml:"success"`
	Error      string    `yaml:"error,omitempty"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// stateFilePath returns the path to the state file.
func stateFilePath() (string, error) {
	// Find the git root directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}

	// Walk up the directory tree looking for .git
	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			return filepath.Join(dir, ".grove", "assets-state.yml"), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root without finding .git
			return filepath.Join(cwd, ".grove", "assets-state.yml"), nil
		}
		dir = parent
	}
}

// LoadState loads the state from the state file.
func LoadState() (*State, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty state if file doesn't exist
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	return &state, nil
}

// SaveState saves the state to the state file.
func SaveState(state *State) error {
	path, err := stateFilePath()
	if err != nil {
		return err
	}

	// Ensure .grove directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// update loads the state, applies fn and saves the result.
func update(fn func(*State)) error {
	state, err := LoadState()
	if err != nil {
		return err
	}
	fn(state)
	return SaveState(state)
}

// GetLastVisualRun returns the last recorded visual run, or nil.
func GetLastVisualRun() (*VisualRun, error) {
	state, err := LoadState()
	if err != nil {
		return nil, err
	}
	return state.LastVisualRun, nil
}

// RecordTask stores the outcome of a pipeline task run.
func RecordTask(name string, runErr error) error {
	run := &TaskRun{Name: name, Success: runErr == nil, FinishedAt: time.Now()}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return update(func(s *State) { s.LastTask = run })
}

// VisualRecorder persists visual run outcomes in the state file.
type VisualRecorder struct{}

// Record implements visual.Recorder.
func (VisualRecorder) Record(o visual.Outcome) error {
	run := &VisualRun{
		RunID:      o.RunID,
		Command:    string(o.Command),
		Group:      o.Group,
		User:       o.User,
		Success:    o.Success,
		FinishedAt: o.FinishedAt,
	}
	if o.Err != nil {
		run.Error = o.Err.Error()
	}
	return update(func(s *State) { s.LastVisualRun = run })
}
