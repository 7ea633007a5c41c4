// Package pipeline composes named units of work into series and parallel
// steps, compiles them into a dependency graph and runs the graph stage by
// stage.
package pipeline

import (
	"context"
	"fmt"
)

// TaskFunc is the body of a single unit of work.
type TaskFunc func(ctx context.Context) error

// Step is a declarative piece of a pipeline: a single task, or a series or
// parallel composition of other steps.
type Step interface {
	// compile adds the step to g, wiring its entry points to deps, and
	// returns the node IDs the next step must wait on.
	compile(g *Graph, deps []string) []string
}

type funcStep struct {
	name string
	fn   TaskFunc
}

type seriesStep struct {
	steps []Step
}

type parallelStep struct {
	steps []Step
}

// Func wraps fn as a named step.
func Func(name string, fn TaskFunc) Step {
	return &funcStep{name: name, fn: fn}
}

// Series runs steps one after another; each waits for the previous one.
func Series(steps ...Step) Step {
	return &seriesStep{steps: steps}
}

// Parallel runs steps side by side; the step completes when all of them do.
func Parallel(steps ...Step) Step {
	return &parallelStep{steps: steps}
}

func (s *funcStep) compile(g *Graph, deps []string) []string {
	id := g.uniqueID(s.name)
	g.add(&Task{
		ID:        id,
		Name:      s.name,
		DependsOn: append([]string(nil), deps...),
		Run:       s.fn,
		Status:    TaskStatusPending,
	})
	return []string{id}
}

func (s *seriesStep) compile(g *Graph, deps []string) []string {
	current := deps
	for _, step := range s.steps {
		current = step.compile(g, current)
	}
	return current
}

func (s *parallelStep) compile(g *Graph, deps []string) []string {
	if len(s.steps) == 0 {
		return deps
	}
	var exits []string
	for _, step := range s.steps {
		exits = append(exits, step.compile(g, deps)...)
	}
	return exits
}

// Compile turns a step into a validated dependency graph.
func Compile(step Step) (*Graph, error) {
	if step == nil {
		return nil, fmt.Errorf("cannot compile a nil step")
	}
	g := newGraph()
	step.compile(g, nil)
	if err := g.ValidateDependencies(); err != nil {
		return nil, err
	}
	return g, nil
}
