package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one node of a compiled pipeline.
type Task struct {
	ID        string
	Name      string
	DependsOn []string
	Run       TaskFunc
	Status    TaskStatus
}

// Graph represents the task dependency relationships.
type Graph struct {
	nodes map[string]*Task
	edges map[string][]string // task -> dependencies
	order []string            // insertion order, used to keep output stable
	names map[string]int
}

// ExecutionPlan contains stages of tasks that can run in parallel.
type ExecutionPlan struct {
	Stages [][]string // Each stage contains tasks that can run in parallel
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Task),
		edges: make(map[string][]string),
		names: make(map[string]int),
	}
}

// BuildGraph creates a dependency graph from explicit tasks.
func BuildGraph(tasks []*Task) (*Graph, error) {
	g := newGraph()
	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return nil, fmt.Errorf("duplicate task ID %q", task.ID)
		}
		if task.Status == "" {
			task.Status = TaskStatusPending
		}
		g.add(task)
	}
	if err := g.ValidateDependencies(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) add(task *Task) {
	g.nodes[task.ID] = task
	g.edges[task.ID] = task.DependsOn
	g.order = append(g.order, task.ID)
}

// uniqueID returns name, suffixed when the same step appears more than once.
func (g *Graph) uniqueID(name string) string {
	n := g.names[name]
	g.names[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, n+1)
}

// Task returns the node with the given ID.
func (g *Graph) Task(id string) (*Task, bool) {
	t, ok := g.nodes[id]
	return t, ok
}

// Tasks returns all nodes in insertion order.
func (g *Graph) Tasks() []*Task {
	tasks := make([]*Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id])
	}
	return tasks
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// GetExecutionPlan performs topological sort and groups tasks into parallel stages.
func (g *Graph) GetExecutionPlan() (*ExecutionPlan, error) {
	sorted, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}

	stages := [][]string{}
	processed := make(map[string]bool)

	for len(processed) < len(sorted) {
		stage := []string{}

		for _, id := range sorted {
			if processed[id] {
				continue
			}

			canRun := true
			for _, dep := range g.edges[id] {
				if !processed[dep] {
					canRun = false
					break
				}
			}
			if canRun {
				stage = append(stage, id)
			}
		}

		if len(stage) == 0 {
			return nil, fmt.Errorf("unable to create execution plan: circular dependency or invalid state")
		}

		stages = append(stages, stage)
		for _, id := range stage {
			processed[id] = true
		}
	}

	return &ExecutionPlan{Stages: stages}, nil
}

// ValidateDependencies checks for circular dependencies and missing references.
func (g *Graph) ValidateDependencies() error {
	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			if _, exists := g.nodes[dep]; !exists {
				return fmt.Errorf("unknown dependency '%s' in task '%s'", dep, id)
			}
			if dep == id {
				return fmt.Errorf("task '%s' depends on itself", id)
			}
		}
	}

	if cycle := g.DetectCycles(); len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " -> "))
	}
	return nil
}

// DetectCycles uses DFS to detect circular dependencies. It returns the first
// cycle found, or nil.
func (g *Graph) DetectCycles() []string {
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)
	path := []string{}

	var detect func(node string) []string
	detect = func(node string) []string {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, dep := range g.edges[node] {
			if !visited[dep] {
				if cycle := detect(dep); cycle != nil {
					return cycle
				}
			} else if recursionStack[dep] {
				for i, n := range path {
					if n == dep {
						cycle := append([]string{}, path[i:]...)
						return append(cycle, dep)
					}
				}
			}
		}

		recursionStack[node] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, node := range g.order {
		if !visited[node] {
			if cycle := detect(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topologicalSort orders tasks so dependencies come first. Ties keep
// insertion order.
func (g *Graph) topologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	temp := make(map[string]bool)
	result := []string{}

	var visit func(string) error
	visit = func(node string) error {
		if temp[node] {
			return fmt.Errorf("circular dependency detected involving task '%s'", node)
		}
		if visited[node] {
			return nil
		}

		temp[node] = true
		for _, dep := range g.edges[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		temp[node] = false
		visited[node] = true
		result = append(result, node)
		return nil
	}

	for _, node := range g.order {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ToMermaid generates a Mermaid diagram representation of the graph.
func (g *Graph) ToMermaid() string {
	var lines []string
	lines = append(lines, "graph TD")

	ids := make(map[string]string, len(g.order))
	for i, id := range g.order {
		ids[id] = fmt.Sprintf("t%d", i)
	}

	for _, id := range g.order {
		task := g.nodes[id]
		nodeStyle := ""
		switch task.Status {
		case TaskStatusCompleted:
			nodeStyle = ":::completed"
		case TaskStatusRunning:
			nodeStyle = ":::running"
		case TaskStatusFailed:
			nodeStyle = ":::failed"
		case TaskStatusPending:
			nodeStyle = ":::pending"
		}
		lines = append(lines, fmt.Sprintf("  %s[\"%s\"]%s", ids[id], id, nodeStyle))
	}

	var edges []string
	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			edges = append(edges, fmt.Sprintf("  %s --> %s", ids[dep], ids[id]))
		}
	}
	sort.Strings(edges)
	lines = append(lines, edges...)

	lines = append(lines, "  classDef completed fill:#90EE90,stroke:#333,stroke-width:2px;")
	lines = append(lines, "  classDef running fill:#87CEEB,stroke:#333,stroke-width:2px;")
	lines = append(lines, "  classDef failed fill:#FFB6C1,stroke:#333,stroke-width:2px;")
	lines = append(lines, "  classDef pending fill:#FFF,stroke:#333,stroke-width:2px;")

	return strings.Join(lines, "\n")
}
