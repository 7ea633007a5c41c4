package pipeline

import (
	"strings"
	"testing"
)

func TestBuildGraph(t *testing.T) {
	graph, err := BuildGraph([]*Task{
		{ID: "task1"},
		{ID: "task2", DependsOn: []string{"task1"}},
		{ID: "task3", DependsOn: []string{"task1", "task2"}},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	if graph.Len() != 3 {
		t.Errorf("Expected 3 nodes, got %d", graph.Len())
	}
	if len(graph.edges["task3"]) != 2 {
		t.Errorf("Expected task3 to have 2 dependencies, got %d", len(graph.edges["task3"]))
	}
	task, ok := graph.Task("task2")
	if !ok || task.Status != TaskStatusPending {
		t.Errorf("Expected task2 to be pending, got %+v", task)
	}
}

func TestGraph_ValidateDependencies(t *testing.T) {
	tests := []struct {
		name      string
		tasks     []*Task
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid dependencies",
			tasks: []*Task{
				{ID: "task1"},
				{ID: "task2", DependsOn: []string{"task1"}},
			},
		},
		{
			name:      "missing dependency",
			tasks:     []*Task{{ID: "task1", DependsOn: []string{"task2"}}},
			wantError: true,
			errorMsg:  "unknown dependency",
		},
		{
			name:      "self dependency",
			tasks:     []*Task{{ID: "task1", DependsOn: []string{"task1"}}},
			wantError: true,
			errorMsg:  "depends on itself",
		},
		{
			name: "circular dependency",
			tasks: []*Task{
				{ID: "task1", DependsOn: []string{"task2"}},
				{ID: "task2", DependsOn: []string{"task1"}},
			},
			wantError: true,
			errorMsg:  "circular dependency",
		},
		{
			name:      "duplicate id",
			tasks:     []*Task{{ID: "task1"}, {ID: "task1"}},
			wantError: true,
			errorMsg:  "duplicate task ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph, err := BuildGraph(tt.tasks)
			if tt.wantError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if graph == nil {
				t.Errorf("Expected non-nil graph")
			}
		})
	}
}

func TestGraph_GetExecutionPlan(t *testing.T) {
	graph, err := BuildGraph([]*Task{
		{ID: "task1"},
		{ID: "task2"},
		{ID: "task3", DependsOn: []string{"task1"}},
		{ID: "task4", DependsOn: []string{"task2", "task3"}},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	plan, err := graph.GetExecutionPlan()
	if err != nil {
		t.Fatalf("Failed to get execution plan: %v", err)
	}

	want := [][]string{{"task1", "task2"}, {"task3"}, {"task4"}}
	if len(plan.Stages) != len(want) {
		t.Fatalf("Expected %d stages, got %d: %v", len(want), len(plan.Stages), plan.Stages)
	}
	for i := range want {
		if strings.Join(plan.Stages[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("Stage %d = %v, want %v", i, plan.Stages[i], want[i])
		}
	}
}

func TestGraph_ToMermaid(t *testing.T) {
	graph, err := BuildGraph([]*Task{
		{ID: "styles:lint-scss", Status: TaskStatusCompleted},
		{ID: "styles:build", DependsOn: []string{"styles:lint-scss"}},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	out := graph.ToMermaid()
	for _, want := range []string{
		"graph TD",
		`t0["styles:lint-scss"]:::completed`,
		`t1["styles:build"]:::pending`,
		"t0 --> t1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid output missing %q:\n%s", want, out)
		}
	}
}
