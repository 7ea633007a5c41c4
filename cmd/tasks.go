package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattsolo1/grove-assets/pkg/assets"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/mattsolo1/grove-core/cli"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// taskInfo is the listing entry for one task.
type taskInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
	Stages      int    `json:"stages"`
	Default     bool   `json:"default,omitempty"`
}

func NewTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the available pipeline tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			infos, err := describeTasks(a.registry())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(infos)
			}
			return printTasks(os.Stdout, infos)
		},
	}
}

func describeTasks(r *assets.Registry) ([]taskInfo, error) {
	var infos []taskInfo
	for _, task := range r.Tasks() {
		g, err := pipeline.Compile(task.Step)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.Name, err)
		}
		plan, err := g.GetExecutionPlan()
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.Name, err)
		}
		infos = append(infos, taskInfo{
			Name:        task.Name,
			Description: task.Description,
			Steps:       g.Len(),
			Stages:      len(plan.Stages),
			Default:     task.Name == assets.DefaultTask,
		})
	}
	return infos, nil
}

func printTasks(w io.Writer, infos []taskInfo) error {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if info.Default {
			name = defaultStyle.Render(name + " (default)")
		}
		rows = append(rows, []string{name, info.Description, fmt.Sprintf("%d", info.Steps), fmt.Sprintf("%d", info.Stages)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("TASK", "DESCRIPTION", "STEPS", "STAGES").
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func NewGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <task>",
		Short: "Print the execution graph of a task as a Mermaid diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			task, err := a.registry().Get(args[0])
			if err != nil {
				return err
			}
			g, err := pipeline.Compile(task.Step)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, g.ToMermaid())
			return nil
		},
	}
}
