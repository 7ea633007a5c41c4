package cmd

import (
	"fmt"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/assets"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/mattsolo1/grove-assets/pkg/state"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/spf13/cobra"
)

var (
	runSeries bool
	runFilter string
	runLog    = grovelogging.NewLogger("grove-assets.run")
)

func NewRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run asset pipeline tasks",
		Long: `Run one or more asset pipeline tasks.
Without arguments, runs the default task (watch).
Several tasks run side by side unless --series is given.

Examples:
  # Build everything once
  assets run build

  # Refresh vendor copies, then build
  assets run --series vendor build

  # Create visual regression references
  assets run vssetup

  # Test only the scenarios whose label matches
  assets run vstest --filter=Login`,
		RunE: runTasks,
	}
	runCmd.Flags().BoolVar(&runSeries, "series", false, "Run the named tasks one after another")
	runCmd.Flags().StringVar(&runFilter, "filter", "", "Scenario label filter for the visual regression tasks")
	return runCmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{assets.DefaultTask}
	}

	step, err := composeTasks(a.registry(), args, runSeries)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	name := strings.Join(args, ",")
	runErr := a.runner.Run(ctx, step)
	if err := state.RecordTask(name, runErr); err != nil {
		runLog.WithError(err).Warn("Failed to record task run")
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", name, runErr)
	}
	return nil
}

// composeTasks resolves task names into one step.
func composeTasks(r *assets.Registry, names []string, series bool) (pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(names))
	for _, name := range names {
		task, err := r.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w (see 'assets tasks')", err)
		}
		steps = append(steps, task.Step)
	}
	if len(steps) == 1 {
		return steps[0], nil
	}
	if series {
		return pipeline.Series(steps...), nil
	}
	return pipeline.Parallel(steps...), nil
}

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild assets as their sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, []string{"watch"})
		},
	}
}

func NewBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build every asset once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, []string{"build"})
		},
	}
}
