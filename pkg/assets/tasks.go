package assets

import (
	"context"
	"fmt"
	"sort"

	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/mattsolo1/grove-assets/pkg/visual"
)

// DefaultTask runs when no task is named.
const DefaultTask = "watch"

// VisualRunner runs one visual regression command.
type VisualRunner interface {
	Run(ctx context.Context, command visual.Command, filter string) error
}

// Task is a named, runnable pipeline entry point.
type Task struct {
	Name        string
	Description string
	Step        pipeline.Step
}

// Registry holds the tasks available on the command line.
type Registry struct {
	tasks map[string]Task
}

// Get looks up a task by name.
func (r *Registry) Get(name string) (Task, error) {
	task, ok := r.tasks[name]
	if !ok {
		return Task{}, fmt.Errorf("unknown task %q", name)
	}
	return task, nil
}

// Names returns the task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns every task in name order.
func (r *Registry) Tasks() []Task {
	names := r.Names()
	tasks := make([]Task, len(names))
	for i, name := range names {
		tasks[i] = r.tasks[name]
	}
	return tasks
}

func (r *Registry) add(name, description string, step pipeline.Step) {
	r.tasks[name] = Task{Name: name, Description: description, Step: step}
}

// Clean removes every generated output. Styles and scripts keep their
// vendor copies; the vendor clean removes those.
func (b *Builder) Clean() pipeline.Step {
	return pipeline.Parallel(
		b.CleanFonts(),
		b.CleanImages(),
		b.CleanIcons(),
		b.CleanStyles(),
		b.CleanScripts(),
		b.CleanVendor(),
	)
}

// Build produces every asset.
func (b *Builder) Build() pipeline.Step {
	return pipeline.Parallel(b.Fonts(), b.Icons(), b.Images(), b.Styles(), b.Scripts())
}

// Fix runs every linter with --fix.
func (b *Builder) Fix() pipeline.Step {
	return pipeline.Series(b.LintScss(), b.LintCSS(), b.LintJS())
}

// Registry builds the task table. runner re-runs steps for the watch task
// and vr runs the visual regression tasks with filter; a nil vr leaves them
// out.
func (b *Builder) Registry(runner StepRunner, vr VisualRunner, filter string) *Registry {
	r := &Registry{tasks: make(map[string]Task)}
	r.add("fonts", "Copy font files", b.Fonts())
	r.add("images", "Optimize images", b.Images())
	r.add("icons", "Optimize icons and generate color variants", b.Icons())
	r.add("styles", "Lint and compile stylesheets", b.Styles())
	r.add("scripts", "Lint, transpile and minify scripts", b.Scripts())
	r.add("vendor", "Copy vendor dist files from node_modules", b.Vendor())
	r.add("build", "Build every asset", b.Build())
	r.add("clean", "Remove generated assets", b.Clean())
	r.add("fix", "Run every linter with --fix", b.Fix())
	r.add("watch", "Rebuild assets as their sources change", pipeline.Func("watch", func(ctx context.Context) error {
		return b.Watch(ctx, runner)
	}))

	if vr != nil {
		for _, mode := range []struct {
			name        string
			command     visual.Command
			description string
		}{
			{"vssetup", visual.CommandReference, "Create visual regression reference screenshots"},
			{"vstest", visual.CommandTest, "Compare the site against the reference screenshots"},
			{"vsok", visual.CommandApprove, "Approve the last test screenshots as reference"},
			{"vsreport", visual.CommandOpenReport, "Open the last visual regression report"},
		} {
			command := mode.command
			r.add(mode.name, mode.description, pipeline.Func(mode.name, func(ctx context.Context) error {
				return vr.Run(ctx, command, filter)
			}))
		}
	}
	return r
}
