package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TaskError reports the task that aborted a pipeline run.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task '%s' failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Runner executes compiled graphs one stage at a time, running the tasks of
// a stage concurrently up to a fixed limit.
type Runner struct {
	limit int
	log   *logrus.Entry
	mu    sync.Mutex
}

// NewRunner creates a runner that runs at most limit tasks at once.
func NewRunner(limit int) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{
		limit: limit,
		log:   grovelogging.NewLogger("grove-assets.pipeline"),
	}
}

// Run compiles step and executes it.
func (r *Runner) Run(ctx context.Context, step Step) error {
	g, err := Compile(step)
	if err != nil {
		return fmt.Errorf("compile pipeline: %w", err)
	}
	return r.RunGraph(ctx, g)
}

// RunGraph executes every task of g. The first failing task cancels the rest
// of its stage and no later stage starts.
func (r *Runner) RunGraph(ctx context.Context, g *Graph) error {
	plan, err := g.GetExecutionPlan()
	if err != nil {
		return err
	}

	for i, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.log.WithFields(logrus.Fields{
			"stage": i + 1,
			"tasks": stage,
		}).Debug("Starting stage")

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(r.limit)
		for _, id := range stage {
			task := g.nodes[id]
			eg.Go(func() error {
				return r.runTask(egCtx, task)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runTask(ctx context.Context, task *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.setStatus(task, TaskStatusRunning)
	if task.Run == nil {
		r.setStatus(task, TaskStatusCompleted)
		return nil
	}

	start := time.Now()
	r.log.WithField("task", task.ID).Info("Starting task")

	if err := task.Run(ctx); err != nil {
		r.setStatus(task, TaskStatusFailed)
		r.log.WithFields(logrus.Fields{
			"task":        task.ID,
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("Task failed")
		return &TaskError{Task: task.ID, Err: err}
	}

	r.setStatus(task, TaskStatusCompleted)
	r.log.WithFields(logrus.Fields{
		"task":        task.ID,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Finished task")
	return nil
}

func (r *Runner) setStatus(task *Task, status TaskStatus) {
	r.mu.Lock()
	task.Status = status
	r.mu.Unlock()
}
