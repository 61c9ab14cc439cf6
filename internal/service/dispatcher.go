package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one remote call of a batch.
type Task struct {
	Kind   string
	Action string
	ID     string
	Run    func(ctx context.Context) error
}

// Dispatcher runs batches of independent tasks. With a limit of 1 the tasks
// run strictly in order; a failed task never stops the others.
type Dispatcher struct {
	limit int
}

// NewDispatcher creates a dispatcher running at most limit tasks at once.
func NewDispatcher(limit int) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{limit: limit}
}

// Limit returns the configured concurrency.
func (d *Dispatcher) Limit() int {
	return d.limit
}

// Run executes every task and returns one error slot per task, in task order.
func (d *Dispatcher) Run(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	if d.limit == 1 || len(tasks) < 2 {
		for i, task := range tasks {
			errs[i] = runTask(ctx, task)
		}
		return errs
	}

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, task := range tasks {
		i, task := i, task // per-iteration copy (go1.21 loop semantics)
		g.Go(func() error {
			errs[i] = runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func runTask(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return task.Run(ctx)
}
