package commands

import (
	"context"
	"fmt"
	"io"

	"taskmgr/internal/config"
	"taskmgr/internal/output"
	"taskmgr/internal/service"
	"taskmgr/internal/tasklist"
)

// newController returns a task list controller for env. A size of 0 uses
// the configured page size.
func newController(env *Env, size int) *tasklist.Controller {
	if size <= 0 {
		size = env.Config.PageSize
	}
	if size <= 0 {
		size = config.DefaultPageSize
	}
	return tasklist.New(env.Service, env.Sessions, size, tasklist.WithLogger(env.Logger))
}

// findTask loads 1-based page and returns the task at ref on it.
func findTask(ctx context.Context, ctrl *tasklist.Controller, page int, ref TaskRef) (service.Task, error) {
	if page < 1 {
		return service.Task{}, fmt.Errorf("invalid page number: %d", page)
	}
	if _, err := ctrl.Goto(ctx, page-1); err != nil {
		return service.Task{}, err
	}
	task, err := ctrl.Lookup(ref.Pos)
	if err != nil {
		return service.Task{}, fmt.Errorf("task number out of range: %d", ref.Pos)
	}
	return task, nil
}

// applyAndPrint re-queries the page named by r and prints it unless quiet.
func applyAndPrint(ctx context.Context, env *Env, ctrl *tasklist.Controller, r tasklist.Refresh, out io.Writer) error {
	page, err := ctrl.Apply(ctx, r)
	if err != nil {
		return err
	}
	if !env.Config.Quiet {
		output.FormatPage(out, page)
	}
	return nil
}
