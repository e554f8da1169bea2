package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmgr/internal/exitcode"
	"taskmgr/internal/output"
	"taskmgr/internal/service"
)

func init() {
	Register(&StatusCmd{})
	Register(&DoneCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct {
	page int
}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return nil }
func (c *StatusCmd) Synopsis() string   { return "Change the status of a task" }
func (c *StatusCmd) Usage() string      { return "taskmgr status [common flags] [--page <n>] <ref> <status>" }
func (c *StatusCmd) NeedsAuth() bool    { return true }
func (c *StatusCmd) NeedsBackend() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
}

func (c *StatusCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintf(errOut, "error: status required (one of %s)\n", output.FormatStatuses())
		return exitcode.UserError
	}
	status, err := service.ParseStatus(args[1])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v (want one of %s)\n", err, output.FormatStatuses())
		return exitcode.UserError
	}
	return runSetStatus(ctx, env, c.page, args[:1], status, out, errOut)
}

// DoneCmd implements the done command.
type DoneCmd struct {
	page int
}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return nil }
func (c *DoneCmd) Synopsis() string   { return "Mark a task done" }
func (c *DoneCmd) Usage() string      { return "taskmgr done [common flags] [--page <n>] <ref>" }
func (c *DoneCmd) NeedsAuth() bool    { return true }
func (c *DoneCmd) NeedsBackend() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runSetStatus(ctx, env, c.page, args, service.StatusDone, out, errOut)
}

// runSetStatus is the shared implementation for status and done commands.
func runSetStatus(ctx context.Context, env *Env, page int, args []string, status service.Status, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctrl := newController(env, 0)
	task, err := findTask(ctx, ctrl, page, ref)
	if err != nil {
		return report(errOut, err)
	}

	r, err := ctrl.UpdateStatus(ctx, task.ID, status)
	if err != nil {
		return report(errOut, err)
	}
	if err := applyAndPrint(ctx, env, ctrl, r, out); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}
