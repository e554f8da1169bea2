package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmgr/internal/exitcode"
	"taskmgr/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskmgr` (no args) and `taskmgr list`.
type ListCmd struct {
	page int
	size int
	all  bool
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "taskmgr list [common flags] [--page <n>] [--size <n>] [--all]" }
func (c *ListCmd) NeedsAuth() bool    { return true }
func (c *ListCmd) NeedsBackend() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.size, "size", 0, "")
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}
	if c.size < 0 {
		fmt.Fprintf(errOut, "error: invalid page size: %d\n", c.size)
		return exitcode.UserError
	}

	ctrl := newController(env, c.size)

	if c.all {
		tasks, err := ctrl.All(ctx)
		if err != nil {
			return report(errOut, err)
		}
		if len(tasks) == 0 && env.Config.Quiet {
			return exitcode.Success
		}
		output.FormatTasks(out, tasks)
		return exitcode.Success
	}

	page, err := ctrl.Goto(ctx, c.page-1)
	if err != nil {
		return report(errOut, err)
	}
	if page.TotalElements == 0 && env.Config.Quiet {
		return exitcode.Success
	}
	output.FormatPage(out, page)
	return exitcode.Success
}
