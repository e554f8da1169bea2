package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmgr/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	page int
	yes  bool
}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "taskmgr rm [common flags] [--page <n>] [--yes] <ref>" }
func (c *RmCmd) NeedsAuth() bool    { return true }
func (c *RmCmd) NeedsBackend() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctrl := newController(env, 0)
	task, err := findTask(ctx, ctrl, c.page, ref)
	if err != nil {
		return report(errOut, err)
	}

	if !c.yes && !confirm(env, errOut, fmt.Sprintf("delete %q?", task.Title)) {
		fmt.Fprintln(errOut, "cancelled")
		return exitcode.UserError
	}

	r, err := ctrl.Delete(ctx, task.ID)
	if err != nil {
		return report(errOut, err)
	}
	if err := applyAndPrint(ctx, env, ctrl, r, out); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}

// confirm asks a yes/no question on w and reads the answer from env.
func confirm(env *Env, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	answer, err := env.ReadLine()
	if err != nil {
		fmt.Fprintln(w)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
