package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taskmgr/internal/exitcode"
	"taskmgr/internal/output"
	"taskmgr/internal/service"
	"taskmgr/internal/tasklist"
)

func init() {
	Register(&BrowseCmd{})
}

// BrowseCmd pages through tasks interactively, reading one action per line.
type BrowseCmd struct {
	page int
}

func (c *BrowseCmd) Name() string       { return "browse" }
func (c *BrowseCmd) Aliases() []string  { return nil }
func (c *BrowseCmd) Synopsis() string   { return "Page through tasks interactively" }
func (c *BrowseCmd) Usage() string      { return "taskmgr browse [common flags] [--page <n>]" }
func (c *BrowseCmd) NeedsAuth() bool    { return true }
func (c *BrowseCmd) NeedsBackend() bool { return true }

func (c *BrowseCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
}

const browseHelp = `  n               next page
  p               previous page
  r               reload page
  g <page>        go to page
  add <title...>  create a task
  status <ref> <status>
  done <ref>      mark a task done
  rm <ref>        delete a task
  q               quit
`

func (c *BrowseCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}

	b := &browser{env: env, ctrl: newController(env, 0), out: out, errOut: errOut}
	if err := b.show(b.ctrl.Goto(ctx, c.page-1)); err != nil {
		if errors.Is(err, tasklist.ErrSessionExpired) || errors.Is(err, tasklist.ErrNotLoggedIn) {
			return report(errOut, err)
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
	}

	for {
		fmt.Fprint(errOut, "> ")
		line, err := env.ReadLine()
		if err != nil {
			fmt.Fprintln(errOut)
			return exitcode.Success
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "q" || fields[0] == "quit" {
			return exitcode.Success
		}
		if err := b.do(ctx, fields[0], fields[1:]); err != nil {
			if errors.Is(err, tasklist.ErrSessionExpired) || errors.Is(err, tasklist.ErrNotLoggedIn) {
				return report(errOut, err)
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
}

var errNothingLoaded = errors.New("no page loaded (r to retry)")

// browser holds the controller across input lines.
type browser struct {
	env    *Env
	ctrl   *tasklist.Controller
	out    io.Writer
	errOut io.Writer
}

func (b *browser) do(ctx context.Context, action string, args []string) error {
	switch action {
	case "n", "next":
		if !b.ctrl.Loaded() {
			return errNothingLoaded
		}
		r, ok := b.ctrl.Next()
		if !ok {
			return errors.New("already on the last page")
		}
		return b.show(b.ctrl.Apply(ctx, r))
	case "p", "prev", "previous":
		if !b.ctrl.Loaded() {
			return errNothingLoaded
		}
		r, ok := b.ctrl.Previous()
		if !ok {
			return errors.New("already on the first page")
		}
		return b.show(b.ctrl.Apply(ctx, r))
	case "r", "reload":
		return b.show(b.ctrl.Load(ctx))
	case "g", "goto":
		if len(args) != 1 {
			return errors.New("page number required")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid page number: %s", args[0])
		}
		return b.show(b.ctrl.Goto(ctx, n-1))
	case "add", "create":
		r, err := b.ctrl.Create(ctx, service.NewTask{Title: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		return b.show(b.ctrl.Apply(ctx, r))
	case "status", "done":
		status := service.StatusDone
		if action == "status" {
			if len(args) < 2 {
				return fmt.Errorf("status required (one of %s)", output.FormatStatuses())
			}
			var err error
			if status, err = service.ParseStatus(args[1]); err != nil {
				return err
			}
		}
		task, err := b.lookup(args)
		if err != nil {
			return err
		}
		r, err := b.ctrl.UpdateStatus(ctx, task.ID, status)
		if err != nil {
			return err
		}
		return b.show(b.ctrl.Apply(ctx, r))
	case "rm", "delete":
		task, err := b.lookup(args)
		if err != nil {
			return err
		}
		if !confirm(b.env, b.errOut, fmt.Sprintf("delete %q?", task.Title)) {
			fmt.Fprintln(b.errOut, "cancelled")
			return nil
		}
		r, err := b.ctrl.Delete(ctx, task.ID)
		if err != nil {
			return err
		}
		return b.show(b.ctrl.Apply(ctx, r))
	case "h", "help", "?":
		fmt.Fprint(b.out, browseHelp)
		return nil
	default:
		return fmt.Errorf("unknown action: %s (h for help)", action)
	}
}

func (b *browser) lookup(args []string) (service.Task, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return service.Task{}, err
	}
	task, err := b.ctrl.Lookup(ref.Pos)
	if err != nil {
		return service.Task{}, fmt.Errorf("task number out of range: %d", ref.Pos)
	}
	return task, nil
}

// show prints page unless the fetch failed or was superseded.
func (b *browser) show(page service.Page, err error) error {
	if errors.Is(err, tasklist.ErrStale) {
		return nil
	}
	if err != nil {
		return err
	}
	output.FormatPage(b.out, page)
	return nil
}
