package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmgr/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskmgr help [<command>]" }
func (c *HelpCmd) NeedsAuth() bool    { return false }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "%s\n\n  %s\n", cmd.Synopsis(), cmd.Usage())
		if cmd.Name() == "browse" {
			fmt.Fprint(out, "\nActions:\n"+browseHelp)
		}
		return exitcode.Success
	}
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskmgr                                            List the first page of tasks
  taskmgr list [common flags] [--page <n>] [--size <n>] [--all]
  taskmgr add [common flags] [--desc <text>] [--status <status>] <title...>
  taskmgr create [common flags] [--desc <text>] [--status <status>] <title...>
  taskmgr status [common flags] [--page <n>] <ref> <status>
  taskmgr done [common flags] [--page <n>] <ref>
  taskmgr rm [common flags] [--page <n>] [--yes] <ref>
  taskmgr browse [common flags] [--page <n>]
  taskmgr register [common flags] [--email <email>] [--password <password>] [<name...>]
  taskmgr login [common flags] [--email <email>] [--password <password>]
  taskmgr logout [common flags]
  taskmgr whoami [common flags]
  taskmgr help [<command>]
  taskmgr version

A <ref> is the number printed next to a task on the given page.
Statuses: PENDING, IN_PROGRESS, DONE

Common flags:
  --config <dir>    Override config directory
  --api-url <url>   Override the API base address
  --quiet           Suppress informational output
  --debug           Print debug logs to stderr

Environment:
  TASKMGR_API_URL, TASKMGR_ORIGIN, TASKMGR_PAGE_SIZE, TASKMGR_SESSION_STORE,
  TASKMGR_TIMEOUT, TASKMGR_DEBUG
`
