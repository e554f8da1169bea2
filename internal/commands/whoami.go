package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmgr/internal/exitcode"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd prints the display name of the stored session.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Print the signed-in user" }
func (c *WhoamiCmd) Usage() string      { return "taskmgr whoami [common flags]" }
func (c *WhoamiCmd) NeedsAuth() bool    { return true }
func (c *WhoamiCmd) NeedsBackend() bool { return false }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	s, err := env.Sessions.Read()
	if err != nil {
		fmt.Fprintln(errOut, "error: "+NotLoggedIn)
		return exitcode.AuthError
	}
	name := s.DisplayName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintln(out, name)
	return exitcode.Success
}
