package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmgr/internal/auth"
	"taskmgr/internal/exitcode"
	"taskmgr/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	email    string
	password string
}

func (c *RegisterCmd) Name() string       { return "register" }
func (c *RegisterCmd) Aliases() []string  { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string   { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string      { return "taskmgr register [common flags] [--email <email>] [--password <password>] [<name...>]" }
func (c *RegisterCmd) NeedsAuth() bool    { return false }
func (c *RegisterCmd) NeedsBackend() bool { return true }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	reg := service.Registration{
		Name:     strings.Join(args, " "),
		Email:    c.email,
		Password: c.password,
	}
	var err error
	if strings.TrimSpace(reg.Name) == "" {
		if reg.Name, err = env.Prompt(errOut, "Name"); err != nil {
			return report(errOut, err)
		}
	}
	if reg.Email == "" {
		if reg.Email, err = env.Prompt(errOut, "Email"); err != nil {
			return report(errOut, err)
		}
	}
	if reg.Password == "" {
		if reg.Password, err = env.Prompt(errOut, "Password"); err != nil {
			return report(errOut, err)
		}
	}

	flow := auth.NewFlow(env.Service, env.Sessions, auth.WithLogger(env.Logger))
	s, err := flow.Register(ctx, reg)
	if err != nil {
		return reportAuth(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(out, "registered and logged in as %s\n", s.DisplayName)
	}
	return exitcode.Success
}
