package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskmgr/internal/auth"
	"taskmgr/internal/exitcode"
	"taskmgr/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in and store the session" }
func (c *LoginCmd) Usage() string      { return "taskmgr login [common flags] [--email <email>] [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool    { return false }
func (c *LoginCmd) NeedsBackend() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if s, err := env.Sessions.Read(); err == nil {
		// One single-task page confirms the server still accepts the token.
		// A rejected token is cleared by the controller and login proceeds.
		_, err := newController(env, 1).Load(ctx)
		if err == nil {
			if !env.Config.Quiet {
				fmt.Fprintf(out, "already logged in as %s\n", s.DisplayName)
			}
			return exitcode.Success
		}
		env.Logger.DebugContext(ctx, "stored session not usable, logging in again", "error", err)
	}

	creds := service.Credentials{Email: c.email, Password: c.password}
	var err error
	if creds.Email == "" {
		if creds.Email, err = env.Prompt(errOut, "Email"); err != nil {
			return report(errOut, err)
		}
	}
	if creds.Password == "" {
		if creds.Password, err = env.Prompt(errOut, "Password"); err != nil {
			return report(errOut, err)
		}
	}

	flow := auth.NewFlow(env.Service, env.Sessions, auth.WithLogger(env.Logger))
	s, err := flow.Login(ctx, creds)
	if err != nil {
		return reportAuth(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", s.DisplayName)
	}
	return exitcode.Success
}

// reportAuth prints a failed login or registration. Rejected credentials are
// auth errors; an unreachable or failing server is a backend error.
func reportAuth(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	var svcErr *service.Error
	switch {
	case errors.Is(err, auth.ErrInvalid):
		return exitcode.UserError
	case errors.As(err, &svcErr) && (svcErr.Kind == service.KindNetwork || svcErr.Kind == service.KindUnclassified):
		return exitcode.BackendError
	default:
		return exitcode.AuthError
	}
}
