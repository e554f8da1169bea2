// Package commands provides the command interface and implementations.
package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskmgr/internal/config"
	"taskmgr/internal/service"
	"taskmgr/internal/session"
)

// Env carries what a command needs beyond its arguments.
type Env struct {
	// Config is always provided (config dir, page size, flags).
	Config *config.Config

	// Service is nil unless NeedsBackend() returns true.
	Service service.Service

	// Sessions is the session store opened for Config.
	Sessions session.Store

	// Logger receives debug output. Never nil.
	Logger *slog.Logger

	// Stdin supplies prompt answers and browse input.
	Stdin io.Reader

	lines *bufio.Scanner
}

// ReadLine returns the next line of Stdin without its newline.
// It returns io.EOF once input is exhausted.
func (e *Env) ReadLine() (string, error) {
	if e.lines == nil {
		in := e.Stdin
		if in == nil {
			in = strings.NewReader("")
		}
		e.lines = bufio.NewScanner(in)
	}
	if !e.lines.Scan() {
		if err := e.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(e.lines.Text(), "\r"), nil
}

// Prompt writes label to w and reads one line.
func (e *Env) Prompt(w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	line, err := e.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%s required", strings.ToLower(label))
	}
	return strings.TrimSpace(line), nil
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a stored session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// NeedsBackend returns true if the command talks to the server.
	NeedsBackend() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}
