package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"taskmgr/internal/backend/rest"
	"taskmgr/internal/cli"
	"taskmgr/internal/commands"
	"taskmgr/internal/config"
	"taskmgr/internal/exitcode"
	"taskmgr/internal/service"
	"taskmgr/internal/session"
	"taskmgr/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, sessions session.Store, logger *slog.Logger) (service.Service, error) {
		return svc, nil
	}
}

// restFactory creates a service factory that talks to the fake HTTP server.
func restFactory(srv *testutil.FakeServer) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, sessions session.Store, logger *slog.Logger) (service.Service, error) {
		cfg.APIURL = srv.BaseURL()
		return rest.New(cfg, sessions, logger)
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func loggedInStore(t *testing.T) session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	if err := store.Save(session.Session{Token: "t1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return store
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(t, dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(t, dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil, cli.WithSessionStore(session.NewMemoryStore()))

	stdout, stderr, code := run(t, dispatcher, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil, cli.WithSessionStore(session.NewMemoryStore()))

	stdout, stderr, code := run(t, dispatcher, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskmgr 0.1.0\n" {
		t.Errorf("expected 'taskmgr 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil, cli.WithSessionStore(session.NewMemoryStore()))

	_, stderr, code := run(t, dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc), cli.WithSessionStore(loggedInStore(t)))

	_, stderr, code := run(t, dispatcher, "list", "--page")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -page\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_InvalidPageSizeFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvPageSize, "0")
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc), cli.WithSessionStore(loggedInStore(t)))

	_, stderr, code := run(t, dispatcher, "list")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "page size must be positive") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestDispatcher_NeedsAuthWithoutSession(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(1)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc), cli.WithSessionStore(session.NewMemoryStore()))

	for _, name := range []string{"list", "add", "done", "rm", "status", "browse", "whoami"} {
		t.Run(name, func(t *testing.T) {
			stdout, stderr, code := run(t, dispatcher, name, "1")

			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			expected := "error: not logged in (run: taskmgr login)\n"
			if stderr != expected {
				t.Errorf("expected %q, got %q", expected, stderr)
			}
		})
	}

	if len(svc.PageRequests) != 0 {
		t.Errorf("expected no requests, got %v", svc.PageRequests)
	}
	if len(svc.Tasks()) != 1 {
		t.Errorf("expected tasks untouched, got %d", len(svc.Tasks()))
	}
}

func TestDispatcher_NoArgsListsFirstPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", service.StatusPending)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc), cli.WithSessionStore(loggedInStore(t)))

	stdout, stderr, code := run(t, dispatcher)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "   1  [ ] Buy milk\npage 1 of 1 (1 task)\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
	if got := svc.LastPageRequest(); got != 0 {
		t.Errorf("expected page 0 requested, got %d", got)
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc), cli.WithSessionStore(loggedInStore(t)))

	_, stderr, code := run(t, dispatcher, "list", "--debug")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stderr, "level=DEBUG") || !strings.Contains(stderr, "command=list") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
}

func TestDispatcher_LoginPromptsThenPersists(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.AddUser("Alice", "a@b.com", "secret")
	dir := t.TempDir()

	stdin := strings.NewReader("a@b.com\nsecret\n")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, restFactory(srv), cli.WithStdin(stdin))

	stdout, stderr, code := run(t, dispatcher, "login", "--config", dir)
	if code != exitcode.Success {
		t.Fatalf("login: expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "logged in as Alice\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "Email: ") || !strings.Contains(stderr, "Password: ") {
		t.Errorf("expected prompts on stderr, got %q", stderr)
	}

	// A fresh dispatcher reads the session back from the config directory.
	dispatcher = cli.NewDispatcher(commands.DefaultRegistry, restFactory(srv))
	stdout, _, code = run(t, dispatcher, "whoami", "--config", dir)
	if code != exitcode.Success || stdout != "Alice\n" {
		t.Errorf("whoami: got code %d, stdout %q", code, stdout)
	}

	stdout, _, code = run(t, dispatcher, "logout", "--config", dir)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("logout: got code %d, stdout %q", code, stdout)
	}

	_, stderr, code = run(t, dispatcher, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("list after logout: expected exit code %d, got %d (stderr %q)", exitcode.AuthError, code, stderr)
	}
}

func TestDispatcher_LoginBadCredentials(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.AddUser("Alice", "a@b.com", "secret")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, restFactory(srv), cli.WithSessionStore(session.NewMemoryStore()))

	_, stderr, code := run(t, dispatcher, "login", "--email", "a@b.com", "--password", "nope")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Invalid email or password\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestDispatcher_SQLiteSessionStore(t *testing.T) {
	t.Setenv(config.EnvSessionStore, config.StoreSQLite)
	srv := testutil.NewFakeServer(t)
	srv.AddUser("Alice", "a@b.com", "secret")
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, restFactory(srv))

	_, stderr, code := run(t, dispatcher, "login", "--config", dir, "--email", "a@b.com", "--password", "secret")
	if code != exitcode.Success {
		t.Fatalf("login: expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}

	stdout, _, code := run(t, dispatcher, "whoami", "--config", dir)
	if code != exitcode.Success || stdout != "Alice\n" {
		t.Errorf("whoami: got code %d, stdout %q", code, stdout)
	}
}

// TestDispatcher_TaskLifecycle drives login, add, list, done, rm and session
// expiry through the real HTTP client.
func TestDispatcher_TaskLifecycle(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.AddUser("Alice", "a@b.com", "secret")
	store := session.NewMemoryStore()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, restFactory(srv), cli.WithSessionStore(store))

	steps := []struct {
		args   []string
		code   int
		stdout string
	}{
		{
			args:   []string{"login", "--email", "a@b.com", "--password", "secret"},
			code:   exitcode.Success,
			stdout: "logged in as Alice\n",
		},
		{
			args:   []string{"list"},
			code:   exitcode.Success,
			stdout: "no tasks found\n",
		},
		{
			args:   []string{"add", "--desc", "2 litres", "Buy", "milk"},
			code:   exitcode.Success,
			stdout: "   1  [ ] Buy milk\n          2 litres\npage 1 of 1 (1 task)\n",
		},
		{
			args:   []string{"status", "1", "in-progress"},
			code:   exitcode.Success,
			stdout: "   1  [~] Buy milk\n          2 litres\npage 1 of 1 (1 task)\n",
		},
		{
			args:   []string{"done", "1"},
			code:   exitcode.Success,
			stdout: "   1  [x] Buy milk\n          2 litres\npage 1 of 1 (1 task)\n",
		},
		{
			args:   []string{"done", "2"},
			code:   exitcode.UserError,
			stdout: "",
		},
		{
			args:   []string{"rm", "--yes", "1"},
			code:   exitcode.Success,
			stdout: "no tasks found\n",
		},
		{
			args:   []string{"list", "--all"},
			code:   exitcode.Success,
			stdout: "no tasks found\n",
		},
	}

	for _, step := range steps {
		stdout, stderr, code := run(t, dispatcher, step.args...)
		if code != step.code {
			t.Fatalf("%v: expected exit code %d, got %d (stderr %q)", step.args, step.code, code, stderr)
		}
		if stdout != step.stdout {
			t.Errorf("%v: expected stdout %q, got %q", step.args, step.stdout, stdout)
		}
	}

	srv.RevokeTokens()
	_, stderr, code := run(t, dispatcher, "list")
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: session expired (run: taskmgr login)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
	if session.Present(store) {
		t.Error("expected session to be cleared")
	}
}
