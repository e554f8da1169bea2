package commands

import (
	"errors"
	"fmt"
	"io"

	"taskmgr/internal/exitcode"
	"taskmgr/internal/service"
	"taskmgr/internal/tasklist"
)

// Messages printed when the session is missing or rejected.
const (
	NotLoggedIn    = "not logged in (run: taskmgr login)"
	SessionExpired = "session expired (run: taskmgr login)"
)

// exitCodeFor maps an error to the exit code it should produce.
func exitCodeFor(err error) int {
	if errors.Is(err, tasklist.ErrNotLoggedIn) || errors.Is(err, tasklist.ErrSessionExpired) || service.IsUnauthorized(err) {
		return exitcode.AuthError
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case service.KindValidation, service.KindNotFound:
			return exitcode.UserError
		default:
			return exitcode.BackendError
		}
	}
	return exitcode.UserError
}

// report prints err to errOut and returns its exit code.
func report(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, tasklist.ErrNotLoggedIn):
		fmt.Fprintln(errOut, "error: "+NotLoggedIn)
	case errors.Is(err, tasklist.ErrSessionExpired):
		fmt.Fprintln(errOut, "error: "+SessionExpired)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return exitCodeFor(err)
}
