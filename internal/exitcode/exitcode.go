// Package exitcode defines the process exit codes of taskmgr.
package exitcode

// Exit codes returned by every command.
const (
	Success = 0

	// UserError covers bad arguments, unknown task positions and input the
	// server rejected.
	UserError = 1

	// AuthError means no session, an expired session or rejected credentials.
	AuthError = 2

	// BackendError means the server was unreachable or failed.
	BackendError = 3
)
