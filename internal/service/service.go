// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	// Register creates an account and returns its token and display name.
	Register(ctx context.Context, r Registration) (AuthResult, error)

	// Login returns a token and display name for valid credentials.
	Login(ctx context.Context, c Credentials) (AuthResult, error)
}

// Service defines the interface for task backend operations.
// All backend calls go through this interface; commands never build HTTP
// requests directly. Errors are classified as *Error.
type Service interface {
	Authenticator

	// ListTasksPaginated returns page (0-based) of size tasks in server order.
	ListTasksPaginated(ctx context.Context, page, size int) (Page, error)

	// ListTasks returns every task of the user in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it as stored.
	CreateTask(ctx context.Context, t NewTask) (Task, error)

	// UpdateTask applies patch to the task with id and returns it as stored.
	UpdateTask(ctx context.Context, id int64, patch TaskPatch) (Task, error)

	// DeleteTask deletes the task with id.
	DeleteTask(ctx context.Context, id int64) error
}
