// Package tasklist keeps the paginated view of the user's tasks in step with
// the server. Mutations return a Refresh naming the page to re-query next;
// Apply performs that re-query.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"taskmgr/internal/service"
	"taskmgr/internal/session"
)

// Messages retained after a failed action when the server gives none.
const (
	LoadFailed   = "Failed to load tasks"
	CreateFailed = "Failed to create task"
	UpdateFailed = "Failed to update task"
	DeleteFailed = "Failed to delete task"
)

var (
	// ErrNotLoggedIn is returned when no session is stored. No request is made.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSessionExpired is returned after the server rejected the session.
	// The session has been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrStale is returned by a fetch that was overtaken by a later one.
	// Its result has been discarded.
	ErrStale = errors.New("superseded by a newer request")
)

// Refresh is the page to re-query after an action.
type Refresh struct {
	Page int
}

// Error is a failed action with the message to show the user.
type Error struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Controller owns the current page number and the last fetched Page.
// It is safe for concurrent use; requests run without holding the lock.
type Controller struct {
	svc      service.Service
	sessions session.Store
	size     int
	log      *slog.Logger

	mu      sync.Mutex
	current int
	page    service.Page
	loaded  bool
	message string
	seq     uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for fetch and mutation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns a Controller positioned at page 0 that fetches size tasks per page.
func New(svc service.Service, sessions session.Store, size int, opts ...Option) *Controller {
	c := &Controller{
		svc:      svc,
		sessions: sessions,
		size:     size,
		log:      slog.New(slog.DiscardHandler),
		page:     service.Page{Content: []service.Task{}, PageSize: size},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Current returns the 0-based page number being displayed.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Page returns the last successfully fetched page.
func (c *Controller) Page() service.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Loaded reports whether any page has been fetched.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Message returns the retained message of the last failed action, or "".
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Load fetches the current page.
func (c *Controller) Load(ctx context.Context) (service.Page, error) {
	return c.Apply(ctx, Refresh{Page: c.Current()})
}

// Goto fetches page p.
func (c *Controller) Goto(ctx context.Context, p int) (service.Page, error) {
	if p < 0 {
		return c.Page(), c.fail(fmt.Errorf("invalid page: %d", p+1), "")
	}
	return c.Apply(ctx, Refresh{Page: p})
}

// Apply fetches r.Page and, on success, makes it the current page. On failure
// the previously displayed page is kept and returned.
func (c *Controller) Apply(ctx context.Context, r Refresh) (service.Page, error) {
	if !session.Present(c.sessions) {
		return c.Page(), ErrNotLoggedIn
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.log.DebugContext(ctx, "fetching page", "page", r.Page, "size", c.size, "seq", seq)
	p, err := c.svc.ListTasksPaginated(ctx, r.Page, c.size)

	if service.IsUnauthorized(err) {
		return service.Page{}, c.expire(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.log.DebugContext(ctx, "discarding stale page", "page", r.Page, "seq", seq, "latest", c.seq)
		return c.page, ErrStale
	}
	if err != nil {
		c.message = service.UserMessage(err, LoadFailed)
		return c.page, &Error{Message: c.message, Err: err}
	}
	if p.Content == nil {
		p.Content = []service.Task{}
	}
	c.current = r.Page
	c.page = p
	c.loaded = true
	c.message = ""
	return p, nil
}

// All fetches every task without pagination.
func (c *Controller) All(ctx context.Context) ([]service.Task, error) {
	if !session.Present(c.sessions) {
		return nil, ErrNotLoggedIn
	}
	tasks, err := c.svc.ListTasks(ctx)
	if err != nil {
		return nil, c.handle(ctx, err, LoadFailed)
	}
	return tasks, nil
}

// Create adds a task. Status defaults to PENDING. On success the returned
// Refresh targets the first page; the current page changes once it is applied.
func (c *Controller) Create(ctx context.Context, t service.NewTask) (Refresh, error) {
	if !session.Present(c.sessions) {
		return Refresh{}, ErrNotLoggedIn
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Title == "" {
		return Refresh{}, c.fail(errors.New("title is required"), "")
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	if !t.Status.Valid() {
		return Refresh{}, c.fail(fmt.Errorf("invalid status: %s", t.Status), "")
	}

	created, err := c.svc.CreateTask(ctx, t)
	if err != nil {
		return Refresh{}, c.handle(ctx, err, CreateFailed)
	}
	c.log.DebugContext(ctx, "created task", "id", created.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = ""
	return Refresh{Page: 0}, nil
}

// UpdateStatus changes the status of task id and re-queries the current page.
func (c *Controller) UpdateStatus(ctx context.Context, id int64, status service.Status) (Refresh, error) {
	if !session.Present(c.sessions) {
		return Refresh{}, ErrNotLoggedIn
	}
	if !status.Valid() {
		return Refresh{}, c.fail(fmt.Errorf("invalid status: %s", status), "")
	}

	if _, err := c.svc.UpdateTask(ctx, id, service.TaskPatch{Status: &status}); err != nil {
		return Refresh{}, c.handle(ctx, err, UpdateFailed)
	}
	c.log.DebugContext(ctx, "updated task", "id", id, "status", status)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = ""
	return Refresh{Page: c.current}, nil
}

// Delete removes task id. If it was the only task shown on a page after the
// first, the previous page is re-queried instead of the current one.
func (c *Controller) Delete(ctx context.Context, id int64) (Refresh, error) {
	if !session.Present(c.sessions) {
		return Refresh{}, ErrNotLoggedIn
	}

	if err := c.svc.DeleteTask(ctx, id); err != nil {
		return Refresh{}, c.handle(ctx, err, DeleteFailed)
	}
	c.log.DebugContext(ctx, "deleted task", "id", id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = ""
	if len(c.page.Content) == 1 && c.current > 0 {
		return Refresh{Page: c.current - 1}, nil
	}
	return Refresh{Page: c.current}, nil
}

// Next returns the following page, or false on the last page.
func (c *Controller) Next() (Refresh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < c.page.TotalPages-1 {
		return Refresh{Page: c.current + 1}, true
	}
	return Refresh{Page: c.current}, false
}

// Previous returns the preceding page, or false on the first page.
func (c *Controller) Previous() (Refresh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current > 0 {
		return Refresh{Page: c.current - 1}, true
	}
	return Refresh{Page: c.current}, false
}

// Lookup returns the task at 1-based position n on the current page.
func (c *Controller) Lookup(n int) (service.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > len(c.page.Content) {
		return service.Task{}, fmt.Errorf("no task at position %d on page %d", n, c.current+1)
	}
	return c.page.Content[n-1], nil
}

// handle converts a failed request into the error returned to the caller.
func (c *Controller) handle(ctx context.Context, err error, fallback string) error {
	if service.IsUnauthorized(err) {
		return c.expire(ctx, err)
	}
	c.log.DebugContext(ctx, "request failed", "kind", service.KindOf(err).String(), "error", err)
	return c.fail(err, fallback)
}

// fail records the message for err and returns it as an *Error. An empty
// fallback uses err's own text.
func (c *Controller) fail(err error, fallback string) error {
	msg := err.Error()
	if fallback != "" {
		msg = service.UserMessage(err, fallback)
	}
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
	return &Error{Message: msg, Err: err}
}

// expire clears the session and the view after the server rejected the token.
func (c *Controller) expire(ctx context.Context, cause error) error {
	c.log.DebugContext(ctx, "session rejected, clearing", "error", cause)
	clearErr := c.sessions.Clear()

	c.mu.Lock()
	c.seq++
	c.current = 0
	c.page = service.Page{Content: []service.Task{}, PageSize: c.size}
	c.loaded = false
	c.message = ""
	c.mu.Unlock()

	if clearErr != nil {
		return fmt.Errorf("%w: failed to clear session: %v", ErrSessionExpired, clearErr)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}
