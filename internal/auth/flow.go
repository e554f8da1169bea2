// Package auth implements the login and registration flow: it submits
// credentials once, stores the resulting session, and reports a
// human-readable message on failure.
package auth

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

// State is a step of the flow.
type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fallback messages when the server gives none.
const (
	LoginFailed        = "Login failed"
	RegistrationFailed = "Registration failed"
)

// MinPasswordLength is enforced on registration before any request.
const MinPasswordLength = 6

var (
	// ErrInFlight is returned when a submission is attempted while another is pending.
	ErrInFlight = errors.New("submission already in progress")

	// ErrInvalid marks input rejected before any request was made.
	ErrInvalid = errors.New("invalid input")
)

// Error is a failed submission with the message to show the user.
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

// Flow runs login and registration submissions against an Authenticator and
// records the session on success. A Flow is safe for concurrent use; at most
// one submission runs at a time.
type Flow struct {
	svc      service.Authenticator
	sessions session.Store
	log      *slog.Logger

	mu       sync.Mutex
	state    State
	message  string
	observer func(State)
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger used for submission events.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.log = l }
}

// WithObserver registers fn to be called on every state transition.
// fn runs synchronously and must not call back into the Flow.
func WithObserver(fn func(State)) Option {
	return func(f *Flow) { f.observer = fn }
}

// NewFlow returns an idle Flow.
func NewFlow(svc service.Authenticator, sessions session.Store, opts ...Option) *Flow {
	f := &Flow{svc: svc, sessions: sessions, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message returns the message of the last failed submission, or "".
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Login submits credentials. On success the session is stored and returned.
func (f *Flow) Login(ctx context.Context, c service.Credentials) (session.Session, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := validateCredentials(c.Email, c.Password); err != nil {
		return session.Session{}, f.reject(err)
	}
	return f.submit(ctx, "login", LoginFailed, func(ctx context.Context) (service.AuthResult, error) {
		return f.svc.Login(ctx, c)
	})
}

// Register creates an account. On success the session is stored and returned.
func (f *Flow) Register(ctx context.Context, r service.Registration) (session.Session, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" {
		return session.Session{}, f.reject(errors.New("name is required"))
	}
	if err := validateCredentials(r.Email, r.Password); err != nil {
		return session.Session{}, f.reject(err)
	}
	if len(r.Password) < MinPasswordLength {
		return session.Session{}, f.reject(fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}
	return f.submit(ctx, "register", RegistrationFailed, func(ctx context.Context) (service.AuthResult, error) {
		return f.svc.Register(ctx, r)
	})
}

// Logout removes the stored session.
func (f *Flow) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = ""
	f.transition(Idle)
	return f.sessions.Clear()
}

func (f *Flow) submit(ctx context.Context, op, fallback string, call func(context.Context) (service.AuthResult, error)) (session.Session, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return session.Session{}, ErrInFlight
	}
	f.message = ""
	f.transition(Submitting)
	f.mu.Unlock()

	res, err := call(ctx)
	if err == nil && res.Token == "" {
		err = errors.New("server returned no token")
	}

	var s session.Session
	if err == nil {
		s = session.Session{Token: res.Token, DisplayName: res.Name}
		if serr := f.sessions.Save(s); serr != nil {
			err = fmt.Errorf("failed to save session: %w", serr)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		msg := service.UserMessage(err, fallback)
		f.log.DebugContext(ctx, op+" failed", "kind", service.KindOf(err).String(), "error", err)
		f.message = msg
		f.transition(Failed)
		f.transition(Idle)
		return session.Session{}, &Error{Message: msg, Err: err}
	}
	f.log.DebugContext(ctx, op+" succeeded", "user", s.DisplayName)
	f.transition(Success)
	return s, nil
}

// reject records a local validation failure without contacting the server.
func (f *Flow) reject(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrInFlight
	}
	f.message = err.Error()
	return &Error{Message: f.message, Err: errors.Join(ErrInvalid, err)}
}

// transition sets the state and notifies the observer. Caller holds f.mu.
func (f *Flow) transition(s State) {
	f.state = s
	if f.observer != nil {
		f.observer(s)
	}
}

func validateCredentials(email, password string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
