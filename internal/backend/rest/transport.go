package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"taskmgr/internal/session"
)

// HeaderRequestID carries a per-request identifier for server-side correlation.
const HeaderRequestID = "X-Request-ID"

// Middleware wraps an http.RoundTripper and returns a new one.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain applies middlewares to base; Chain(base, a, b) returns a(b(base)).
// A nil base is replaced by a clone of http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = cloneDefaultTransport()
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		base = mws[i](base)
	}
	return base
}

func cloneDefaultTransport() http.RoundTripper {
	if t, ok := http.DefaultTransport.(*http.Transport); ok && t != nil {
		return t.Clone()
	}
	return http.DefaultTransport
}

// RequestID sets HeaderRequestID to a random UUID unless the request already has one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}
			r2 := r.Clone(r.Context())
			r2.Header.Set(HeaderRequestID, uuid.NewString())
			return next.RoundTrip(r2)
		})
	}
}

// Logging logs every round trip at debug level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		return nil
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get(HeaderRequestID),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.DebugContext(r.Context(), "request failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.DebugContext(r.Context(), "request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}

// Bearer authenticates requests with the token held by sessions.
// Requests are sent unchanged while no usable session exists; a store that
// fails to read is logged to logger at debug level.
func Bearer(sessions session.Store, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			s, err := sessions.Read()
			if err != nil && !errors.Is(err, session.ErrNoSession) {
				logger.DebugContext(r.Context(), "session unreadable, sending without token",
					"method", r.Method, "path", r.URL.Path, "error", err)
			}
			if err != nil || s.Token == "" {
				return next.RoundTrip(r)
			}
			t := &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: s.Token,
					TokenType:   "Bearer",
				}),
				Base: next,
			}
			return t.RoundTrip(r)
		})
	}
}
