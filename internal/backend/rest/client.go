// Package rest implements service.Service against the task backend's JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"taskmgr/internal/config"
	"taskmgr/internal/service"
	"taskmgr/internal/session"
)

// drainLimit bounds how much of an unread response body is discarded.
const drainLimit = 64 << 10

// Client implements service.Service over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// New creates a client for the backend configured in cfg.
// Every request carries the bearer token held by sessions, if any.
func New(cfg *config.Config, sessions session.Store, logger *slog.Logger) (*Client, error) {
	c, err := NewWithTransport(cfg.BaseURL(), nil, sessions, logger)
	if err != nil {
		return nil, err
	}
	c.timeout = cfg.Timeout
	return c, nil
}

// NewWithTransport creates a client with a custom base RoundTripper (for testing).
// A nil base uses a clone of http.DefaultTransport.
func NewWithTransport(baseURL string, base http.RoundTripper, sessions session.Store, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url: %s", baseURL)
	}

	rt := Chain(base,
		RequestID(),
		Logging(logger),
		Bearer(sessions, logger),
	)
	return &Client{
		base: u,
		http: &http.Client{Transport: rt},
	}, nil
}

// Register implements service.Authenticator.
func (c *Client) Register(ctx context.Context, r service.Registration) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.do(ctx, http.MethodPost, []string{"auth", "register"}, nil, r, &res)
	return res, err
}

// Login implements service.Authenticator.
func (c *Client) Login(ctx context.Context, cr service.Credentials) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.do(ctx, http.MethodPost, []string{"auth", "login"}, nil, cr, &res)
	return res, err
}

// ListTasksPaginated implements service.Service.
func (c *Client) ListTasksPaginated(ctx context.Context, page, size int) (service.Page, error) {
	if page < 0 || size <= 0 {
		return service.Page{}, &service.Error{
			Kind:    service.KindValidation,
			Message: fmt.Sprintf("invalid page request: page=%d size=%d", page, size),
		}
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var p service.Page
	if err := c.do(ctx, http.MethodGet, []string{"tasks", "paginated"}, q, nil, &p); err != nil {
		return service.Page{}, err
	}

	// Older backends omit the echo of the request parameters.
	if p.PageSize == 0 {
		p.PageSize = size
		p.PageNumber = page
	}
	if p.Content == nil {
		p.Content = []service.Task{}
	}
	return p, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, []string{"tasks"}, nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, t service.NewTask) (service.Task, error) {
	var created service.Task
	err := c.do(ctx, http.MethodPost, []string{"tasks"}, nil, t, &created)
	return created, err
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch service.TaskPatch) (service.Task, error) {
	var updated service.Task
	err := c.do(ctx, http.MethodPut, []string{"tasks", strconv.FormatInt(id, 10)}, nil, patch, &updated)
	return updated, err
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, []string{"tasks", strconv.FormatInt(id, 10)}, nil, nil, nil)
}

// do sends one request and decodes a successful JSON response into out.
// A nil out discards the response body.
func (c *Client) do(ctx context.Context, method string, path []string, query url.Values, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.base.JoinPath(path...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return service.NetworkError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &service.Error{
			Kind:   service.KindUnclassified,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// wrapError classifies an unsuccessful response.
func wrapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &service.Error{Kind: service.KindUnclassified, Err: err}
	}
	msg := gerr.Message
	if msg == "" {
		msg = messageFromBody(gerr.Body)
	}
	return service.StatusError(gerr.Code, msg, err)
}

// messageFromBody extracts the "message" field of a JSON error payload.
func messageFromBody(body string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	return payload.Message
}
