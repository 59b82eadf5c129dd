// Package client implements the authenticated CRUD/session workflow against
// the bacheca API: a session store with an explicit state machine, resource
// controllers with a stale-response guard, a search debouncer, and a router
// guard. Everything is injectable; nothing is a package-level singleton, so
// tests drive the whole workflow against an httptest server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
)

// BaseURLEnv is the environment variable holding the API base URL.
const BaseURLEnv = "BACHECA_API_URL"

// Client is a thin HTTP client for the bacheca API. Session credentials are
// cookie-based; the jar carries them across requests like a browser would.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the API at baseURL.
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("empty API base URL")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

// NewFromEnv creates a Client from the BACHECA_API_URL environment variable.
func NewFromEnv() (*Client, error) {
	base := os.Getenv(BaseURLEnv)
	if base == "" {
		return nil, fmt.Errorf("%s is not set", BaseURLEnv)
	}
	return New(base)
}

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// ErrorKind classifies an API failure for display and control flow.
type ErrorKind int

const (
	// KindUnauthenticated is a 401: the session is gone. Controllers react
	// by clearing the session store, never by showing an error.
	KindUnauthenticated ErrorKind = iota + 1
	// KindForbidden is a 403: authenticated but not allowed.
	KindForbidden
	// KindNotFound is a 404: the resource vanished under us.
	KindNotFound
	// KindValidation is a 400 or 409: the server rejected the input and its
	// message should be shown verbatim when present.
	KindValidation
	// KindUnknown is everything else, including transport failures.
	KindUnknown
)

// APIError is a failed API call. Status is 0 for transport-level failures.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string // server-provided, may be empty
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "api: network error: " + e.Message
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Display resolves the error to a user-facing string: the server's message
// when the taxonomy says to trust it, a catalog fallback otherwise.
func (e *APIError) Display(msgs messages.Catalog) string {
	switch e.Kind {
	case KindUnauthenticated:
		return msgs.Resolve(messages.NotAuthenticated)
	case KindForbidden, KindNotFound, KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return msgs.Resolve(messages.GenericError)
	default:
		if e.Status == 0 {
			return msgs.Resolve(messages.NetworkError)
		}
		return msgs.Resolve(messages.GenericError)
	}
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict:
		return KindValidation
	default:
		return KindUnknown
	}
}

// IsUnauthenticated reports whether err is a 401 APIError.
func IsUnauthenticated(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Kind == KindUnauthenticated
}

// ---------------------------------------------------------------------------
// Request plumbing
// ---------------------------------------------------------------------------

// do performs one JSON request. A non-2xx response or transport failure is
// returned as *APIError; out, when non-nil, receives the decoded body.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindUnknown, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope model.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: envelope.Error.Message,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Kind: KindUnknown, Status: resp.StatusCode, Message: "malformed response body"}
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
