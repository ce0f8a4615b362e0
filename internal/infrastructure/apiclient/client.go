// Package apiclient is the HTTP wrapper around the Evently REST backend.
//
// It attaches the bearer token from a ports.TokenStore, tolerates bare and
// {"data": ...} enveloped responses, and maps failures onto the domain
// error taxonomy: 401, 403 and 404 become sentinels, everything else an
// *domain.APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10

	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000/api".
	BaseURL string
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// ObserveFunc receives one call per completed request. route is the path
// template (e.g. "/events/:id"); status is 0 for transport failures.
type ObserveFunc func(method, route string, status int, elapsed time.Duration)

// Option customizes a Client.
type Option func(*Client)

// WithObserver installs a per-request hook, e.g. for latency metrics.
func WithObserver(fn ObserveFunc) Option {
	return func(c *Client) { c.observe = fn }
}

// Client talks to the backend on behalf of one token store. It is safe for
// concurrent use.
type Client struct {
	baseURL *url.URL
	hc      *http.Client
	tokens  ports.TokenStore
	observe ObserveFunc
	log     zerolog.Logger
}

// New validates cfg and returns a Client. tokens may be nil for a client
// that only calls public endpoints.
func New(cfg Config, tokens ports.TokenStore, log zerolog.Logger, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("apiclient: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base URL must be http or https (got %q)", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		clone.Timeout = timeout
		hc = &clone
	}

	c := &Client{baseURL: base, hc: hc, tokens: tokens, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithTokens returns a copy of c bound to another token store. The BFF uses
// it to give each request its own cookie-backed store over one transport.
func (c *Client) WithTokens(tokens ports.TokenStore) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

type requestIDKey struct{}

// ContextWithRequestID makes outgoing requests carry id in X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// call describes one backend request.
type call struct {
	method string
	// route is the path template used for logs and metrics.
	route string
	// path is the concrete path, optionally with a query string.
	path    string
	body    any
	out     any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r call) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", r.method, r.route, err)
		}
		body = bytes.NewReader(b)
	}

	target, err := c.resolve(r.path)
	if err != nil {
		return fmt.Errorf("%s %s: resolve path: %w", r.method, r.route, err)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", r.method, r.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	req.Header.Set(HeaderRequestID, requestID(ctx))
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.finish(r, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.route, ctxErr)
		}
		return &domain.APIError{Err: err}
	}
	defer resp.Body.Close()
	c.finish(r, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.APIError{Status: resp.StatusCode, Message: "read response", Err: err}
	}
	if err := json.Unmarshal(unwrap(raw), r.out); err != nil {
		return &domain.APIError{Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// resolve joins an escaped path (with optional query) onto the base URL.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	u := *c.baseURL
	basePath := strings.TrimRight(u.Path, "/")
	baseRaw := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = basePath + ref.Path
	u.RawPath = baseRaw + ref.EscapedPath()
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (c *Client) finish(r call, status int, start time.Time) {
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(r.method, r.route, status, elapsed)
	}
	c.log.Debug().
		Str("method", r.method).
		Str("route", r.route).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("backend request")
}

// unwrap returns the payload of a {"data": ...} envelope, or raw unchanged
// when the body is not enveloped.
func unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if data, ok := env["data"]; ok && len(env) <= 3 {
		return data
	}
	return trimmed
}

// statusError maps a non-2xx response onto the domain error taxonomy.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return withMessage(domain.ErrUnauthorized, msg)
	case http.StatusForbidden:
		return withMessage(domain.ErrForbidden, msg)
	case http.StatusNotFound:
		return withMessage(domain.ErrNotFound, msg)
	}
	return &domain.APIError{Status: resp.StatusCode, Message: msg}
}

func withMessage(sentinel error, msg string) error {
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// errorMessage extracts a human message from common backend error shapes.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
