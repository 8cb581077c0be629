// Package transport is the HTTP layer shared by the catalog accessor and the
// source adapters: authentication, JSON bodies, GraphQL envelopes, bounded
// response reads and retry with exponential backoff.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
)

// DefaultHTTPTimeout bounds a single HTTP attempt.
var DefaultHTTPTimeout = constants.QueryTimeout

// Client performs authenticated JSON requests.
type Client struct {
	http       *http.Client
	auth       Authenticator
	source     string
	userAgent  string
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets the authenticator.
func WithAuth(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets how many attempts a request gets in total.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = max(n, 1) }
}

// WithBackoff sets the initial and maximum delay between attempts.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.backoff = initial
		c.maxBackoff = maxDelay
	}
}

// WithSource names the remote side in errors and logs.
func WithSource(name string) Option {
	return func(c *Client) { c.source = name }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: DefaultHTTPTimeout},
		auth:       NoAuth{},
		maxRetries: constants.MaxRetries,
		backoff:    constants.RetryBackoff,
		maxBackoff: constants.MaxRetryBackoff,
		userAgent:  "studiosync",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON sends a GET request and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	return c.do(ctx, http.MethodGet, url, nil, target)
}

// PostJSON sends body as JSON and decodes the JSON response into target.
func (c *Client) PostJSON(ctx context.Context, url string, body, target any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.WrapParse("json", "request", err)
	}
	return c.do(ctx, http.MethodPost, url, data, target)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, target any) error {
	logger := logging.FromContext(ctx)
	delay := c.backoff

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.once(ctx, method, url, body, target)
		if lastErr == nil || !retryable(lastErr) || attempt == c.maxRetries {
			break
		}
		logger.Debug().
			Err(lastErr).
			Str("url", url).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying request")

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxBackoff)
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.auth.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errors.APIError{Source: c.source, Endpoint: url, Message: "request failed", Err: err}
	}
	return decodeResponse(resp, c.source, url, target)
}

// decodeResponse reads at most MaxResponseBytes and decodes a 2xx body into target.
func decodeResponse(resp *http.Response, source, url string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("url", url).Msg("Failed to close response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBytes))
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return &errors.APIError{Source: source, StatusCode: resp.StatusCode, Endpoint: url, Message: msg}
	}

	if target == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.WrapParse("json", url, err)
	}
	return nil
}

// retryable reports whether err is a transport failure or a retryable status.
func retryable(err error) bool {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 0 {
		return true
	}
	return apiErr.Retryable()
}
