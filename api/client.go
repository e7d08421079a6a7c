// Package api talks to the authentication service and the charger REST API
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxBodySize = 4 << 20

// Client holds a public HTTP client for the auth endpoints and a private one
// that carries the session's access credential
type Client struct {
	baseURL           *url.URL
	base              http.RoundTripper
	timeout           time.Duration
	source            oauth2.TokenSource
	public            *http.Client
	private           *http.Client
	onUnauthorized    func(ctx context.Context)
	reservationsLimit int
	logger            zerolog.Logger
}

type ClientOption func(*Client)

// WithTransport replaces http.DefaultTransport underneath both clients
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.base = rt
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTokenSource supplies the access credential for private requests
func WithTokenSource(source oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.source = source
	}
}

// WithOnUnauthorized is called whenever a private request comes back 401 or 403
func WithOnUnauthorized(hook func(ctx context.Context)) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = hook
	}
}

func WithReservationsLimit(limit int) ClientOption {
	return func(c *Client) {
		c.reservationsLimit = limit
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, options ...ClientOption) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidConfig, "[api New] base url %q", baseURL)
	}

	c := &Client{
		baseURL:           u,
		base:              http.DefaultTransport,
		timeout:           15 * time.Second,
		reservationsLimit: 1000000,
		logger:            zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	c.public = &http.Client{Transport: newPublicTransport(c.base), Timeout: c.timeout}
	if c.source != nil {
		c.private = &http.Client{Transport: newPrivateTransport(c.base, c.source), Timeout: c.timeout}
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type request struct {
	private bool
	method  string
	path    string
	query   url.Values
	body    any
}

// send performs r and returns the response body of a 2xx response
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	httpClient := c.public
	if r.private {
		if c.private == nil {
			return nil, apperrors.Wrapf(apperrors.ErrNotAuthenticated, "%s %s", r.method, r.path)
		}
		httpClient = c.private
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: r.path, RawQuery: r.query.Encode()})

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("[api send] marshal %s: %w", r.path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("[api send] %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, apperrors.Wrapf(apperrors.ErrNotAuthenticated, "%s %s", r.method, r.path)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug().Err(err).Str("method", r.method).Str("path", r.path).Str("request_id", requestID).Msg("api request failed")
		return nil, &Error{Method: r.method, Path: r.path, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Method: r.method, Path: r.path, RequestID: requestID, Err: err}
	}

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := newError(r, resp.StatusCode, requestID, data)
	if r.private && apiErr.kind() == apperrors.ErrUnauthorized && c.onUnauthorized != nil {
		c.logger.Info().Int("status", resp.StatusCode).Str("path", r.path).Msg("request unauthorized, clearing session")
		c.onUnauthorized(ctx)
	}
	return nil, apiErr
}

// do is send plus decoding of the response body into out, if any
func (c *Client) do(ctx context.Context, r request, out any) error {
	data, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrapf(apperrors.ErrRequestFailed, "[api do] decode %s: %v", r.path, err)
	}
	return nil
}

func newError(r request, status int, requestID string, data []byte) *Error {
	e := &Error{
		Method:     r.method,
		Path:       r.path,
		StatusCode: status,
		Code:       unknownCode,
		RequestID:  requestID,
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			e.Code = body.Error
		}
		e.Message = utils.FirstNonEmpty(body.Message, body.Detail)
	}
	return e
}
