// Package remote holds the JSON/HTTP clients for the external cart, catalog
// and product management services.
package remote

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

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// SessionHeader names the storefront session on every outbound call.
const SessionHeader = "X-Session-ID"

// Options tune a Client. Zero values pick defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
	// Consecutive failures before the breaker opens; 0 means 5.
	BreakerFailures uint32
	// How long the breaker stays open; 0 means 30s.
	BreakerCooldown time.Duration
}

// Client is the shared transport: base URL, bearer auth, timeout, breaker,
// and classification of every failure into *domain.ServiceError.
type Client struct {
	service string
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// envelope is the common reply shape of the backend API.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func NewClient(service, baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s base url: %w", service, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s base url %q must be absolute", service, baseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	c := &Client{
		service: service,
		baseURL: u,
		http:    httpClient,
		timeout: opts.Timeout,
		logger:  logger.With(zap.String("service", service)),
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    service,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c, nil
}

// request describes one outbound call.
type request struct {
	op          string
	method      string
	path        string // already escaped
	query       url.Values
	token       string
	sessionID   string
	body        any
	rawBody     io.Reader
	contentType string
}

// do sends req, and on a 2xx reply with success != false decodes the body into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return c.fail(req.op, 0, "", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		// Upstream 5xx counts against the breaker; 4xx are caller problems.
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errUpstreamStatus
		}
		return resp, nil
	})
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil && !errors.Is(err, errUpstreamStatus) {
		return c.fail(req.op, 0, "", err)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return c.fail(req.op, resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil && resp.StatusCode < 300 {
			return c.fail(req.op, resp.StatusCode, "", fmt.Errorf("decode body: %w", jsonErr))
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(req.op, resp.StatusCode, firstNonEmpty(env.Error, env.Message), nil)
	}
	if env.Success != nil && !*env.Success {
		return c.fail(req.op, resp.StatusCode, firstNonEmpty(env.Error, env.Message, "success=false"), nil)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return c.fail(req.op, resp.StatusCode, "", fmt.Errorf("decode body: %w", err))
		}
	}
	c.logger.Debug("remote call ok", zap.String("op", req.op), zap.Int("status", resp.StatusCode))
	return nil
}

var errUpstreamStatus = errors.New("upstream server error")

func (c *Client) newHTTPRequest(ctx context.Context, req request) (*http.Request, error) {
	u := *c.baseURL
	rawPath := u.EscapedPath() + req.path
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("request path %q: %w", req.path, err)
	}
	u.Path, u.RawPath = path, rawPath
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	body := req.rawBody
	contentType := req.contentType
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	// Guests carry no upstream token and signed-in users may share one, so
	// the session id is what keys the upstream cart.
	if req.sessionID != "" {
		httpReq.Header.Set(SessionHeader, req.sessionID)
	}
	return httpReq, nil
}

func (c *Client) fail(op string, status int, msg string, err error) error {
	c.logger.Warn("remote call failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("message", msg),
		zap.Error(err),
	)
	return &domain.ServiceError{Service: c.service, Op: op, Status: status, Message: msg, Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
