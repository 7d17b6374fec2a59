// Package api is the HTTP client for the pet-adoption cart and auth
// endpoints. Every request carries the stored bearer token; a 401 triggers
// one refresh-token exchange and one retry, and a failed refresh clears the
// stored credentials and fires the session-expired hook.
package api

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
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// HeaderRequestID carries a per-request UUID for correlating client and
// server logs.
const HeaderRequestID = "X-Request-ID"

// maxErrorBody bounds how much of an error response is read for the message.
const maxErrorBody = 4 << 10

// Credentials is where the client reads and writes session tokens.
type Credentials interface {
	Tokens() (types.Credentials, error)
	SetTokens(c types.Credentials) error
	Clear() error
}

// Client talks to the cart API.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     Credentials
	logger    *zap.Logger
	onExpired func()

	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionExpiredHook sets fn to run after a failed refresh has cleared
// the stored credentials. The CLI uses it to send the user back to login.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: types.DefaultRequestTimeout},
		creds:   creds,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call. Bodies are rebuilt on every attempt so a
// retried request is identical to the original.
type request struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	json   any

	// anonymous requests carry no bearer and never refresh.
	anonymous bool
}

func (r request) body() (io.Reader, string, error) {
	switch {
	case r.form != nil:
		return strings.NewReader(r.form.Encode()), "application/x-www-form-urlencoded", nil
	case r.json != nil:
		b, err := json.Marshal(r.json)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	default:
		return nil, "", nil
	}
}

// do sends req and returns the raw success body. It owns the 401 handling.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var tokens types.Credentials
	if !req.anonymous && c.creds != nil {
		t, err := c.creds.Tokens()
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		tokens = t
	}

	status, body, err := c.send(ctx, req, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !req.anonymous && tokens.RefreshToken != "" {
		access, err := c.refresh(ctx, tokens)
		if ctx.Err() != nil {
			// The caller gave up; the shared exchange decides the session.
			return nil, ctx.Err()
		}
		if err != nil {
			c.expire(err)
			return nil, fmt.Errorf("%w: %v", types.ErrSessionExpired, err)
		}
		status, body, err = c.send(ctx, req, access)
		if err != nil {
			return nil, err
		}
	}

	if status >= http.StatusBadRequest {
		return nil, &types.APIError{StatusCode: status, Message: errorMessage(body)}
	}
	return body, nil
}

// send performs a single HTTP round trip.
func (c *Client) send(ctx context.Context, req request, bearer string) (int, []byte, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	body, contentType, err := req.body()
	if err != nil {
		return 0, nil, err
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		hr.Header.Set("Content-Type", contentType)
	}
	hr.Header.Set("Accept", "application/json")
	if bearer != "" {
		hr.Header.Set("Authorization", "Bearer "+bearer)
	}
	reqID := uuid.NewString()
	hr.Header.Set(HeaderRequestID, reqID)

	start := time.Now()
	resp, err := c.http.Do(hr)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}

	c.logger.Debug("api request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("elapsed", time.Since(start)))

	return resp.StatusCode, data, nil
}

// refresh exchanges the refresh token for a new access token. Concurrent
// 401s share one exchange. If another caller already refreshed, the stored
// access token differs from the one that failed and is reused as is.
// The exchange runs detached from ctx so one cancelled caller cannot fail
// the others waiting on it.
func (c *Client) refresh(ctx context.Context, used types.Credentials) (string, error) {
	exchangeCtx := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		current, err := c.creds.Tokens()
		if err != nil {
			return "", fmt.Errorf("read credentials: %w", err)
		}
		if current.AccessToken != "" && current.AccessToken != used.AccessToken {
			return current.AccessToken, nil
		}
		if current.RefreshToken == "" {
			return "", errors.New("no refresh token")
		}

		body, err := c.do(exchangeCtx, request{
			method:    http.MethodPost,
			path:      "/auth/refresh",
			json:      map[string]string{"refreshToken": current.RefreshToken},
			anonymous: true,
		})
		if err != nil {
			return "", err
		}
		var out types.Credentials
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}
		if out.AccessToken == "" {
			return "", errors.New("refresh response has no access token")
		}
		if out.RefreshToken == "" {
			out.RefreshToken = current.RefreshToken
		}
		if err := c.creds.SetTokens(out); err != nil {
			return "", fmt.Errorf("store credentials: %w", err)
		}
		c.logger.Info("access token refreshed")
		return out.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// expire clears local credentials after a failed refresh.
func (c *Client) expire(cause error) {
	c.logger.Warn("refresh failed, clearing session", zap.Error(cause))
	if err := c.creds.Clear(); err != nil {
		c.logger.Error("clear credentials", zap.Error(err))
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

// errorMessage extracts the server message from an error body: a JSON
// string, a JSON object with message or error, or plain text.
func errorMessage(body []byte) string {
	b := bytes.TrimSpace(body)
	if len(b) == 0 {
		return types.GenericErrorMessage
	}
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
		return types.GenericErrorMessage
	}
	if json.Valid(b) {
		return types.GenericErrorMessage
	}
	return string(b)
}
