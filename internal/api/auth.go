package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	types.Credentials
	User types.User `json:"user"`
}

// Login exchanges a username and password for session tokens. It does not
// store them; session.Manager does.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body, err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		form:      url.Values{"username": {username}, "password": {password}},
		anonymous: true,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	var out LoginResult
	if err := json.Unmarshal(body, &out); err != nil {
		return LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}
	if out.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("login: response has no access token")
	}
	return out, nil
}
