package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// AddResult is the response to an add. Token is set for guest carts,
// UserID for user carts.
type AddResult struct {
	Token  string      `json:"token,omitempty"`
	UserID int64       `json:"userId,omitempty"`
	Pets   []types.Pet `json:"pets"`
}

// IsGuest reports whether the add landed in a guest cart.
func (r AddResult) IsGuest() bool {
	return r.Token != ""
}

// GuestCart is the guest cart response.
type GuestCart struct {
	Token string      `json:"token"`
	Pets  []types.Pet `json:"pets"`
}

// MergeResult is the response to a merge. The server answers with either
// a plain message or the updated cart; HasCart tells which.
type MergeResult struct {
	Message string
	Pets    []types.Pet
	HasCart bool
}

func petQuery(petID int64) (url.Values, error) {
	if petID <= 0 {
		return nil, types.ErrInvalidPetID
	}
	return url.Values{"petId": {strconv.FormatInt(petID, 10)}}, nil
}

// GetUserCart returns the authenticated user's cart.
func (c *Client) GetUserCart(ctx context.Context) ([]types.Pet, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/guest-cart/user-cart"})
	if err != nil {
		return nil, fmt.Errorf("get user cart: %w", err)
	}
	return decodePets(body)
}

// AddToCart adds a pet to the caller's cart: the user cart when the request
// is authenticated, otherwise the guest cart named by token. An empty token
// asks the server to mint one.
func (c *Client) AddToCart(ctx context.Context, petID int64, token string) (AddResult, error) {
	q, err := petQuery(petID)
	if err != nil {
		return AddResult{}, err
	}
	if token != "" {
		q.Set("token", token)
	}
	body, err := c.do(ctx, request{method: http.MethodPost, path: "/guest-cart/add", query: q})
	if err != nil {
		return AddResult{}, fmt.Errorf("add pet %d: %w", petID, err)
	}
	var out AddResult
	if err := json.Unmarshal(body, &out); err != nil {
		return AddResult{}, fmt.Errorf("decode add response: %w", err)
	}
	return out, nil
}

// GetGuestCart returns the guest cart named by token. An unknown token
// yields an empty cart.
func (c *Client) GetGuestCart(ctx context.Context, token string) (GuestCart, error) {
	if token == "" {
		return GuestCart{}, types.ErrNoGuestToken
	}
	body, err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      "/guest-cart",
		query:     url.Values{"token": {token}},
		anonymous: true,
	})
	if err != nil {
		return GuestCart{}, fmt.Errorf("get guest cart: %w", err)
	}
	return decodeGuestCart(body, token)
}

// RemoveFromGuestCart removes a pet from the guest cart named by token.
func (c *Client) RemoveFromGuestCart(ctx context.Context, petID int64, token string) (GuestCart, error) {
	if token == "" {
		return GuestCart{}, types.ErrNoGuestToken
	}
	q, err := petQuery(petID)
	if err != nil {
		return GuestCart{}, err
	}
	q.Set("token", token)
	body, err := c.do(ctx, request{
		method:    http.MethodDelete,
		path:      "/guest-cart/remove",
		query:     q,
		anonymous: true,
	})
	if err != nil {
		return GuestCart{}, fmt.Errorf("remove pet %d from guest cart: %w", petID, err)
	}
	return decodeGuestCart(body, token)
}

// RemoveFromUserCart removes a pet from the authenticated user's cart and
// returns what remains.
func (c *Client) RemoveFromUserCart(ctx context.Context, petID int64) ([]types.Pet, error) {
	q, err := petQuery(petID)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, request{method: http.MethodDelete, path: "/guest-cart/user-cart/remove", query: q})
	if err != nil {
		return nil, fmt.Errorf("remove pet %d from user cart: %w", petID, err)
	}
	return decodePets(body)
}

// ClearUserCart empties the authenticated user's cart.
func (c *Client) ClearUserCart(ctx context.Context) error {
	if _, err := c.do(ctx, request{method: http.MethodDelete, path: "/guest-cart/user-cart/clear"}); err != nil {
		return fmt.Errorf("clear user cart: %w", err)
	}
	return nil
}

// MergeCart folds the guest cart named by token into the authenticated
// user's cart.
func (c *Client) MergeCart(ctx context.Context, token string) (MergeResult, error) {
	if token == "" {
		return MergeResult{}, types.ErrNoGuestToken
	}
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/guest-cart/merge",
		query:  url.Values{"token": {token}},
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge guest cart: %w", err)
	}
	return decodeMerge(body), nil
}

// decodePets reads a pet array. An empty body is an empty cart.
func decodePets(body []byte) ([]types.Pet, error) {
	b := bytes.TrimSpace(body)
	if len(b) == 0 {
		return []types.Pet{}, nil
	}
	var pets []types.Pet
	if err := json.Unmarshal(b, &pets); err != nil {
		return nil, fmt.Errorf("decode pets: %w", err)
	}
	if pets == nil {
		pets = []types.Pet{}
	}
	return pets, nil
}

// decodeGuestCart reads a guest cart object, or the bare array the server
// sends for an unknown token.
func decodeGuestCart(body []byte, token string) (GuestCart, error) {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || b[0] == '[' {
		pets, err := decodePets(b)
		if err != nil {
			return GuestCart{}, err
		}
		return GuestCart{Token: token, Pets: pets}, nil
	}
	var out GuestCart
	if err := json.Unmarshal(b, &out); err != nil {
		return GuestCart{}, fmt.Errorf("decode guest cart: %w", err)
	}
	if out.Token == "" {
		out.Token = token
	}
	if out.Pets == nil {
		out.Pets = []types.Pet{}
	}
	return out, nil
}

func decodeMerge(body []byte) MergeResult {
	b := bytes.TrimSpace(body)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Pets    []types.Pet `json:"pets"`
			Message string      `json:"message"`
		}
		if err := json.Unmarshal(b, &obj); err == nil && obj.Pets != nil {
			return MergeResult{Message: obj.Message, Pets: obj.Pets, HasCart: true}
		}
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return MergeResult{Message: s}
	}
	return MergeResult{Message: string(b)}
}
