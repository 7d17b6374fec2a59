package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Client errors.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrSessionExpired   = errors.New("session expired, log in again")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidPetID     = errors.New("pet id must be positive")
	ErrNoGuestToken     = errors.New("no guest cart token")
)

// GenericErrorMessage is shown when the server gave no usable message.
const GenericErrorMessage = "request failed"

// APIError is a non-2xx response from the cart API. Message is the
// server-provided text, or GenericErrorMessage.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401 APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// UserMessage returns the text to show a user for err: the server message
// for API errors, the error text otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
