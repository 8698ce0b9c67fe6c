package Supabase

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrAuthConflict is returned by CreateUser when the email is already registered.
var ErrAuthConflict = errors.New("auth user already registered")

// APIError is a non-2xx response from the auth or REST API.
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == 401 { ... }
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// NetworkError means the project could not be reached at all.
type NetworkError struct {
	URL string
	DNS bool
	Err error
}

func (e *NetworkError) Error() string {
	if e.DNS {
		return fmt.Sprintf("network error: cannot resolve %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error: cannot reach %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func networkError(baseURL string, err error) error {
	var dnsErr *net.DNSError
	return &NetworkError{URL: baseURL, DNS: errors.As(err, &dnsErr), Err: err}
}

// IsNetwork reports whether err is a *NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// alreadyRegistered matches the auth API's duplicate-user messages.
func alreadyRegistered(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "already") || strings.Contains(m, "registered") || strings.Contains(m, "exists")
}
