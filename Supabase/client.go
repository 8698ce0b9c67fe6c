// Package Supabase is a small client for the hosted project's identity admin
// API and the REST interface over the employees table.
package Supabase

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

	"ClientMax/Models"
)

const (
	authPath      = "/auth/v1"
	restPath      = "/rest/v1"
	employeesPath = restPath + "/employees"
	usersPerPage  = 1000
)

type AuthUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

// Confirmed reports whether the email address has been confirmed.
func (u AuthUser) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}

// EmployeeRow is the employees table as the REST API returns it.
type EmployeeRow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	AuthUserID *string `json:"auth_user_id"`
}

// Client authenticates every call with the service-role key.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewClient returns a client for the project at baseURL. httpClient may be nil.
func NewClient(baseURL, serviceRoleKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        serviceRoleKey,
		httpClient: httpClient,
	}
}

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, prefer string) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("supabase: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to read response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
		Message:    errorMessage(data, resp.Status),
	}
}

// errorMessage picks the message out of the auth ({msg}) or REST ({message})
// error shapes, falling back to the raw body.
func errorMessage(data []byte, status string) string {
	var shape struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(data, &shape) == nil {
		for _, m := range []string{shape.Msg, shape.Message, shape.ErrorDescription, shape.Error} {
			if m != "" {
				return m
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	return status
}

// ListUsers returns the first page of auth users.
func (c *Client) ListUsers(ctx context.Context) ([]AuthUser, error) {
	query := url.Values{"per_page": {fmt.Sprint(usersPerPage)}}
	data, err := c.do(ctx, http.MethodGet, authPath+"/admin/users", query, nil, "")
	if err != nil {
		return nil, err
	}
	var page struct {
		Users []AuthUser `json:"users"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("supabase: invalid users response: %w", err)
	}
	return page.Users, nil
}

// FindUserByEmail matches the email exactly.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return AuthUser{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return AuthUser{}, fmt.Errorf("auth user %s: %w", email, Models.ErrNotFound)
}

// CreateUser creates a confirmed auth user. An existing registration is
// reported as ErrAuthConflict.
func (c *Client) CreateUser(ctx context.Context, email, password string) (AuthUser, error) {
	data, err := c.do(ctx, http.MethodPost, authPath+"/admin/users", nil, map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}, "")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && alreadyRegistered(apiErr.Message) {
			return AuthUser{}, fmt.Errorf("%s: %w", email, ErrAuthConflict)
		}
		return AuthUser{}, err
	}

	var created struct {
		AuthUser
		User *AuthUser `json:"user"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return AuthUser{}, fmt.Errorf("supabase: invalid user response: %w", err)
	}
	if created.ID == "" && created.User != nil {
		return *created.User, nil
	}
	if created.ID == "" {
		return AuthUser{}, fmt.Errorf("supabase: invalid user response for %s: missing id", email)
	}
	return created.AuthUser, nil
}

// decodeRows accepts both a single object and an array of rows.
func decodeRows(data []byte) ([]EmployeeRow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var row EmployeeRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("supabase: invalid employee response: %w", err)
		}
		return []EmployeeRow{row}, nil
	}
	var rows []EmployeeRow
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("supabase: invalid employee response: %w", err)
	}
	return rows, nil
}

func firstRow(rows []EmployeeRow, what string) (EmployeeRow, error) {
	if len(rows) == 0 {
		return EmployeeRow{}, fmt.Errorf("employee %s: %w", what, Models.ErrNotFound)
	}
	return rows[0], nil
}

// FindEmployeeByEmail fetches the employee row with the given email.
func (c *Client) FindEmployeeByEmail(ctx context.Context, email string) (EmployeeRow, error) {
	query := url.Values{"email": {"eq." + email}, "select": {"*"}}
	data, err := c.do(ctx, http.MethodGet, employeesPath, query, nil, "")
	if err != nil {
		return EmployeeRow{}, err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return EmployeeRow{}, err
	}
	return firstRow(rows, email)
}

// CreateEmployee inserts a row and returns it.
func (c *Client) CreateEmployee(ctx context.Context, row EmployeeRow) (EmployeeRow, error) {
	body := map[string]interface{}{"name": row.Name, "email": row.Email, "role": row.Role}
	if row.AuthUserID != nil {
		body["auth_user_id"] = *row.AuthUserID
	}
	data, err := c.do(ctx, http.MethodPost, employeesPath, nil, body, "return=representation")
	if err != nil {
		return EmployeeRow{}, err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return EmployeeRow{}, err
	}
	if len(rows) == 0 {
		return c.FindEmployeeByEmail(ctx, row.Email)
	}
	return rows[0], nil
}

// UpsertEmployee merges on the unique email. When the merge is rejected the
// existing row is patched by email instead. An empty response is resolved by
// fetching the row.
func (c *Client) UpsertEmployee(ctx context.Context, name, email, role string) (EmployeeRow, error) {
	data, err := c.do(ctx, http.MethodPost, employeesPath, url.Values{"on_conflict": {"email"}},
		map[string]interface{}{"name": name, "email": email, "role": role},
		"resolution=merge-duplicates,return=representation")
	if err != nil {
		if IsNetwork(err) {
			return EmployeeRow{}, err
		}
		data, err = c.do(ctx, http.MethodPatch, employeesPath, url.Values{"email": {"eq." + email}},
			map[string]interface{}{"name": name, "role": role},
			"return=representation")
		if err != nil {
			return EmployeeRow{}, fmt.Errorf("failed to create/update employee: %w", err)
		}
	}

	rows, err := decodeRows(data)
	if err != nil {
		return EmployeeRow{}, err
	}
	if len(rows) == 0 {
		return c.FindEmployeeByEmail(ctx, email)
	}
	return rows[0], nil
}

// UpdateEmployee patches the row with the given id.
func (c *Client) UpdateEmployee(ctx context.Context, id string, fields map[string]interface{}) (EmployeeRow, error) {
	data, err := c.do(ctx, http.MethodPatch, employeesPath, url.Values{"id": {"eq." + id}}, fields, "return=representation")
	if err != nil {
		return EmployeeRow{}, err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return EmployeeRow{}, err
	}
	return firstRow(rows, id)
}
