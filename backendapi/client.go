// Package backendapi is the client for the ReplyWing backend's auth
// operations: login (sync the canonical user record) and logout (revoke a
// token). Requests go through an injected rate-limited HTTP client.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	loginPath  = "/api/auth/login"
	logoutPath = "/api/auth/logout"
)

// UserData is the canonical user record as the backend serves it.
type UserData struct {
	ID                   string  `json:"id_str"`
	ScreenName           string  `json:"screen_name"`
	Name                 string  `json:"name"`
	ProfileImageURL      string  `json:"profile_image_url_https"`
	RequestCount         int     `json:"number_requests"`
	IsPaid               bool    `json:"is_paid"`
	Budget               float64 `json:"budget"`
	VideoDownloadsBudget int     `json:"video_downloads_budget"`
	VideoDownloaded      int     `json:"video_downloaded"`
}

// APIError is a backend response outside the operation's success contract.
// Message carries the backend-supplied message when one was present, else
// the HTTP status text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Doer issues HTTP requests. The production implementation is the
// rate-limited retrying client; tests inject http.Client against a fake
// backend.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the backend auth operations.
type Client struct {
	baseURL string
	doer    Doer
}

func NewClient(baseURL string, doer Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{baseURL: baseURL, doer: doer}
}

// Login exchanges a provider access token for the canonical user record.
// Success is HTTP 200 with a userData object; anything else is an APIError.
func (c *Client) Login(ctx context.Context, accessToken string) (*UserData, error) {
	var out struct {
		Message  string    `json:"message"`
		UserData *UserData `json:"userData"`
	}

	status, err := c.post(ctx, loginPath, map[string]string{"accessToken": accessToken}, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Message: messageOrStatus(out.Message, status)}
	}
	if out.UserData == nil {
		return nil, &APIError{StatusCode: status, Message: "login response missing userData"}
	}
	return out.UserData, nil
}

// Logout asks the backend to revoke the given token. Only an explicit
// {success: true} counts as revoked.
func (c *Client) Logout(ctx context.Context, tokenToRevoke string) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	status, err := c.post(ctx, logoutPath, map[string]string{"tokenToRevoke": tokenToRevoke}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !out.Success {
		return &APIError{StatusCode: status, Message: messageOrStatus(out.Message, status)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	// Decode best-effort: error responses share the {message} envelope, and
	// a non-JSON body just leaves the target zeroed.
	_ = json.NewDecoder(resp.Body).Decode(out)
	return resp.StatusCode, nil
}

func messageOrStatus(message string, status int) string {
	if message != "" {
		return message
	}
	return http.StatusText(status)
}
