// Package provider is the backend's client for the platform's identity and
// revocation endpoints.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/replywing/replywing/credentials"
)

// Profile is the minimal identity payload fetched with a user's access
// token.
type Profile struct {
	ID              string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

// Client calls the provider's verify-identity and revocation endpoints.
type Client struct {
	verifyURL  string
	revokeURL  string
	httpClient *http.Client
}

// NewClient creates a provider client. A nil httpClient gets a default with
// a 15 second timeout.
func NewClient(verifyURL, revokeURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		verifyURL:  verifyURL,
		revokeURL:  revokeURL,
		httpClient: httpClient,
	}
}

// VerifyCredentials resolves an access token to the user's identity. Any
// transport failure, non-2xx status or payload without an identity id is
// ErrInvalidProfile.
func (c *Client) VerifyCredentials(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.verifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: identity endpoint returned %d", ErrInvalidProfile, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: payload missing identity id", ErrInvalidProfile)
	}
	return &profile, nil
}

// Revoke invalidates an access token using the backend's app credentials
// for Basic auth. The provider frequently answers 200 with an empty body to
// mean "revoked or already revoked"; that counts as success. A 200 carrying
// {"revoked": false} is a failure, as is any non-2xx or unparseable
// non-empty body.
func (c *Client) Revoke(ctx context.Context, token string, creds credentials.AppCredentials) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", creds.ClientID)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// The provider expects the client id/secret URL-encoded inside the
	// Basic auth value.
	req.SetBasicAuth(url.QueryEscape(creds.ClientID), url.QueryEscape(creds.ClientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read revocation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RevocationError{Reason: ReasonFailed, Status: resp.StatusCode, Body: string(body)}
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	var result struct {
		Revoked *bool `json:"revoked"`
	}
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return &RevocationError{Reason: ReasonFailed, Status: resp.StatusCode, Body: trimmed}
	}
	if result.Revoked != nil && !*result.Revoked {
		return &RevocationError{Reason: ReasonNotRevoked, Status: resp.StatusCode, Body: trimmed}
	}
	return nil
}
