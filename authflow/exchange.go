package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenResponse is the provider token endpoint response. AccessToken is the
// only required field; the rest are best-effort.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// Error fields may appear even on a 2xx response.
	ProviderError    string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Exchanger swaps an authorization code plus its PKCE verifier for tokens.
//
// The exchange is never retried: authorization codes are single-use, and a
// retry after a transient failure would present an already-spent code. For
// that reason the Exchanger uses a plain http.Client rather than the
// retrying rate-limited client used for backend calls.
type Exchanger struct {
	tokenURL   string
	clientID   string
	httpClient *http.Client
}

// NewExchanger creates a token exchange client. A nil httpClient gets a
// default with a 30 second timeout.
func NewExchanger(tokenURL, clientID string, httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Exchanger{
		tokenURL:   tokenURL,
		clientID:   clientID,
		httpClient: httpClient,
	}
}

// Exchange POSTs the authorization code and code verifier to the token
// endpoint. Any of the following is a KindTokenExchange failure: a non-2xx
// response, a 2xx body carrying an error field, or a 2xx body missing
// access_token.
func (e *Exchanger) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", e.clientID)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &FlowError{Kind: KindTokenExchange, Message: "building token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &FlowError{Kind: KindTokenExchange, Message: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FlowError{Kind: KindTokenExchange, Message: "reading token response", Err: err}
	}

	var tr TokenResponse
	// Error bodies are JSON too; decode regardless of status so the
	// provider's error/error_description survive into the failure.
	_ = json.Unmarshal(body, &tr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, flowErrorf(KindTokenExchange, "token endpoint returned %d%s", resp.StatusCode, providerDetail(tr))
	}
	if tr.ProviderError != "" {
		return nil, flowErrorf(KindTokenExchange, "provider rejected exchange%s", providerDetail(tr))
	}
	if tr.AccessToken == "" {
		return nil, flowErrorf(KindTokenExchange, "token response missing access_token")
	}

	return &tr, nil
}

func providerDetail(tr TokenResponse) string {
	if tr.ProviderError == "" {
		return ""
	}
	detail := ": " + tr.ProviderError
	if tr.ErrorDescription != "" {
		detail += fmt.Sprintf(" (%s)", tr.ErrorDescription)
	}
	return detail
}
