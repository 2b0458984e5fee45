package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/replywing/replywing/credentials"
	"github.com/replywing/replywing/internal/config"
	"github.com/replywing/replywing/provider"
	"github.com/replywing/replywing/secrets"
	"github.com/replywing/replywing/server"
	"github.com/replywing/replywing/users"
	fakeuserrepo "github.com/replywing/replywing/users/repofake"
	"github.com/stretchr/testify/require"
)

var (
	firstLogin  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	secondLogin = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

// fakeProvider implements server.ProviderClient.
type fakeProvider struct {
	profile     *provider.Profile
	verifyErr   error
	revokeErr   error
	revokeCalls atomic.Int32
}

func (p *fakeProvider) VerifyCredentials(ctx context.Context, accessToken string) (*provider.Profile, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	profile := *p.profile
	return &profile, nil
}

func (p *fakeProvider) Revoke(ctx context.Context, token string, creds credentials.AppCredentials) error {
	p.revokeCalls.Add(1)
	return p.revokeErr
}

type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	provider *fakeProvider
	server   *server.Server
	now      time.Time
}

// setupTestFixture wires the handler against fakes. Credentials resolve
// from the test environment unless withSecrets is false.
func setupTestFixture(t *testing.T, withSecrets bool) *testFixture {
	t.Helper()

	if withSecrets {
		t.Setenv("TEST_PROVIDER_CLIENT_ID", "app-client-id")
		t.Setenv("TEST_PROVIDER_CLIENT_SECRET", "app-client-secret")
	} else {
		t.Setenv("TEST_PROVIDER_CLIENT_ID", "")
		t.Setenv("TEST_PROVIDER_CLIENT_SECRET", "")
	}

	f := &testFixture{
		userRepo: fakeuserrepo.NewFakeUserRepo(),
		provider: &fakeProvider{profile: &provider.Profile{
			ID:              "42",
			ScreenName:      "wingtester",
			Name:            "Wing Tester",
			ProfileImageURL: "https://img.example/42.png",
		}},
		now: secondLogin,
	}

	f.server = server.New(
		config.Server{AllowedOrigins: []string{"*"}},
		f.userRepo,
		f.provider,
		credentials.NewCache(secrets.NewEnvStore("TEST_")),
		server.WithNowTime(func() time.Time { return f.now }),
	)
	return f
}

func (f *testFixture) do(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginCreatesNewUser(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, "/api/auth/login", `{"accessToken":"at-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	userData, ok := body["userData"].(map[string]any)
	require.True(t, ok, "response must carry userData")
	require.Equal(t, "42", userData["id_str"])
	require.Equal(t, "wingtester", userData["screen_name"])
	require.EqualValues(t, 0, userData["number_requests"])

	stored, err := f.userRepo.Get(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, 0, stored.RequestCount)
	// First login: created and last-login stamps coincide.
	require.Equal(t, stored.CreatedAt, stored.LastLogin)
	require.Equal(t, secondLogin, stored.LastLogin)
}

func TestLoginPreservesCountersAndCreatedAt(t *testing.T) {
	f := setupTestFixture(t, true)
	require.NoError(t, f.userRepo.Upsert(context.Background(), &users.User{
		ID:           "42",
		ScreenName:   "oldhandle",
		Name:         "Old Name",
		CreatedAt:    firstLogin,
		LastLogin:    firstLogin,
		RequestCount: 7,
		IsPaid:       true,
		Budget:       3.5,
	}))

	rec := f.do(t, "/api/auth/login", `{"accessToken":"at-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.userRepo.Get(context.Background(), "42")
	require.NoError(t, err)

	// Usage counters and the creation stamp survive a login untouched.
	require.Equal(t, 7, stored.RequestCount)
	require.Equal(t, firstLogin, stored.CreatedAt)
	require.True(t, stored.IsPaid)
	require.Equal(t, 3.5, stored.Budget)

	// Profile fields are always the latest from the provider.
	require.Equal(t, "wingtester", stored.ScreenName)
	require.Equal(t, "Wing Tester", stored.Name)
	require.Equal(t, secondLogin, stored.LastLogin)
}

func TestLoginProviderFailureIs502(t *testing.T) {
	f := setupTestFixture(t, true)
	f.provider.verifyErr = provider.ErrInvalidProfile

	rec := f.do(t, "/api/auth/login", `{"accessToken":"at-1"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Invalid user data received from provider.", decodeBody(t, rec)["message"])
}

func TestLoginMissingAccessToken(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, "/api/auth/login", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginStoreErrorIsGeneric500(t *testing.T) {
	f := setupTestFixture(t, true)
	f.userRepo.FailWith = errors.New("disk corrupted at sector 7")

	rec := f.do(t, "/api/auth/login", `{"accessToken":"at-1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// Internal detail must not leak.
	require.NotContains(t, rec.Body.String(), "sector 7")
	require.Equal(t, "Internal server error.", decodeBody(t, rec)["message"])
}

func TestLogoutSuccess(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, "/api/auth/logout", `{"tokenToRevoke":"at-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Token revoked successfully.", body["message"])
	require.Equal(t, int32(1), f.provider.revokeCalls.Load())
}

func TestLogoutMissingToken(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, "/api/auth/logout", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, int32(0), f.provider.revokeCalls.Load())
}

func TestLogoutNotRevokedIsFailure(t *testing.T) {
	f := setupTestFixture(t, true)
	f.provider.revokeErr = &provider.RevocationError{
		Reason: provider.ReasonNotRevoked,
		Status: http.StatusOK,
		Body:   `{"revoked":false}`,
	}

	rec := f.do(t, "/api/auth/logout", `{"tokenToRevoke":"at-1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
	// Raw provider output goes to server logs only.
	require.NotContains(t, rec.Body.String(), `"revoked":false`)
	require.Equal(t, "Failed to revoke token.", body["message"])
}

func TestLogoutProviderFailureIsGeneric(t *testing.T) {
	f := setupTestFixture(t, true)
	f.provider.revokeErr = &provider.RevocationError{
		Reason: provider.ReasonFailed,
		Status: http.StatusBadGateway,
		Body:   "upstream exploded with secret detail",
	}

	rec := f.do(t, "/api/auth/logout", `{"tokenToRevoke":"at-1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret detail")
	require.Equal(t, "Failed to revoke token.", decodeBody(t, rec)["message"])
}

func TestLogoutCredentialFailureSkipsRevocation(t *testing.T) {
	f := setupTestFixture(t, false) // no secrets in the environment

	rec := f.do(t, "/api/auth/logout", `{"tokenToRevoke":"at-1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Failed to retrieve application credentials for revocation.", body["message"])

	// A broken credential fetch never reaches the provider.
	require.Equal(t, int32(0), f.provider.revokeCalls.Load())
}

func TestHealthz(t *testing.T) {
	f := setupTestFixture(t, true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
