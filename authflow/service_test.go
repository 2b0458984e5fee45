package authflow_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/replywing/replywing/authflow"
	"github.com/replywing/replywing/authflow/txnrepo"
	"github.com/replywing/replywing/backendapi"
	"github.com/replywing/replywing/session"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeBackend implements authflow.Backend.
type fakeBackend struct {
	loginErr   error
	logoutErr  error
	userData   backendapi.UserData
	loginCalls int
}

func (b *fakeBackend) Login(ctx context.Context, accessToken string) (*backendapi.UserData, error) {
	b.loginCalls++
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	ud := b.userData
	return &ud, nil
}

func (b *fakeBackend) Logout(ctx context.Context, tokenToRevoke string) error {
	return b.logoutErr
}

type testFixture struct {
	txns     *txnrepo.InMemoryRepo
	sessions *session.InMemoryRepo
	backend  *fakeBackend
	service  *authflow.Service
	tokenSrv *httptest.Server
}

func setupTestFixture(t *testing.T, tokenHandler http.HandlerFunc) *testFixture {
	t.Helper()

	if tokenHandler == nil {
		tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":7200,"scope":"tweet.read users.read"}`))
		}
	}
	tokenSrv := httptest.NewServer(tokenHandler)
	t.Cleanup(tokenSrv.Close)

	f := &testFixture{
		txns:     txnrepo.NewInMemoryRepo(),
		sessions: session.NewInMemoryRepo(),
		backend: &fakeBackend{userData: backendapi.UserData{
			ID:           "42",
			ScreenName:   "wingtester",
			Name:         "Wing Tester",
			RequestCount: 7,
		}},
		tokenSrv: tokenSrv,
	}

	svc, err := authflow.New(authflow.Config{
		ClientID:    testClientID,
		AuthURL:     "https://provider.example/oauth2/authorize",
		TokenURL:    tokenSrv.URL,
		RedirectURI: testRedirectURI,
		Scopes:      []string{"tweet.read", "users.read"},
	}, f.txns, f.sessions, f.backend,
		authflow.WithNowTime(func() time.Time { return testNow }),
		authflow.WithExchanger(authflow.NewExchanger(tokenSrv.URL, testClientID, nil)),
	)
	require.NoError(t, err)

	f.service = svc
	return f
}

// begin starts a flow and returns the state the launcher generated.
func (f *testFixture) begin(t *testing.T) string {
	t.Helper()

	authURL, err := f.service.Begin(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func redirectURL(params url.Values) string {
	return testRedirectURI + "?" + params.Encode()
}

func TestBeginBuildsAuthorizationURL(t *testing.T) {
	f := setupTestFixture(t, nil)

	authURL, err := f.service.Begin(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()

	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, "tweet.read users.read", q.Get("scope"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("code_challenge"))

	// The transaction backing the URL is persisted.
	txn, err := f.txns.Get()
	require.NoError(t, err)
	require.Equal(t, q.Get("state"), txn.State)
	require.NotEmpty(t, txn.CodeVerifier)
}

func TestBeginReplacesStaleTransaction(t *testing.T) {
	f := setupTestFixture(t, nil)

	firstState := f.begin(t)
	secondState := f.begin(t)
	require.NotEqual(t, firstState, secondState)

	// The first state is orphaned: a redirect carrying it never matches.
	txn, err := f.txns.Get()
	require.NoError(t, err)
	require.Equal(t, secondState, txn.State)
}

func TestHandleRedirectProviderError(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.begin(t)

	_, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"error":             {"access_denied"},
		"error_description": {"user cancelled"},
	}))
	require.Equal(t, authflow.KindProviderError, authflow.KindOf(err))
	require.Contains(t, err.Error(), "access_denied")

	// Transaction is cleared on failure too.
	_, err = f.txns.Get()
	require.ErrorIs(t, err, txnrepo.ErrNotFound)
}

func TestHandleRedirectStateMismatch(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.begin(t)

	_, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"state": {"forged-state"},
		"code":  {"code-1"},
	}))
	require.Equal(t, authflow.KindStateMismatch, authflow.KindOf(err))

	// Never recovered: the transaction store is cleared regardless.
	_, err = f.txns.Get()
	require.ErrorIs(t, err, txnrepo.ErrNotFound)

	// Failure is recorded for the UI toast.
	rec, err := f.sessions.LastAction()
	require.NoError(t, err)
	require.Equal(t, "login", rec.Type)
	require.Equal(t, session.StatusError, rec.Status)
}

func TestHandleRedirectMissingCode(t *testing.T) {
	f := setupTestFixture(t, nil)
	state := f.begin(t)

	_, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"state": {state},
	}))
	require.Equal(t, authflow.KindMissingCode, authflow.KindOf(err))
}

func TestHandleRedirectWithoutPendingTransaction(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"state": {"anything"},
		"code":  {"code-1"},
	}))
	require.Equal(t, authflow.KindStateMismatch, authflow.KindOf(err))
}

func TestHandleRedirectSuccess(t *testing.T) {
	f := setupTestFixture(t, nil)
	state := f.begin(t)

	sess, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"state": {state},
		"code":  {"code-1"},
	}))
	require.NoError(t, err)

	require.Equal(t, "at-1", sess.AccessToken)
	require.Equal(t, "rt-1", sess.RefreshToken)
	require.Equal(t, testNow.Add(7200*time.Second), sess.ExpiresAt)
	require.Equal(t, []string{"tweet.read", "users.read"}, sess.GrantedScopes)
	require.Equal(t, "wingtester", sess.Profile.Handle)
	require.Equal(t, 7, sess.Profile.RequestCount)

	// Committed, transaction consumed, action recorded.
	stored, err := f.sessions.Get()
	require.NoError(t, err)
	require.Equal(t, sess.AccessToken, stored.AccessToken)

	_, err = f.txns.Get()
	require.ErrorIs(t, err, txnrepo.ErrNotFound)

	rec, err := f.sessions.LastAction()
	require.NoError(t, err)
	require.Equal(t, session.StatusSuccess, rec.Status)
	require.Equal(t, testNow, rec.Timestamp)
}

func TestHandleRedirectBackendFailure(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.backend.loginErr = &backendapi.APIError{StatusCode: 502, Message: "Invalid user data received from provider."}
	state := f.begin(t)

	_, err := f.service.HandleRedirect(context.Background(), redirectURL(url.Values{
		"state": {state},
		"code":  {"code-1"},
	}))
	require.Equal(t, authflow.KindBackendLogin, authflow.KindOf(err))
	require.Contains(t, err.Error(), "Invalid user data received from provider.")

	// Nothing was committed.
	_, err = f.sessions.Get()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogoutClearsSessionOnSuccess(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.sessions.Commit(&session.Session{AccessToken: "at-1"}))

	require.NoError(t, f.service.Logout(context.Background()))

	_, err := f.sessions.Get()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogoutKeepsSessionOnFailure(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.sessions.Commit(&session.Session{AccessToken: "at-1"}))
	f.backend.logoutErr = &backendapi.APIError{StatusCode: 500, Message: "Failed to revoke token."}

	err := f.service.Logout(context.Background())
	require.Equal(t, authflow.KindRevocation, authflow.KindOf(err))

	// The user stays logged in locally so revocation can be retried with
	// the same token.
	stored, err := f.sessions.Get()
	require.NoError(t, err)
	require.Equal(t, "at-1", stored.AccessToken)
}

func TestLogoutWithoutSession(t *testing.T) {
	f := setupTestFixture(t, nil)

	err := f.service.Logout(context.Background())
	require.True(t, errors.Is(err, session.ErrNoSession))
}
