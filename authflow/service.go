// Package authflow drives the client half of the Authorization-Code-with-
// PKCE login: it launches the interactive redirect, correlates the callback
// against the stored transaction, exchanges the code for tokens, syncs the
// user record with the backend, and owns the session lifecycle.
package authflow

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/replywing/replywing/authflow/txnrepo"
	"github.com/replywing/replywing/backendapi"
	"github.com/replywing/replywing/pkce"
	"github.com/replywing/replywing/session"
)

// Action types recorded for the UI layer.
const (
	actionLogin  = "login"
	actionLogout = "logout"
)

// Backend is the subset of the backend API the flow needs.
type Backend interface {
	Login(ctx context.Context, accessToken string) (*backendapi.UserData, error)
	Logout(ctx context.Context, tokenToRevoke string) error
}

// Config holds the provider endpoints and client registration for the flow.
type Config struct {
	ClientID    string
	AuthURL     string
	TokenURL    string
	RedirectURI string
	Scopes      []string
}

// Service orchestrates login and logout. It is the single place that maps a
// flow failure to a user-visible message and records the last-action entry.
type Service struct {
	cfg       Config
	txns      txnrepo.Repo
	sessions  session.Repo
	exchanger *Exchanger
	backend   Backend
	nowTime   func() time.Time
}

// Option modifies a Service.
type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithExchanger replaces the token exchange client (primarily for testing).
func WithExchanger(e *Exchanger) Option {
	return func(s *Service) {
		s.exchanger = e
	}
}

// New creates a flow service. All dependencies are required.
func New(cfg Config, txns txnrepo.Repo, sessions session.Repo, backend Backend, options ...Option) (*Service, error) {
	if txns == nil {
		return nil, errors.New("[authflow.New] transaction repo is required")
	}
	if sessions == nil {
		return nil, errors.New("[authflow.New] session repo is required")
	}
	if backend == nil {
		return nil, errors.New("[authflow.New] backend client is required")
	}
	if cfg.ClientID == "" || cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.RedirectURI == "" {
		return nil, errors.New("[authflow.New] client id and provider endpoints are required")
	}

	s := &Service{
		cfg:       cfg,
		txns:      txns,
		sessions:  sessions,
		backend:   backend,
		exchanger: NewExchanger(cfg.TokenURL, cfg.ClientID, nil),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Begin starts a new login attempt: it persists a fresh transaction
// (replacing any stale one) and returns the authorization URL to open in
// the browser. It does not block on completion; HandleRedirect is invoked
// when the provider redirects back.
func (s *Service) Begin(ctx context.Context) (string, error) {
	challenge := pkce.CreateChallenge()
	state := pkce.CreateState()

	if err := s.txns.Put(&txnrepo.Transaction{
		State:        state,
		CodeVerifier: challenge.Verifier,
		RedirectURI:  s.cfg.RedirectURI,
		CreatedAt:    s.nowTime(),
	}); err != nil {
		return "", errors.Join(errors.New("[Begin] persisting transaction"), err)
	}

	conf := &oauth2.Config{
		ClientID:    s.cfg.ClientID,
		RedirectURL: s.cfg.RedirectURI,
		Scopes:      s.cfg.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: s.cfg.AuthURL, TokenURL: s.cfg.TokenURL},
	}
	authURL := conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	log.Debug().Str("redirect_uri", s.cfg.RedirectURI).Msg("login flow started")
	return authURL, nil
}

// HandleRedirect consumes the redirect callback. The stored transaction is
// deleted on every outcome: the code verifier is single-use and must not
// remain in storage. On success the exchanged tokens and synced profile are
// committed as the new session.
func (s *Service) HandleRedirect(ctx context.Context, rawURL string) (*session.Session, error) {
	sess, err := s.completeLogin(ctx, rawURL)
	if err != nil {
		s.recordAction(actionLogin, session.StatusError, userMessage(err))
		return nil, err
	}
	s.recordAction(actionLogin, session.StatusSuccess, "Logged in as @"+sess.Profile.Handle)
	return sess, nil
}

func (s *Service) completeLogin(ctx context.Context, rawURL string) (*session.Session, error) {
	txn, err := s.txns.Get()
	if err != nil {
		return nil, &FlowError{Kind: KindStateMismatch, Message: "no pending login transaction", Err: err}
	}
	// Single-use: whatever happens below, the verifier must not survive.
	defer func() {
		if err := s.txns.Delete(); err != nil {
			log.Error().Err(err).Msg("failed to clear login transaction")
		}
	}()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FlowError{Kind: KindMissingCode, Message: "malformed redirect URL", Err: err}
	}
	query := u.Query()

	if provErr := query.Get("error"); provErr != "" {
		msg := provErr
		if desc := query.Get("error_description"); desc != "" {
			msg += ": " + desc
		}
		return nil, flowErrorf(KindProviderError, "provider returned %s", msg)
	}
	if query.Get("state") != txn.State {
		return nil, flowErrorf(KindStateMismatch, "redirect state does not match pending transaction")
	}
	code := query.Get("code")
	if code == "" {
		return nil, flowErrorf(KindMissingCode, "redirect is missing the authorization code")
	}

	tokens, err := s.exchanger.Exchange(ctx, code, txn.CodeVerifier, txn.RedirectURI)
	if err != nil {
		return nil, err
	}

	userData, err := s.backend.Login(ctx, tokens.AccessToken)
	if err != nil {
		return nil, &FlowError{Kind: KindBackendLogin, Message: backendMessage(err), Err: err}
	}

	sess := session.New(session.Tokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		Scope:        tokens.Scope,
	}, session.ProfileFromUserData(*userData), s.nowTime())

	if err := s.sessions.Commit(sess); err != nil {
		return nil, &FlowError{Kind: KindBackendLogin, Message: "failed to store session", Err: err}
	}

	log.Info().Str("handle", sess.Profile.Handle).Msg("login complete")
	return sess, nil
}

// Logout asks the backend to revoke the current access token and clears the
// session only on confirmed revocation. On failure the session is kept so
// the user can retry revocation with the same token.
func (s *Service) Logout(ctx context.Context) error {
	sess, err := s.sessions.Get()
	if err != nil {
		return errors.Join(errors.New("[Logout] no session to revoke"), err)
	}

	if err := s.backend.Logout(ctx, sess.AccessToken); err != nil {
		flowErr := &FlowError{Kind: KindRevocation, Message: "failed to revoke token", Err: err}
		s.recordAction(actionLogout, session.StatusError, flowErr.Message)
		return flowErr
	}

	if err := s.sessions.Clear(); err != nil {
		return errors.Join(errors.New("[Logout] clearing session"), err)
	}
	s.recordAction(actionLogout, session.StatusSuccess, "Logged out")
	log.Info().Msg("logout complete")
	return nil
}

func (s *Service) recordAction(actionType, status, message string) {
	err := s.sessions.RecordLastAction(session.ActionRecord{
		Type:      actionType,
		Status:    status,
		Message:   message,
		Timestamp: s.nowTime(),
	})
	if err != nil {
		log.Error().Err(err).Str("action", actionType).Msg("failed to record action result")
	}
}

// userMessage maps a flow failure kind to the message shown to the user.
func userMessage(err error) string {
	var fe *FlowError
	if !errors.As(err, &fe) {
		return "Login failed"
	}
	switch fe.Kind {
	case KindStateMismatch:
		return "Login failed: the redirect could not be verified. Please try again."
	case KindProviderError:
		return "Login failed: " + fe.Message
	case KindMissingCode:
		return "Login failed: the provider did not return an authorization code."
	case KindTokenExchange:
		return "Login failed while exchanging the authorization code. Please try again."
	case KindBackendLogin:
		return "Login failed: " + fe.Message
	}
	return "Login failed"
}

// backendMessage surfaces the backend-supplied message when one exists.
func backendMessage(err error) string {
	var apiErr *backendapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "backend login failed"
}
