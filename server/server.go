// Package server implements the stateless backend auth handler: the login
// operation that verifies a provider access token and syncs the canonical
// user record, and the logout operation that revokes a token with the
// provider.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/replywing/replywing/credentials"
	"github.com/replywing/replywing/internal/config"
	"github.com/replywing/replywing/provider"
	"github.com/replywing/replywing/users"
)

// ProviderClient is the slice of the provider API the handlers need:
// resolving an access token to an identity and revoking a token.
type ProviderClient interface {
	VerifyCredentials(ctx context.Context, accessToken string) (*provider.Profile, error)
	Revoke(ctx context.Context, token string, creds credentials.AppCredentials) error
}

type Server struct {
	config   config.Server
	router   chi.Router
	users    users.Repo
	provider ProviderClient
	creds    *credentials.Cache
	nowTime  func() time.Time
}

// Option modifies a Server.
type Option func(*Server)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// New creates the backend handler with its collaborators wired.
func New(cfg config.Server, userRepo users.Repo, providerClient ProviderClient, credCache *credentials.Cache, options ...Option) *Server {
	s := &Server{
		config:   cfg,
		users:    userRepo,
		provider: providerClient,
		creds:    credCache,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.HealthzHandler())
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.LoginHandler())
		r.Post("/logout", s.LogoutHandler())
	})

	s.router = r
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
