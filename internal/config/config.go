// Package config loads environment configuration for the backend server
// and the client-side flow.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Server configures the backend deployment.
type Server struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AppName        string   `env:"APP_NAME" envDefault:"ReplyWing"`
	Env            string   `env:"ENV" envDefault:"DEV"`
	DBPath         string   `env:"DB_PATH" envDefault:"./data/replywing.db"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Provider endpoints the backend talks to with user/app credentials.
	ProviderVerifyURL string `env:"PROVIDER_VERIFY_URL" envDefault:"https://api.x.com/1.1/account/verify_credentials.json"`
	ProviderRevokeURL string `env:"PROVIDER_REVOKE_URL" envDefault:"https://api.x.com/2/oauth2/revoke"`
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string {
	return ":" + s.Port
}

// IsDev reports whether the server runs in the development environment.
func (s Server) IsDev() bool {
	return s.Env == "DEV"
}

// Client configures the login flow on the user's machine.
type Client struct {
	ClientID    string   `env:"REPLYWING_CLIENT_ID"`
	AuthURL     string   `env:"REPLYWING_AUTH_URL" envDefault:"https://x.com/i/oauth2/authorize"`
	TokenURL    string   `env:"REPLYWING_TOKEN_URL" envDefault:"https://api.x.com/2/oauth2/token"`
	RedirectURI string   `env:"REPLYWING_REDIRECT_URI" envDefault:"http://127.0.0.1:8976/callback"`
	Scopes      []string `env:"REPLYWING_SCOPES" envSeparator:"," envDefault:"tweet.read,users.read,offline.access"`
	BackendURL  string   `env:"REPLYWING_BACKEND_URL" envDefault:"http://localhost:8080"`
	StateDir    string   `env:"REPLYWING_STATE_DIR"`
}

// LoadServer parses backend configuration from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse server env: %w", err)
	}
	return cfg, nil
}

// LoadClient parses client configuration from the environment. StateDir
// defaults to ~/.replywing.
func LoadClient() (Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return Client{}, fmt.Errorf("parse client env: %w", err)
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Client{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.StateDir = filepath.Join(home, ".replywing")
	}
	return cfg, nil
}
