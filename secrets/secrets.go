// Package secrets abstracts the store holding the backend's own provider
// app credentials.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when a secret is missing or empty.
var ErrNotFound = errors.New("secret not found")

// Names of the secrets the backend relies on.
const (
	ProviderClientID     = "PROVIDER_CLIENT_ID"
	ProviderClientSecret = "PROVIDER_CLIENT_SECRET"
)

// Store fetches named secrets. The store is read-only from the backend's
// perspective.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvStore reads secrets from process environment variables, optionally
// under a prefix.
type EnvStore struct {
	prefix string
}

var _ Store = EnvStore{}

func NewEnvStore(prefix string) EnvStore {
	return EnvStore{prefix: prefix}
}

func (s EnvStore) Get(ctx context.Context, name string) (string, error) {
	value := os.Getenv(s.prefix + name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, s.prefix+name)
	}
	return value, nil
}
