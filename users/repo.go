package users

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists for an identity id.
var ErrNotFound = errors.New("user not found")

// Repo stores user records keyed by identity id. Upserts are
// last-writer-wins on profile fields; callers doing read-modify-write of
// RequestCount/CreatedAt accept the documented lost-update race under
// concurrent logins for the same user.
type Repo interface {
	Get(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, user *User) error
}
