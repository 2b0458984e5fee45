package fakeuserrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/replywing/replywing/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory users.Repo for tests. Set FailWith to force
// every call to return that error.
type FakeUserRepo struct {
	lock  sync.RWMutex
	users map[string]*users.User

	FailWith error
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Get(ctx context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if ur.FailWith != nil {
		return nil, ur.FailWith
	}
	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (ur *FakeUserRepo) Upsert(ctx context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.FailWith != nil {
		return ur.FailWith
	}
	if user.ID == "" {
		return errors.New("user id cannot be empty")
	}
	clone := *user
	ur.users[user.ID] = &clone
	return nil
}
