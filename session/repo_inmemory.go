package session

import (
	"errors"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface.
type InMemoryRepo struct {
	mu     sync.RWMutex
	sess   *Session
	action *ActionRecord
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Commit(sess *Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *sess
	r.sess = &clone
	return nil
}

func (r *InMemoryRepo) Get() (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.sess == nil {
		return nil, ErrNoSession
	}
	clone := *r.sess
	return &clone, nil
}

func (r *InMemoryRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sess = nil
	return nil
}

func (r *InMemoryRepo) RecordLastAction(rec ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.action = &rec
	return nil
}

func (r *InMemoryRepo) LastAction() (*ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.action == nil {
		return nil, nil
	}
	clone := *r.action
	return &clone, nil
}
