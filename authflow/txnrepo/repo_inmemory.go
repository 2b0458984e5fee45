package txnrepo

import (
	"errors"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface, used in tests and single-process flows.
type InMemoryRepo struct {
	mu  sync.RWMutex
	txn *Transaction
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

// Put stores the transaction, replacing any pending one.
func (r *InMemoryRepo) Put(txn *Transaction) error {
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	if txn.State == "" {
		return errors.New("transaction state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to prevent external modifications
	clone := *txn
	r.txn = &clone
	return nil
}

// Get returns the pending transaction, or ErrNotFound.
func (r *InMemoryRepo) Get() (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.txn == nil {
		return nil, ErrNotFound
	}
	clone := *r.txn
	return &clone, nil
}

// Delete removes the pending transaction. Deleting when none is pending is
// not an error.
func (r *InMemoryRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.txn = nil
	return nil
}
