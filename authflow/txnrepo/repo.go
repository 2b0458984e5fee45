// Package txnrepo persists the single in-flight OAuth transaction between
// the start of a login and the redirect callback that consumes it.
package txnrepo

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no transaction is pending.
var ErrNotFound = errors.New("no pending transaction")

// Transaction is the ephemeral state of one login attempt. The code
// verifier is single-use secret material; the record is deleted as soon as
// the redirect callback consumes it, success or failure.
type Transaction struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	RedirectURI  string    `json:"redirect_uri"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repo stores at most one active transaction. Put replaces any previous
// one: starting a new login orphans the old state token, which is then
// simply never matched again.
type Repo interface {
	Put(txn *Transaction) error
	Get() (*Transaction, error)
	Delete() error
}
