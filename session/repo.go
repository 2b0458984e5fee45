package session

import "errors"

// ErrNoSession is returned when no user is logged in.
var ErrNoSession = errors.New("no active session")

// Repo persists the session and the last-action record.
type Repo interface {
	// Commit atomically replaces the stored session.
	Commit(sess *Session) error
	// Get returns the stored session, or ErrNoSession.
	Get() (*Session, error)
	// Clear removes all session state. Clearing an empty store is not an
	// error.
	Clear() error
	// RecordLastAction overwrites the last-action record.
	RecordLastAction(rec ActionRecord) error
	// LastAction returns the most recent action record, or nil if none was
	// ever recorded.
	LastAction() (*ActionRecord, error)
}
