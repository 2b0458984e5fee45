package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	sessionFile    = "session.json"
	lastActionFile = "last_action.json"
)

// FileRepo persists the session under a state directory, one JSON file per
// record, owner-readable only. Writes go through a temp-file rename so the
// session is never observable half-written.
type FileRepo struct {
	mu  sync.Mutex
	dir string
}

var _ Repo = (*FileRepo)(nil)

func NewFileRepo(dir string) (*FileRepo, error) {
	if dir == "" {
		return nil, errors.New("session dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileRepo{dir: dir}, nil
}

func (r *FileRepo) Commit(sess *Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeFile(sessionFile, sess)
}

func (r *FileRepo) Get() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sess Session
	switch err := r.readFile(sessionFile, &sess); {
	case errors.Is(err, os.ErrNotExist):
		return nil, ErrNoSession
	case err != nil:
		return nil, err
	}
	return &sess, nil
}

func (r *FileRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(filepath.Join(r.dir, sessionFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *FileRepo) RecordLastAction(rec ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeFile(lastActionFile, rec)
}

func (r *FileRepo) LastAction() (*ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rec ActionRecord
	switch err := r.readFile(lastActionFile, &rec); {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

func (r *FileRepo) writeFile(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(r.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (r *FileRepo) readFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
