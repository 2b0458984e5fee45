package txnrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo persists the transaction as a JSON file so the flow survives the
// cross-process gap between starting a login and handling the redirect.
// The file holds the code verifier and is created owner-readable only.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo stores the transaction at the given path, creating parent
// directories as needed.
func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("transaction file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create transaction dir: %w", err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Put(txn *Transaction) error {
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	if txn.State == "" {
		return errors.New("transaction state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn record behind.
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *FileRepo) Get() (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}

	var txn Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &txn, nil
}

func (r *FileRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
