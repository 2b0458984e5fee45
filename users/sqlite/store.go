// Package sqlite provides a SQLite-backed users.Repo.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/replywing/replywing/users"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	screen_name TEXT NOT NULL,
	name TEXT NOT NULL,
	profile_image_url TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_login INTEGER NOT NULL,
	request_count INTEGER NOT NULL DEFAULT 0,
	is_paid INTEGER NOT NULL DEFAULT 0,
	budget REAL NOT NULL DEFAULT 0,
	video_downloads_budget INTEGER NOT NULL DEFAULT 0,
	video_downloaded INTEGER NOT NULL DEFAULT 0
);
`

// Store persists user records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ users.Repo = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite user store and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the record for one identity id.
func (s *Store) Get(ctx context.Context, id string) (*users.User, error) {
	if id == "" {
		return nil, fmt.Errorf("identity id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, screen_name, name, profile_image_url, created_at, last_login,
		       request_count, is_paid, budget, video_downloads_budget, video_downloaded
		FROM users WHERE id = ?`, id)

	var u users.User
	var createdAt, lastLogin int64
	err := row.Scan(&u.ID, &u.ScreenName, &u.Name, &u.ProfileImageURL, &createdAt, &lastLogin,
		&u.RequestCount, &u.IsPaid, &u.Budget, &u.VideoDownloadsBudget, &u.VideoDownloaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.LastLogin = fromMillis(lastLogin)
	return &u, nil
}

// Upsert writes the full record, replacing any existing row for the id.
func (s *Store) Upsert(ctx context.Context, user *users.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user with identity id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO users (id, screen_name, name, profile_image_url, created_at, last_login,
		                   request_count, is_paid, budget, video_downloads_budget, video_downloaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			screen_name = excluded.screen_name,
			name = excluded.name,
			profile_image_url = excluded.profile_image_url,
			created_at = excluded.created_at,
			last_login = excluded.last_login,
			request_count = excluded.request_count,
			is_paid = excluded.is_paid,
			budget = excluded.budget,
			video_downloads_budget = excluded.video_downloads_budget,
			video_downloaded = excluded.video_downloaded`,
		user.ID, user.ScreenName, user.Name, user.ProfileImageURL,
		toMillis(user.CreatedAt), toMillis(user.LastLogin),
		user.RequestCount, user.IsPaid, user.Budget, user.VideoDownloadsBudget, user.VideoDownloaded)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
