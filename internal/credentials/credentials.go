// Package credentials keeps shared secrets keyed by username.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"swiftapi/internal/db"
	"swiftapi/internal/migrate"
)

// Store looks up and saves shared secrets.
type Store interface {
	Get(ctx context.Context, username string) (secret string, ok bool, err error)
	Set(ctx context.Context, username, secret string) error
}

// Lister is implemented by stores that can enumerate their users.
type Lister interface {
	Users(ctx context.Context) ([]string, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, username string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[username]
	return s, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, username, secret string) error {
	if err := validate(username, secret); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secrets == nil {
		m.secrets = map[string]string{}
	}
	m.secrets[username] = secret
	return nil
}

func (m *MemoryStore) Users(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.secrets))
	for u := range m.secrets {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// SQLiteStore persists secrets in the local credentials database.
type SQLiteStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// OpenSQLite opens and migrates the credentials database under dir.
func OpenSQLite(ctx context.Context, dir string) (*SQLiteStore, error) {
	conn, err := db.Open(db.Config{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("open credentials db: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate credentials db: %w", err)
	}
	return &SQLiteStore{DB: conn, Now: time.Now}, nil
}

func (s *SQLiteStore) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *SQLiteStore) Get(ctx context.Context, username string) (string, bool, error) {
	var secret string
	err := s.DB.QueryRowContext(ctx, `SELECT shared_secret FROM credentials WHERE username=?`, username).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credentials: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE credentials SET last_used_at=? WHERE username=?`, s.now(), username); err != nil {
		return "", false, fmt.Errorf("touch credentials: %w", err)
	}
	return secret, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, username, secret string) error {
	if err := validate(username, secret); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO credentials(username, shared_secret, updated_at) VALUES (?,?,?)
ON CONFLICT(username) DO UPDATE SET shared_secret=excluded.shared_secret, updated_at=excluded.updated_at`,
		username, secret, s.now())
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT username FROM credentials ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// LastUsed reports when a secret was last read, zero if never.
func (s *SQLiteStore) LastUsed(ctx context.Context, username string) (time.Time, error) {
	var ts sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT last_used_at FROM credentials WHERE username=?`, username).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, ts.String)
}

func (s *SQLiteStore) Close() error { return s.DB.Close() }

func validate(username, secret string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username required")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("shared secret required")
	}
	return nil
}
