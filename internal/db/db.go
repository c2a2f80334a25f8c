package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "credentials.db"

type Config struct {
	// Dir holds the .swiftapi directory; empty means the working directory.
	Dir string
}

func dbPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ".swiftapi", defaultDBName)
}

// EnsureDir creates the .swiftapi directory if missing.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ".swiftapi")
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the SQLite database with foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureDir(cfg.Dir); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath(cfg.Dir))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Path returns the db path for the directory.
func Path(dir string) string {
	return dbPath(dir)
}
