package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{db}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
        username TEXT PRIMARY KEY,
        password_hash TEXT NOT NULL,
        is_admin INTEGER NOT NULL DEFAULT 0,
        read_poems TEXT NOT NULL DEFAULT '[]',
        pinned_title TEXT,
        user_data TEXT NOT NULL DEFAULT '',
        show_all_tab INTEGER NOT NULL DEFAULT 0,
        access_key TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL,
        updated_at DATETIME
    )`,
		`CREATE TABLE IF NOT EXISTS poems (
        title TEXT PRIMARY KEY,
        author TEXT NOT NULL,
        text TEXT NOT NULL
    )`,
		`CREATE TABLE IF NOT EXISTS access_keys (
        key TEXT PRIMARY KEY,
        generated_by TEXT NOT NULL,
        assigned_to TEXT,
        expires_at DATETIME,
        daily_limit INTEGER,
        is_active INTEGER NOT NULL DEFAULT 1,
        usage_today INTEGER NOT NULL DEFAULT 0,
        last_used_on TEXT,
        created_at DATETIME NOT NULL
    )`,
		`CREATE INDEX IF NOT EXISTS idx_access_keys_generated_by ON access_keys(generated_by)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
        id TEXT PRIMARY KEY,
        username TEXT NOT NULL,
        role TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL
    )`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_username_created ON chat_messages(username, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	return nil
}
