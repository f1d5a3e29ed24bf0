package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteFile is the database file name inside Options.DataDir.
const SQLiteFile = "spider.db"

var sqliteDialect = dialect{
	name:   SQLite,
	driver: "sqlite",
	createTable: func(checkFirst bool) []string {
		ifNotExists := ""
		if checkFirst {
			ifNotExists = "IF NOT EXISTS "
		}
		return []string{
			`CREATE TABLE ` + ifNotExists + `url (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				url TEXT NOT NULL UNIQUE,
				title TEXT,
				parent TEXT NOT NULL,
				html TEXT,
				content_hash TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_url_parent ON url(parent)`,
		}
	},
	dropTable: func(checkFirst bool) string {
		if checkFirst {
			return `DROP TABLE IF EXISTS url`
		}
		return `DROP TABLE url`
	},
	reserve:    `INSERT INTO url (url, parent) VALUES (?, ?) ON CONFLICT(url) DO NOTHING`,
	selectBlob: `SELECT html, content_hash FROM url WHERE url = ?`,
	upsert: `
	INSERT INTO url (url, title, parent, html, content_hash)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		parent = excluded.parent,
		html = excluded.html,
		content_hash = excluded.content_hash,
		updated_at = CURRENT_TIMESTAMP
	`,
	classify: classifySQLite,
}

// NewSQLite creates a Store backed by a SQLite file in opts.DataDir.
// Credentials are ignored.
func NewSQLite(_ Credentials, opts Options) (Store, error) {
	opts = opts.withDefaults()
	if opts.DataDir == "" {
		return nil, fmt.Errorf("sqlite: data directory is not set")
	}
	dbPath := filepath.Join(opts.DataDir, SQLiteFile)

	return &sqlStore{
		d:    sqliteDialect,
		opts: opts,
		dsn: func() (string, error) {
			if err := os.MkdirAll(opts.DataDir, 0o750); err != nil {
				return "", fmt.Errorf("failed to create database directory: %w", err)
			}
			return dbPath + "?mode=rwc", nil
		},
		setup: func(ctx context.Context, db *sql.DB) error {
			// SQLite only supports one writer
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(time.Hour)

			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				return fmt.Errorf("failed to enable WAL mode: %w", err)
			}
			return nil
		},
	}, nil
}

func classifySQLite(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return ErrTableNotFound
	case strings.Contains(msg, "already exists"):
		return ErrTableAlreadyExists
	case strings.Contains(msg, "unable to open database file"):
		return ErrDatabaseNotFound
	default:
		return nil
	}
}
