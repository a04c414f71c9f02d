// Package store persists words, label events, vectors, models and scores in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS words (
	word               TEXT PRIMARY KEY,
	added_at           INTEGER NOT NULL,
	clues              TEXT NOT NULL DEFAULT '',
	clues_last_updated INTEGER
);

CREATE TABLE IF NOT EXISTS label_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	word    TEXT NOT NULL,
	action  TEXT NOT NULL,
	status  TEXT NOT NULL,
	outcome TEXT NOT NULL,
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_label_events_word ON label_events(word, id);

CREATE TABLE IF NOT EXISTS vectors (
	word            TEXT NOT NULL,
	embedding_model TEXT NOT NULL,
	dim             INTEGER NOT NULL,
	embedding       BLOB NOT NULL,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (word, embedding_model)
);

CREATE TABLE IF NOT EXISTS models (
	id                TEXT PRIMARY KEY,
	created_at        INTEGER NOT NULL,
	embedding_model   TEXT NOT NULL,
	training_set_hash TEXT NOT NULL,
	approved_count    INTEGER NOT NULL,
	rejected_count    INTEGER NOT NULL,
	train_accuracy    REAL NOT NULL,
	test_accuracy     REAL NOT NULL,
	params            TEXT NOT NULL DEFAULT '{}',
	blob              BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	word       TEXT NOT NULL,
	model_id   TEXT NOT NULL,
	batch_id   TEXT NOT NULL DEFAULT '',
	raw        REAL NOT NULL,
	normalized INTEGER NOT NULL,
	scored_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scores_model_word ON scores(model_id, word, scored_at);

CREATE TABLE IF NOT EXISTS sources (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL UNIQUE,
	url      TEXT NOT NULL DEFAULT '',
	file     TEXT NOT NULL DEFAULT '',
	added_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS source_words (
	source_id INTEGER NOT NULL REFERENCES sources(id) ON UPDATE CASCADE ON DELETE CASCADE,
	word      TEXT NOT NULL,
	score     INTEGER,
	PRIMARY KEY (source_id, word)
);
`

// InitDB creates every table and index if missing
func InitDB(db *sql.DB) error {
	for _, s := range strings.Split(schemaSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SQLiteStore is the persistent store backed by a single SQLite database
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := InitDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// withTx runs fn inside a transaction, committing on success
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
