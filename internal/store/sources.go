package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

// ErrSourceConflict is returned when a source name is reused with a different url or file
var ErrSourceConflict = errors.New("source conflict")

// UpsertSource returns the id of the source matching all fields, creating it when
// the name is new.
func (s *SQLiteStore) UpsertSource(ctx context.Context, name, url, file string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("source name must be non-empty")
	}

	var (
		id              int64
		curURL, curFile string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, file FROM sources WHERE name = ?`, name).Scan(&id, &curURL, &curFile)
	switch {
	case err == nil:
		if curURL != url || curFile != file {
			return 0, fmt.Errorf("%w: %q already registered with url=%q file=%q", ErrSourceConflict, name, curURL, curFile)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("query source: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, url, file, added_at) VALUES (?, ?, ?, ?)`,
		name, url, file, toUnix(s.now()))
	if err != nil {
		if isUniqueConstraintErr(err) {
			// Lost a race with a concurrent insert; the lookup decides
			return s.UpsertSource(ctx, name, url, file)
		}
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return res.LastInsertId()
}

// LinkSourceWords records each word's list score within a source, updating
// changed scores. Words without a score are stored with a NULL score.
func (s *SQLiteStore) LinkSourceWords(ctx context.Context, sourceID int64, scores model.CandidatePool) error {
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO source_words (source_id, word, score) VALUES (?, ?, ?)
			ON CONFLICT(source_id, word) DO UPDATE SET score = excluded.score`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for w, sc := range scores {
			if _, err := stmt.ExecContext(ctx, sourceID, w, sc); err != nil {
				return fmt.Errorf("link %s to source %d: %w", w, sourceID, err)
			}
		}
		return nil
	})
}

// SourceWordCount returns how many words are linked to a source
func (s *SQLiteStore) SourceWordCount(ctx context.Context, sourceID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM source_words WHERE source_id = ?`, sourceID).Scan(&n)
	return n, err
}
