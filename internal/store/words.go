package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureWord inserts word if missing. Returns true when a row was created.
func (s *SQLiteStore) EnsureWord(ctx context.Context, word, clues string, at time.Time) (bool, error) {
	return ensureWord(ctx, s.db, word, clues, at)
}

func ensureWord(ctx context.Context, db DBExecutor, word, clues string, at time.Time) (bool, error) {
	if word == "" {
		return false, fmt.Errorf("word must be non-empty")
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO words (word, added_at, clues) VALUES (?, ?, ?)`,
		word, toUnix(at), clues)
	if err != nil {
		return false, fmt.Errorf("insert word: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// EnsureWords inserts every missing word in one transaction and returns the
// words that were created
func (s *SQLiteStore) EnsureWords(ctx context.Context, words []string, at time.Time) ([]string, error) {
	var created []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created = created[:0]
		for _, w := range words {
			ok, err := ensureWord(ctx, tx, w, "", at)
			if err != nil {
				return err
			}
			if ok {
				created = append(created, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// LoadWords returns every stored word
func (s *SQLiteStore) LoadWords(ctx context.Context) ([]WordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT word, added_at, clues, clues_last_updated FROM words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []WordRow
	for rows.Next() {
		var (
			r       WordRow
			added   int64
			updated sql.NullInt64
		)
		if err := rows.Scan(&r.Word, &added, &r.Clues, &updated); err != nil {
			return nil, err
		}
		r.AddedAt = fromUnix(added)
		if updated.Valid {
			t := fromUnix(updated.Int64)
			r.CluesLastUpdated = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListWords returns every stored word, sorted
func (s *SQLiteStore) ListWords(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT word FROM words ORDER BY word`)
}

// WordsMissingClues returns words without clues, least recently attempted first.
// limit <= 0 returns all of them.
func (s *SQLiteStore) WordsMissingClues(ctx context.Context, limit int) ([]string, error) {
	q := `SELECT word FROM words WHERE clues = '' ORDER BY clues_last_updated ASC, word ASC`
	if limit > 0 {
		return queryStrings(ctx, s.db, q+` LIMIT ?`, limit)
	}
	return queryStrings(ctx, s.db, q)
}

// UpdateClues stores clues for word and stamps the attempt time.
// Empty clues only advance the timestamp.
func (s *SQLiteStore) UpdateClues(ctx context.Context, word, clues string, at time.Time) error {
	var err error
	if clues == "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE words SET clues_last_updated = ? WHERE word = ?`, toUnix(at), word)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE words SET clues = ?, clues_last_updated = ? WHERE word = ?`, clues, toUnix(at), word)
	}
	if err != nil {
		return fmt.Errorf("update clues for %s: %w", word, err)
	}
	return nil
}

func queryStrings(ctx context.Context, db DBExecutor, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
