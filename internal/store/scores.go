package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

// scoreBatchSize is the number of score rows committed per transaction
const scoreBatchSize = 1000

// InsertScore writes one score row
func InsertScore(ctx context.Context, db DBExecutor, r model.ScoreRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO scores (word, model_id, batch_id, raw, normalized, scored_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Word, r.ModelID, r.BatchID, r.Raw, r.Normalized, toUnix(r.ScoredAt))
	if err != nil {
		return fmt.Errorf("insert score for %s: %w", r.Word, err)
	}
	return nil
}

// WriteScores appends score rows through a batch writer
func (s *SQLiteStore) WriteScores(ctx context.Context, recs []model.ScoreRecord) error {
	bw := NewBatchWriter(s.db, scoreBatchSize, 0)
	for _, r := range recs {
		r := r
		if err := ctx.Err(); err != nil {
			_ = bw.Close()
			return err
		}
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return InsertScore(ctx, tx, r)
		})
		if err != nil {
			_ = bw.Close()
			return err
		}
	}
	return bw.Close()
}

// LatestScores returns the most recent score per word. An empty modelID
// considers every model. Rows may come from different batches, each
// normalized on its own; curate.Latest puts them back on one scale.
func (s *SQLiteStore) LatestScores(ctx context.Context, modelID string) ([]model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word, model_id, batch_id, raw, normalized, scored_at FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY word ORDER BY scored_at DESC, id DESC) AS rn
			FROM scores
			WHERE ? = '' OR model_id = ?
		) WHERE rn = 1
		ORDER BY word`, modelID, modelID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScoreRecord
	for rows.Next() {
		var (
			r  model.ScoreRecord
			at int64
		)
		if err := rows.Scan(&r.Word, &r.ModelID, &r.BatchID, &r.Raw, &r.Normalized, &at); err != nil {
			return nil, err
		}
		r.ScoredAt = fromUnix(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// WordsMissingScores returns stored words that modelID has never scored
func (s *SQLiteStore) WordsMissingScores(ctx context.Context, modelID string) ([]string, error) {
	return queryStrings(ctx, s.db, `
		SELECT w.word FROM words w
		LEFT JOIN (SELECT DISTINCT word FROM scores WHERE model_id = ?) sc ON sc.word = w.word
		WHERE sc.word IS NULL
		ORDER BY w.word`, modelID)
}
