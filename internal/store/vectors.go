package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

// maxParams keeps IN (...) lists under SQLite's host parameter limit
const maxParams = 500

// GetVectors returns the stored vectors for words under embeddingModelID.
// Missing words are absent from the result.
func (s *SQLiteStore) GetVectors(ctx context.Context, words []string, embeddingModelID string) (map[string]model.Vector, error) {
	out := make(map[string]model.Vector, len(words))

	for start := 0; start < len(words); start += maxParams {
		end := min(start+maxParams, len(words))
		chunk := words[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, embeddingModelID)
		for _, w := range chunk {
			args = append(args, w)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT word, dim, embedding FROM vectors WHERE embedding_model = ? AND word IN (`+placeholders(len(chunk))+`)`,
			args...)
		if err != nil {
			return nil, fmt.Errorf("query vectors: %w", err)
		}

		for rows.Next() {
			var (
				word string
				dim  int
				blob []byte
			)
			if err := rows.Scan(&word, &dim, &blob); err != nil {
				_ = rows.Close()
				return nil, err
			}
			v, err := DecodeVector(blob)
			if err != nil || len(v) != dim {
				// Unreadable rows are treated as misses and re-embedded
				continue
			}
			out[word] = v
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// PutVectors stores vectors in one transaction, replacing existing rows
func (s *SQLiteStore) PutVectors(ctx context.Context, embeddingModelID string, vecs map[string]model.Vector) error {
	if len(vecs) == 0 {
		return nil
	}
	now := toUnix(s.now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO vectors (word, embedding_model, dim, embedding, created_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for w, v := range vecs {
			if _, err := stmt.ExecContext(ctx, w, embeddingModelID, len(v), EncodeVector(v), now); err != nil {
				return fmt.Errorf("store vector for %s: %w", w, err)
			}
		}
		return nil
	})
}
