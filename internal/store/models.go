package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

const modelColumns = `id, created_at, embedding_model, training_set_hash, approved_count, rejected_count, train_accuracy, test_accuracy, params`

// SaveModel persists an artifact. Artifacts are immutable: saving an existing id fails.
func (s *SQLiteStore) SaveModel(ctx context.Context, a *model.ModelArtifact) error {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models (`+modelColumns+`, blob) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, toUnix(a.CreatedAt), a.EmbeddingModelID, a.TrainingSetHash,
		a.ApprovedCount, a.RejectedCount, a.TrainAccuracy, a.TestAccuracy, string(params), a.Blob)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("model %s already exists: %w", a.ID, err)
		}
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// GetModel loads an artifact including its blob
func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*model.ModelArtifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+modelColumns+`, blob FROM models WHERE id = ?`, id)
	a, err := scanModel(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotFound, id)
	}
	return a, err
}

// LatestModel loads the most recently created artifact
func (s *SQLiteStore) LatestModel(ctx context.Context) (*model.ModelArtifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+modelColumns+`, blob FROM models ORDER BY created_at DESC, id DESC LIMIT 1`)
	a, err := scanModel(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no trained models", model.ErrModelNotFound)
	}
	return a, err
}

// ListModels returns artifact metadata, newest first, without blobs
func (s *SQLiteStore) ListModels(ctx context.Context) ([]*model.ModelArtifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ModelArtifact
	for rows.Next() {
		a, err := scanModel(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(sc scanner, withBlob bool) (*model.ModelArtifact, error) {
	var (
		a       model.ModelArtifact
		created int64
		params  string
	)
	dest := []any{&a.ID, &created, &a.EmbeddingModelID, &a.TrainingSetHash,
		&a.ApprovedCount, &a.RejectedCount, &a.TrainAccuracy, &a.TestAccuracy, &params}
	if withBlob {
		dest = append(dest, &a.Blob)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnix(created)
	if params != "" {
		if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
			return nil, fmt.Errorf("decode params of model %s: %w", a.ID, err)
		}
	}
	return &a, nil
}
