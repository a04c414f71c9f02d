package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
)

// DBExecutor accepts either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WordRow is a stored word with its clue bookkeeping
type WordRow struct {
	Word             string
	AddedAt          time.Time
	Clues            string
	CluesLastUpdated *time.Time
}

// LabelEventRow is a persisted label transition. Stale events are never stored.
type LabelEventRow struct {
	ID      int64
	Word    string
	Action  model.Action
	Status  model.Status // Status after the event
	Outcome model.Outcome
	At      time.Time
}

// Store is everything the pipeline persists
type Store interface {
	EnsureWord(ctx context.Context, word, clues string, at time.Time) (bool, error)
	EnsureWords(ctx context.Context, words []string, at time.Time) ([]string, error)
	LoadWords(ctx context.Context) ([]WordRow, error)
	ListWords(ctx context.Context) ([]string, error)
	WordsMissingClues(ctx context.Context, limit int) ([]string, error)
	UpdateClues(ctx context.Context, word, clues string, at time.Time) error

	AppendLabelEvent(ctx context.Context, ev LabelEventRow) error
	LoadLabelEvents(ctx context.Context) ([]LabelEventRow, error)

	GetVectors(ctx context.Context, words []string, embeddingModelID string) (map[string]model.Vector, error)
	PutVectors(ctx context.Context, embeddingModelID string, vecs map[string]model.Vector) error

	SaveModel(ctx context.Context, a *model.ModelArtifact) error
	GetModel(ctx context.Context, id string) (*model.ModelArtifact, error)
	LatestModel(ctx context.Context) (*model.ModelArtifact, error)
	ListModels(ctx context.Context) ([]*model.ModelArtifact, error)

	WriteScores(ctx context.Context, recs []model.ScoreRecord) error
	LatestScores(ctx context.Context, modelID string) ([]model.ScoreRecord, error)
	WordsMissingScores(ctx context.Context, modelID string) ([]string, error)

	UpsertSource(ctx context.Context, name, url, file string) (int64, error)
	LinkSourceWords(ctx context.Context, sourceID int64, scores model.CandidatePool) error

	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// isUniqueConstraintErr reports a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}
