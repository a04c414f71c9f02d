package model

import "time"

// Vector is a fixed-dimension embedding of a word's prompt form
type Vector []float32

// ModelArtifact is a trained classifier bound to the embedding model and the
// labeled snapshot it was fitted on. Immutable once created.
type ModelArtifact struct {
	ID               string            `json:"id"`
	CreatedAt        time.Time         `json:"created_at"`
	EmbeddingModelID string            `json:"embedding_model_id"`
	TrainingSetHash  string            `json:"training_set_hash"`
	ApprovedCount    int               `json:"approved_count"`
	RejectedCount    int               `json:"rejected_count"`
	TrainAccuracy    float64           `json:"train_accuracy"`
	TestAccuracy     float64           `json:"test_accuracy"`
	Params           map[string]string `json:"params,omitempty"`
	Blob             []byte            `json:"-"` // Opaque serialized classifier
}

// ScoreRecord is one model's score for one word in one scoring run
type ScoreRecord struct {
	Word       string    `json:"word"`
	ModelID    string    `json:"model_id"`
	BatchID    string    `json:"batch_id,omitempty"`
	Raw        float64   `json:"raw"`
	Normalized int       `json:"normalized"` // 0..50, comparable only within BatchID
	ScoredAt   time.Time `json:"scored_at"`
}

// MaxNormalizedScore is the top of the normalized score scale
const MaxNormalizedScore = 50

// BatchReport summarizes a partial-failure tolerant batch run
type BatchReport struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    map[string]error `json:"-"` // Per-word failure
}

// NewBatchReport creates an empty report for n items
func NewBatchReport(n int) *BatchReport {
	return &BatchReport{Total: n, Errors: make(map[string]error)}
}

// Fail records a per-word failure
func (r *BatchReport) Fail(word string, err error) {
	if _, ok := r.Errors[word]; ok {
		return
	}
	r.Failed++
	r.Errors[word] = err
}

// Merge folds another report into r
func (r *BatchReport) Merge(other *BatchReport) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Succeeded += other.Succeeded
	for w, err := range other.Errors {
		r.Fail(w, err)
	}
}
