package model

import "errors"

// Sentinel error kinds shared across the pipeline. Callers match with errors.Is.
var (
	// ErrEmbeddingUnavailable is transient: the provider failed or timed out.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	ErrInvalidTransition        = errors.New("invalid transition")
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrEmbeddingModelMismatch   = errors.New("embedding model mismatch")
	ErrModelCorrupt             = errors.New("model corrupt")
	ErrEmptyCandidatePool       = errors.New("empty candidate pool")
	ErrInvalidTargetSize        = errors.New("invalid target size")
	ErrUnknownWord              = errors.New("unknown word")
	ErrModelNotFound            = errors.New("model not found")
)

// IsTransient reports whether err is worth retrying with backoff
func IsTransient(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable)
}
