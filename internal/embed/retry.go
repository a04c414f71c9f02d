package embed

import (
	"context"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
)

// retrySleepFunc is swapped out by tests
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const baseRetryDelay = 500 * time.Millisecond

// RetryingEmbedder retries transient failures with exponential backoff
type RetryingEmbedder struct {
	inner      Embedder
	maxRetries int
}

// WithRetry wraps e; maxRetries <= 0 disables retrying
func WithRetry(e Embedder, maxRetries int) *RetryingEmbedder {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingEmbedder{inner: e, maxRetries: maxRetries}
}

func (r *RetryingEmbedder) Name() string    { return r.inner.Name() }
func (r *RetryingEmbedder) ModelID() string { return r.inner.ModelID() }

// Embed calls the wrapped embedder, retrying while the error is transient
func (r *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([]model.Vector, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			if err := retrySleepFunc(ctx, delay); err != nil {
				return nil, err
			}
		}

		vecs, err := r.inner.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		if !model.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
