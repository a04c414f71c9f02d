package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
)

type fakeEmbedder struct {
	calls int
	errs  []error
}

func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) ModelID() string { return "fake-1" }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([]model.Vector, error) {
	f.calls++
	if f.calls <= len(f.errs) && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	out := make([]model.Vector, len(texts))
	for i := range texts {
		out[i] = model.Vector{1, 0}
	}
	return out, nil
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := retrySleepFunc
	retrySleepFunc = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { retrySleepFunc = orig })
	return &delays
}

func TestRetryingEmbedder_RecoversFromTransient(t *testing.T) {
	delays := stubSleep(t)
	transient := fmt.Errorf("%w: boom", model.ErrEmbeddingUnavailable)
	inner := &fakeEmbedder{errs: []error{transient, transient}}

	vecs, err := WithRetry(inner, 3).Embed(context.Background(), []string{"HOUSE"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 1 {
		t.Errorf("Expected 1 vector, got %d", len(vecs))
	}
	if inner.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", inner.calls)
	}
	if len(*delays) != 2 || (*delays)[1] != 2*(*delays)[0] {
		t.Errorf("Expected exponential backoff, got %v", *delays)
	}
}

func TestRetryingEmbedder_GivesUp(t *testing.T) {
	stubSleep(t)
	transient := fmt.Errorf("%w: boom", model.ErrEmbeddingUnavailable)
	inner := &fakeEmbedder{errs: []error{transient, transient, transient}}

	_, err := WithRetry(inner, 2).Embed(context.Background(), []string{"HOUSE"})
	if !errors.Is(err, model.ErrEmbeddingUnavailable) {
		t.Errorf("Expected transient error after retries, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryingEmbedder_PermanentNotRetried(t *testing.T) {
	stubSleep(t)
	inner := &fakeEmbedder{errs: []error{errors.New("invalid model")}}

	if _, err := WithRetry(inner, 5).Embed(context.Background(), []string{"HOUSE"}); err == nil {
		t.Fatal("Expected error")
	}
	if inner.calls != 1 {
		t.Errorf("Permanent error retried: %d calls", inner.calls)
	}
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	if _, err := NewEmbedder(Config{Provider: "bogus"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestPromptForm(t *testing.T) {
	if got := PromptForm("ANSWER: %s", "HOUSE"); got != "ANSWER: HOUSE" {
		t.Errorf("PromptForm = %q", got)
	}
	if got := PromptForm("", "HOUSE"); got != "HOUSE" {
		t.Errorf("PromptForm without template = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(model.Vector{1, 2}, 2); err != nil {
		t.Errorf("valid vector rejected: %v", err)
	}
	if err := Validate(model.Vector{1, 2}, 3); err == nil {
		t.Error("wrong dimension accepted")
	}
	if err := Validate(nil, 0); err == nil {
		t.Error("empty vector accepted")
	}
	if err := Validate(model.Vector{float32(math.NaN())}, 0); err == nil {
		t.Error("NaN accepted")
	}
}
