// Package embed turns words into embedding vectors through a remote provider.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
)

// Embedder maps texts to vectors with one fixed embedding model
type Embedder interface {
	// Name returns the provider name
	Name() string

	// ModelID identifies the embedding model; vectors from different ids never mix
	ModelID() string

	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([]model.Vector, error)
}

// Config holds embedding provider configuration
type Config struct {
	Provider   string // openai, ollama
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the runtime embedding section
func ConfigFromModel(c model.EmbeddingConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
	}
}

// PromptForm renders the text actually embedded for word
func PromptForm(template, word string) string {
	if template == "" || !strings.Contains(template, "%s") {
		return word
	}
	return fmt.Sprintf(template, word)
}

// Validate checks a provider vector: non-empty, expected dimension (when dim > 0), finite
func Validate(v model.Vector, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", model.ErrEmbeddingUnavailable)
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: dimension %d, expected %d", model.ErrEmbeddingUnavailable, len(v), dim)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: non-finite value at %d", model.ErrEmbeddingUnavailable, i)
		}
	}
	return nil
}

// unavailable wraps a transient provider failure
func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrEmbeddingUnavailable, provider, err)
}
