package embed

import (
	"fmt"
	"strings"
)

// NewEmbedder creates the configured provider wrapped with retries
func NewEmbedder(config Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "openai", "":
		e, err = NewOpenAIEmbedder(config)
	case "ollama":
		e, err = NewOllamaEmbedder(config)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(e, config.MaxRetries), nil
}
