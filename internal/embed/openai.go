package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/util"
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIEmbedder creates an embedder; the API key is required
func NewOpenAIEmbedder(config Config) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	m := config.Model
	if m == "" {
		m = string(openai.SmallEmbedding3)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   m,
		timeout: timeout,
	}, nil
}

// Name returns the provider name
func (e *OpenAIEmbedder) Name() string { return "openai" }

// ModelID returns the embedding model name
func (e *OpenAIEmbedder) ModelID() string { return e.model }

// Embed sends all texts in one request
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]model.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, unavailable("openai", fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([]model.Vector, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, unavailable("openai", fmt.Errorf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = model.Vector(d.Embedding)
	}
	return out, nil
}

// classifyOpenAIError marks rate limits, server errors and network failures transient
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if transientStatus(apiErr.HTTPStatusCode) {
			return unavailable("openai", err)
		}
		return fmt.Errorf("OpenAI API error: %w", err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if transientStatus(reqErr.HTTPStatusCode) {
			return unavailable("openai", err)
		}
		return fmt.Errorf("OpenAI request error: %w", err)
	}

	// Timeouts, resets, DNS
	return unavailable("openai", err)
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
