package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/util"
)

// OllamaEmbedder calls a local Ollama server's /api/embed
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaEmbedder creates an embedder; the model is required
func NewOllamaEmbedder(config Config) (*OllamaEmbedder, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama embedding model must be specified (e.g., nomic-embed-text)")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Local models can be slow to load
	}

	return &OllamaEmbedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      config.Model,
		httpClient: util.NewHTTPClient(timeout, config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}, nil
}

// Name returns the provider name
func (e *OllamaEmbedder) Name() string { return "ollama" }

// ModelID returns the embedding model name
func (e *OllamaEmbedder) ModelID() string { return e.model }

// Embed sends all texts in one request
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([]model.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, unavailable("ollama", fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var apiErr ollamaError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		err := fmt.Errorf("API error (%d): %s", httpResp.StatusCode, msg)
		if transientStatus(httpResp.StatusCode) {
			return nil, unavailable("ollama", err)
		}
		return nil, err
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, unavailable("ollama", fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, unavailable("ollama", fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}

	out := make([]model.Vector, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = model.Vector(v)
	}
	return out, nil
}
