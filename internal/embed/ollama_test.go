package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/wordlist/internal/model"
)

func TestOllamaEmbedder_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("Expected path /api/embed, got %s", r.URL.Path)
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("Unexpected model: %s", req.Model)
		}

		resp := ollamaEmbedResponse{Model: req.Model}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(Config{BaseURL: server.URL + "/", Model: "nomic-embed-text"})
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}

	vecs, err := e.Embed(context.Background(), []string{"HOUSE", "TABLE", "LAMP"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Errorf("Unexpected vectors: %v", vecs)
	}
}

func TestOllamaEmbedder_Embed_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model is loading"}`))
	}))
	defer server.Close()

	e, _ := NewOllamaEmbedder(Config{BaseURL: server.URL, Model: "nomic-embed-text"})
	_, err := e.Embed(context.Background(), []string{"HOUSE"})
	if err == nil {
		t.Fatal("Expected error for API failure")
	}
	if !model.IsTransient(err) {
		t.Errorf("Expected transient error, got %v", err)
	}
}

func TestOllamaEmbedder_Embed_NotFoundIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	e, _ := NewOllamaEmbedder(Config{BaseURL: server.URL, Model: "missing"})
	_, err := e.Embed(context.Background(), []string{"HOUSE"})
	if err == nil {
		t.Fatal("Expected error for missing model")
	}
	if model.IsTransient(err) {
		t.Errorf("Missing model should not be transient: %v", err)
	}
}

func TestOllamaEmbedder_Embed_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{invalid`))
	}))
	defer server.Close()

	e, _ := NewOllamaEmbedder(Config{BaseURL: server.URL, Model: "nomic-embed-text"})
	if _, err := e.Embed(context.Background(), []string{"HOUSE"}); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestNewOllamaEmbedder_NoModel(t *testing.T) {
	if _, err := NewOllamaEmbedder(Config{}); err == nil {
		t.Error("Expected error without model")
	}
}
