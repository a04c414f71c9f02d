package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/wordlist/internal/embed"
	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/worker"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

const (
	// DefaultEmbedBatchSize is the number of words sent per embedding request
	DefaultEmbedBatchSize = 1500

	// DefaultPromptTemplate is the text embedded for a word
	DefaultPromptTemplate = "ANSWER: %s"

	// DefaultMemoryEntries caps the memory layer. At 1536 float32 dimensions
	// that is about 120 MB of vectors.
	DefaultMemoryEntries = 20000
)

// VectorStore is the persistent layer under the vector cache
type VectorStore interface {
	GetVectors(ctx context.Context, words []string, embeddingModelID string) (map[string]model.Vector, error)
	PutVectors(ctx context.Context, embeddingModelID string, vecs map[string]model.Vector) error
}

// VectorCache memoizes embeddings per (word, embedding model id): an
// in-process layer over the persistent store, the embedder on a miss.
// Vectors are persisted before they are memoized; failed embeddings store nothing.
// The memory layer stops taking new vectors at its entry limit; the store
// keeps serving the rest.
type VectorCache struct {
	embedder embed.Embedder
	store    VectorStore
	memory   *gocache.Cache
	limit    int
	template string
	dim      int
	batch    *worker.BatchProcessor
	metrics  *metrics.Manager
	log      logger.Logger
}

// VectorOption configures a VectorCache
type VectorOption func(*VectorCache)

// WithPromptTemplate sets the text embedded for a word, e.g. "ANSWER: %s"
func WithPromptTemplate(t string) VectorOption {
	return func(c *VectorCache) { c.template = t }
}

// WithDimensions rejects vectors whose length is not dim (0 accepts any)
func WithDimensions(dim int) VectorOption {
	return func(c *VectorCache) { c.dim = dim }
}

// WithBatching sets the chunk size, concurrency and limiter used for misses
func WithBatching(concurrency, chunkSize int, limiter *worker.Limiter) VectorOption {
	return func(c *VectorCache) {
		c.batch = worker.NewBatchProcessor(concurrency, chunkSize, limiter, "embedding")
	}
}

// WithMemoryLimit caps the number of vectors held in memory (0 = no cap)
func WithMemoryLimit(n int) VectorOption {
	return func(c *VectorCache) { c.limit = n }
}

// WithMemoryTTL bounds how long vectors stay in the memory layer (0 = forever)
func WithMemoryTTL(ttl time.Duration) VectorOption {
	return func(c *VectorCache) {
		if ttl <= 0 {
			ttl = gocache.NoExpiration
		}
		c.memory = gocache.New(ttl, 10*time.Minute)
	}
}

// WithMetrics records cache hits and embedding calls on m
func WithMetrics(m *metrics.Manager) VectorOption {
	return func(c *VectorCache) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) VectorOption {
	return func(c *VectorCache) { c.log = l }
}

// NewVectorCache creates a cache bound to the embedder's model
func NewVectorCache(e embed.Embedder, s VectorStore, opts ...VectorOption) *VectorCache {
	c := &VectorCache{
		embedder: e,
		store:    s,
		memory:   gocache.New(gocache.NoExpiration, 10*time.Minute),
		limit:    DefaultMemoryEntries,
		template: DefaultPromptTemplate,
		batch:    worker.NewBatchProcessor(1, DefaultEmbedBatchSize, nil, "embedding"),
		metrics:  metrics.Default(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelID is the embedding model id of the bound embedder. A non-default
// prompt template adds a fingerprint, so vectors of different prompts never
// share keys.
func (c *VectorCache) ModelID() string {
	id := c.embedder.ModelID()
	if c.template == DefaultPromptTemplate {
		return id
	}
	sum := sha256.Sum256([]byte(c.template))
	return id + "+" + hex.EncodeToString(sum[:4])
}

// memoize adds v to the memory layer unless it is full
func (c *VectorCache) memoize(word, modelID string, v model.Vector) {
	if c.limit > 0 && c.memory.ItemCount() >= c.limit {
		return
	}
	c.memory.Set(VectorKey(word, modelID), v, gocache.DefaultExpiration)
}

// GetOrCompute returns the vector of one word
func (c *VectorCache) GetOrCompute(ctx context.Context, word, embeddingModelID string) (model.Vector, error) {
	vecs, report := c.Resolve(ctx, []string{word}, embeddingModelID)
	if v, ok := vecs[word]; ok {
		return v, nil
	}
	if err, ok := report.Errors[word]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", model.ErrEmbeddingUnavailable, word)
}

// Resolve returns vectors for every word it could resolve. Misses are embedded
// in chunks on the worker pool; failures are reported per word and the rest
// continue. After cancellation no new chunks start.
func (c *VectorCache) Resolve(ctx context.Context, words []string, embeddingModelID string) (map[string]model.Vector, *model.BatchReport) {
	words = dedupe(words)
	report := model.NewBatchReport(len(words))
	out := make(map[string]model.Vector, len(words))

	if embeddingModelID != c.ModelID() {
		err := fmt.Errorf("%w: cache embeds with %q, asked for %q",
			model.ErrEmbeddingModelMismatch, c.ModelID(), embeddingModelID)
		for _, w := range words {
			report.Fail(w, err)
		}
		return out, report
	}

	// Memory layer
	var pending []string
	for _, w := range words {
		if v, ok := c.memory.Get(VectorKey(w, embeddingModelID)); ok {
			out[w] = v.(model.Vector)
			c.metrics.RecordCacheHit(metrics.LayerMemory)
			continue
		}
		pending = append(pending, w)
	}

	// Persistent layer
	if len(pending) > 0 {
		stored, err := c.store.GetVectors(ctx, pending, embeddingModelID)
		if err != nil {
			c.log.Warn(ctx, "vector store lookup failed, embedding instead", logger.Error(err))
			stored = nil
		}

		var misses []string
		for _, w := range pending {
			v, ok := stored[w]
			if ok && embed.Validate(v, c.dim) == nil {
				c.memoize(w, embeddingModelID, v)
				out[w] = v
				c.metrics.RecordCacheHit(metrics.LayerStore)
				continue
			}
			misses = append(misses, w)
		}
		pending = misses
	}

	if len(pending) > 0 {
		c.embedMisses(ctx, pending, embeddingModelID, out, report)
	}

	report.Succeeded = len(out)
	return out, report
}

func (c *VectorCache) embedMisses(ctx context.Context, misses []string, modelID string, out map[string]model.Vector, report *model.BatchReport) {
	var mu sync.Mutex

	results := c.batch.Process(ctx, misses, func(ctx context.Context, chunk []string) error {
		texts := make([]string, len(chunk))
		for i, w := range chunk {
			texts[i] = embed.PromptForm(c.template, w)
		}

		start := time.Now()
		vecs, err := c.embedder.Embed(ctx, texts)
		c.metrics.RecordEmbeddingRequest(len(chunk), time.Since(start))
		if err != nil {
			return asUnavailable(ctx, err)
		}
		if len(vecs) != len(chunk) {
			return fmt.Errorf("%w: got %d vectors for %d words", model.ErrEmbeddingUnavailable, len(vecs), len(chunk))
		}

		valid := make(map[string]model.Vector, len(chunk))
		invalid := make(map[string]error)
		for i, w := range chunk {
			if err := embed.Validate(vecs[i], c.dim); err != nil {
				invalid[w] = err
				continue
			}
			valid[w] = vecs[i]
		}

		if err := c.store.PutVectors(ctx, modelID, valid); err != nil {
			return fmt.Errorf("persist vectors: %w", err)
		}
		for w, v := range valid {
			c.memoize(w, modelID, v)
		}

		mu.Lock()
		defer mu.Unlock()
		for w, v := range valid {
			out[w] = v
		}
		for w, err := range invalid {
			report.Fail(w, err)
		}
		return nil
	})

	for _, r := range results {
		if r.Error == nil {
			continue
		}
		c.log.Warn(ctx, "embedding chunk failed",
			logger.Int("chunk", r.Index),
			logger.Int("words", len(r.Items)),
			logger.Error(r.Error))
		for _, w := range r.Items {
			report.Fail(w, r.Error)
		}
	}
	if failed := len(report.Errors); failed > 0 {
		c.metrics.RecordEmbeddingFailure(failed)
	}
}

// asUnavailable folds every provider failure into ErrEmbeddingUnavailable;
// cancellation of ctx itself passes through.
func asUnavailable(ctx context.Context, err error) error {
	if model.IsTransient(err) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrEmbeddingUnavailable, err)
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
