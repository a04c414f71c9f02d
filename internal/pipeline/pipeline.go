// Package pipeline wires configuration, storage, providers and engines into
// the operations exposed by the CLI.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ppiankov/wordlist/internal/cache"
	"github.com/ppiankov/wordlist/internal/classifier"
	"github.com/ppiankov/wordlist/internal/clues"
	"github.com/ppiankov/wordlist/internal/embed"
	"github.com/ppiankov/wordlist/internal/label"
	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/score"
	"github.com/ppiankov/wordlist/internal/store"
	"github.com/ppiankov/wordlist/internal/worker"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

// Pipeline owns the store and the lazily built embedding stack
type Pipeline struct {
	config  *model.Config
	store   *store.SQLiteStore
	labels  *label.Store
	metrics *metrics.Manager
	log     logger.Logger

	mu       sync.Mutex
	embedder embed.Embedder
	vectors  *cache.VectorCache
	engine   *score.Engine
	clues    clues.Fetcher
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithEmbedder injects an embedder instead of building one from config
func WithEmbedder(e embed.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithClueFetcher injects a clue fetcher instead of building one from config
func WithClueFetcher(f clues.Fetcher) Option {
	return func(p *Pipeline) { p.clues = f }
}

// WithMetrics sets the metrics manager
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewMetrics builds the metrics manager described by cfg
func NewMetrics(cfg model.MetricsConfig) *metrics.Manager {
	return metrics.NewManager(
		metrics.WithNamespace(cfg.Namespace),
		metrics.WithMetricsEnabled(cfg.Enabled),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets))
}

// New opens the database and replays the label log
func New(ctx context.Context, cfg *model.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		config:  cfg,
		metrics: metrics.Default(),
		log:     logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	p.store = s

	p.labels = label.New(s,
		label.WithMetrics(p.metrics),
		label.WithLogger(logger.Named("label")))
	if err := p.labels.Load(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return p, nil
}

// Close releases the database
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// Labels returns the label store
func (p *Pipeline) Labels() *label.Store { return p.labels }

// Store returns the persistent store
func (p *Pipeline) Store() *store.SQLiteStore { return p.store }

// Vectors returns the vector cache, building the embedder on first use
func (p *Pipeline) Vectors() (*cache.VectorCache, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vectorsLocked()
}

func (p *Pipeline) vectorsLocked() (*cache.VectorCache, error) {
	if p.vectors != nil {
		return p.vectors, nil
	}

	ec := p.config.Embedding
	if p.embedder == nil {
		cfg := embed.ConfigFromModel(ec)
		cfg.HTTPProxy = p.config.Clues.HTTPProxy
		cfg.HTTPSProxy = p.config.Clues.HTTPSProxy
		e, err := embed.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		p.embedder = e
	}

	batchSize := ec.BatchSize
	if batchSize <= 0 {
		batchSize = cache.DefaultEmbedBatchSize
	}
	limiter := worker.NewLimiter(ec.RequestsPerSecond, ec.Burst)

	p.vectors = cache.NewVectorCache(p.embedder, p.store,
		cache.WithPromptTemplate(ec.PromptTemplate),
		cache.WithDimensions(ec.Dimensions),
		cache.WithBatching(ec.Concurrency, batchSize, limiter),
		cache.WithMemoryTTL(p.config.Cache.MemoryTTL),
		cache.WithMemoryLimit(p.config.Cache.MemoryEntries),
		cache.WithMetrics(p.metrics),
		cache.WithLogger(logger.Named("vectors")))
	return p.vectors, nil
}

// Engine returns the scoring engine
func (p *Pipeline) Engine() (*score.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		return p.engine, nil
	}

	vectors, err := p.vectorsLocked()
	if err != nil {
		return nil, err
	}

	tc := p.config.Training
	trainer := classifier.NewPegasosTrainer(tc.Lambda, tc.Epochs, tc.Seed)
	p.engine = score.NewEngine(vectors, trainer, p.store,
		score.WithSplit(tc.TestRatio, tc.Seed),
		score.WithMetrics(p.metrics),
		score.WithLogger(logger.Named("score")))
	return p.engine, nil
}

// ClueFetcher returns the configured clue source
func (p *Pipeline) ClueFetcher() clues.Fetcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clues != nil {
		return p.clues
	}

	cc := p.config.Clues
	switch cc.Source {
	case "crosswordtracker":
		pages := clues.NewPageFetcher(cc.Timeout, cc.UserAgent, clues.MaxPageBytes, cc.HTTPProxy, cc.HTTPSProxy)
		opts := []clues.TrackerOption{
			clues.WithMaxClues(cc.MaxClues),
			clues.WithLimiter(worker.NewLimiter(cc.RequestsPerSecond, cc.Burst)),
			clues.WithMetrics(p.metrics),
			clues.WithLogger(logger.Named("clues")),
		}
		if cc.RespectRobots {
			opts = append(opts, clues.WithRobots(clues.NewRobotsChecker(cc.UserAgent, pages.HTTPClient())))
		}
		if pc := p.config.Cache; pc.Enabled {
			var pageCache *cache.LayeredCache
			if pc.Dir == "" {
				pageCache = cache.NewMemoryOnly(pc.MemoryTTL)
			} else {
				pageCache = cache.NewLayeredCache(pc.MemoryTTL, filepath.Join(pc.Dir, "clues"), pc.DiskTTL)
			}
			opts = append(opts, clues.WithPageCache(pageCache, 0))
		}
		p.clues = clues.NewTrackerFetcher(cc.BaseURL, pages, opts...)
	default:
		p.clues = clues.NoopFetcher{}
	}
	return p.clues
}
