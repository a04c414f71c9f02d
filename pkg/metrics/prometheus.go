// Package metrics provides Prometheus metrics for the wordlist pipeline.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layers reported by RecordCacheHit.
const (
	LayerMemory = "memory"
	LayerStore  = "store"
)

// Manager owns every collector of the pipeline.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	embeddingsRequested prometheus.Counter
	embeddingFailures   prometheus.Counter
	embeddingLatency    prometheus.Histogram
	cacheHits           *prometheus.CounterVec

	labelEvents *prometheus.CounterVec

	wordsScored    prometheus.Counter
	scoreFailures  prometheus.Counter
	modelsTrained  prometheus.Counter
	distilledWords prometheus.Gauge

	clueFetches *prometheus.CounterVec
}

var (
	globalMu      sync.RWMutex
	globalManager = NewManager() //nolint:gochecknoglobals
)

// NewManager creates a manager on its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wordlist",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.embeddingsRequested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "embedding",
		Name:      "requested_total",
		Help:      "Words sent to the embedding provider",
	})
	m.embeddingFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "embedding",
		Name:      "failures_total",
		Help:      "Words whose embedding could not be obtained",
	})
	m.embeddingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of embedding provider calls",
		Buckets:   m.histogramBuckets,
	})
	m.cacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "embedding",
		Name:      "cache_hits_total",
		Help:      "Vector cache hits by layer",
	}, []string{"layer"})

	m.labelEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "label",
		Name:      "events_total",
		Help:      "Label events by action and outcome",
	}, []string{"action", "outcome"})

	m.wordsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "words_total",
		Help:      "Words scored by a model",
	})
	m.scoreFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "failures_total",
		Help:      "Words that could not be scored",
	})
	m.modelsTrained = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "models_trained_total",
		Help:      "Classifier artifacts fitted",
	})
	m.distilledWords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "curate",
		Name:      "output_words",
		Help:      "Size of the last distilled list",
	})

	m.clueFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "clues",
		Name:      "fetches_total",
		Help:      "Clue page fetches by result",
	}, []string{"result"})
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) RecordEmbeddingRequest(words int, took time.Duration) {
	if !m.enabled {
		return
	}
	m.embeddingsRequested.Add(float64(words))
	m.embeddingLatency.Observe(took.Seconds())
}

func (m *Manager) RecordEmbeddingFailure(words int) {
	if m.enabled {
		m.embeddingFailures.Add(float64(words))
	}
}

func (m *Manager) RecordCacheHit(layer string) {
	if m.enabled {
		m.cacheHits.WithLabelValues(layer).Inc()
	}
}

func (m *Manager) RecordLabelEvent(action, outcome string) {
	if m.enabled {
		m.labelEvents.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Manager) RecordScored(succeeded, failed int) {
	if !m.enabled {
		return
	}
	m.wordsScored.Add(float64(succeeded))
	m.scoreFailures.Add(float64(failed))
}

func (m *Manager) RecordModelTrained() {
	if m.enabled {
		m.modelsTrained.Inc()
	}
}

func (m *Manager) SetDistilledWords(n int) {
	if m.enabled {
		m.distilledWords.Set(float64(n))
	}
}

func (m *Manager) RecordClueFetch(result string) {
	if m.enabled {
		m.clueFetches.WithLabelValues(result).Inc()
	}
}

// WriteTextfile writes every gathered metric in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return nil
}

// Default returns the process-wide manager.
func Default() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// SetDefault replaces the process-wide manager, returning the previous one.
func SetDefault(m *Manager) *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := globalManager
	globalManager = m
	return prev
}
