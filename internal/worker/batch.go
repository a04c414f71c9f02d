package worker

import (
	"context"
	"sort"
)

// ChunkFunc processes one chunk of items
type ChunkFunc func(ctx context.Context, items []string) error

// ChunkJob runs a ChunkFunc after waiting on the limiter
type ChunkJob struct {
	Index   int
	Items   []string
	Fn      ChunkFunc
	Limiter *Limiter
	Key     string
}

// Execute waits for rate-limit clearance and runs the chunk
func (j *ChunkJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ChunkResult{Index: j.Index, Items: j.Items, Error: err}
	}
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Key); err != nil {
			return &ChunkResult{Index: j.Index, Items: j.Items, Error: err}
		}
	}
	return &ChunkResult{Index: j.Index, Items: j.Items, Error: j.Fn(ctx, j.Items)}
}

// ChunkResult is the outcome of one chunk
type ChunkResult struct {
	Index int
	Items []string
	Error error
}

// GetError returns the error from the chunk result
func (r *ChunkResult) GetError() error {
	return r.Error
}

// BatchProcessor splits items into chunks and runs them on a bounded pool
type BatchProcessor struct {
	concurrency int
	chunkSize   int
	limiter     *Limiter
	key         string
}

// NewBatchProcessor creates a processor. limiter may be nil.
func NewBatchProcessor(concurrency, chunkSize int, limiter *Limiter, key string) *BatchProcessor {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &BatchProcessor{
		concurrency: concurrency,
		chunkSize:   chunkSize,
		limiter:     limiter,
		key:         key,
	}
}

// Process runs fn over every chunk of items and returns one result per chunk,
// in chunk order. Once ctx is cancelled no new chunks start; chunks that never
// ran carry ctx.Err().
func (b *BatchProcessor) Process(ctx context.Context, items []string, fn ChunkFunc) []*ChunkResult {
	chunks := Chunk(items, b.chunkSize)
	if len(chunks) == 0 {
		return []*ChunkResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, c := range chunks {
		job := &ChunkJob{Index: i, Items: c, Fn: fn, Limiter: b.limiter, Key: b.key}
		if !pool.Submit(job) {
			break
		}
	}

	byIndex := make(map[int]*ChunkResult, len(chunks))
	for _, r := range pool.Wait() {
		cr := r.(*ChunkResult)
		byIndex[cr.Index] = cr
	}

	out := make([]*ChunkResult, 0, len(chunks))
	for i, c := range chunks {
		if r, ok := byIndex[i]; ok {
			out = append(out, r)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out = append(out, &ChunkResult{Index: i, Items: c, Error: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
