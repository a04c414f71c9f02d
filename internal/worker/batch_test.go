package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestChunk(t *testing.T) {
	items := []string{"A", "B", "C", "D", "E"}

	chunks := Chunk(items, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 || chunks[2][0] != "E" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
	if got := Chunk(nil, 3); len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %v", got)
	}
	if got := Chunk(items, 0); len(got) != 5 {
		t.Errorf("size 0 should fall back to 1, got %d chunks", len(got))
	}
}

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(3, 2, NewLimiter(0, 1), "test")

	var mu sync.Mutex
	seen := make(map[string]bool)

	results := processor.Process(context.Background(), []string{"A", "B", "C", "D", "E"},
		func(ctx context.Context, items []string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, it := range items {
				seen[it] = true
			}
			if items[0] == "C" {
				return errors.New("chunk failed")
			}
			return nil
		})

	if len(results) != 3 {
		t.Fatalf("expected 3 chunk results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results not in chunk order: %d at %d", r.Index, i)
		}
	}
	if results[1].Error == nil || strings.Join(results[1].Items, "") != "CD" {
		t.Errorf("expected chunk CD to fail, got %+v", results[1])
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("other chunks should succeed")
	}
	if len(seen) != 5 {
		t.Errorf("expected every item processed, got %v", seen)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(2, 10, nil, "")
	results := processor.Process(context.Background(), nil, func(context.Context, []string) error {
		t.Error("fn must not run for empty input")
		return nil
	})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelStopsNewChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	processor := NewBatchProcessor(1, 1, nil, "")

	var mu sync.Mutex
	ran := 0
	results := processor.Process(ctx, []string{"A", "B", "C", "D", "E", "F", "G", "H"},
		func(ctx context.Context, items []string) error {
			mu.Lock()
			ran++
			mu.Unlock()
			cancel()
			return nil
		})

	if len(results) != 8 {
		t.Fatalf("expected a result per chunk, got %d", len(results))
	}
	if ran >= 8 {
		t.Errorf("expected cancellation to stop later chunks, ran %d", ran)
	}

	cancelled := 0
	for _, r := range results {
		if errors.Is(r.Error, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected chunks reported as cancelled")
	}
}

func TestChunkResult_GetError(t *testing.T) {
	expected := errors.New("embed failed")
	r := &ChunkResult{Error: expected}
	if r.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r.GetError())
	}
}
