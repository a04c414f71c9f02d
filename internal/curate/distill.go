// Package curate merges scores with retained approvals into the final word list.
package curate

import (
	"fmt"
	"sort"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/score"
)

// RetainedMarker is the score column of every retained word. It ranks above
// every numeric score.
const RetainedMarker = "retained"

// Entry is one line of the final list. A nil Score renders as RetainedMarker.
type Entry struct {
	Word     string `json:"word" yaml:"word"`
	Score    *int   `json:"score" yaml:"score"`
	Retained bool   `json:"retained" yaml:"retained"`
}

// ScoreText renders the score column
func (e Entry) ScoreText() string {
	if e.Score == nil {
		return RetainedMarker
	}
	return fmt.Sprintf("%d", *e.Score)
}

// Options bound the scored group. With neither TargetSize nor Threshold set
// every eligible scored candidate is kept.
type Options struct {
	TargetSize int  // Stop once the list holds this many words (0 = unbounded)
	Threshold  *int // Stop at the first score below this value
	Exact      bool // Fail unless exactly TargetSize words can be produced

	Excluded map[string]bool // Never selected from the pool, e.g. rejected words
	ModelID  string          // Only use records of this model ("" = any)
}

// Distill builds the final list: every retained word, then pool words ranked
// by their most recent score until a bound is hit. The output is sorted by
// score descending with the retained marker above all scores; ties break on
// the word.
func Distill(pool model.CandidatePool, records []model.ScoreRecord, retained []string, opts Options) ([]Entry, error) {
	if len(pool) == 0 {
		return nil, model.ErrEmptyCandidatePool
	}
	if opts.TargetSize < 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidTargetSize, opts.TargetSize)
	}

	latest := Latest(records, opts.ModelID)

	keep := make(map[string]bool)
	var head []Entry
	for _, w := range model.NormalizeWords(retained) {
		keep[w] = true
		head = append(head, Entry{Word: w, Retained: true})
	}
	sort.Slice(head, func(i, j int) bool { return less(head[i], head[j]) })

	var eligible []Entry
	for w := range pool {
		if keep[w] || opts.Excluded[w] {
			continue
		}
		if r, ok := latest[w]; ok {
			eligible = append(eligible, Entry{Word: w, Score: model.IntPtr(r.Normalized)})
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return less(eligible[i], eligible[j]) })

	if opts.Exact {
		if opts.TargetSize < len(head) || opts.TargetSize > len(head)+len(eligible) {
			return nil, fmt.Errorf("%w: target %d, retained %d, reachable %d",
				model.ErrInvalidTargetSize, opts.TargetSize, len(head), len(head)+len(eligible))
		}
	}

	out := head
	for _, e := range eligible {
		if opts.TargetSize > 0 && len(out) >= opts.TargetSize {
			break
		}
		if opts.Threshold != nil && *e.Score < *opts.Threshold {
			break
		}
		out = append(out, e)
	}

	if opts.Exact && len(out) != opts.TargetSize {
		return nil, fmt.Errorf("%w: threshold stopped at %d of %d words",
			model.ErrInvalidTargetSize, len(out), opts.TargetSize)
	}
	return out, nil
}

// LatestByWord keeps the most recent record per word, optionally for one model
func LatestByWord(records []model.ScoreRecord, modelID string) map[string]model.ScoreRecord {
	out := make(map[string]model.ScoreRecord, len(records))
	for _, r := range records {
		if modelID != "" && r.ModelID != modelID {
			continue
		}
		if cur, ok := out[r.Word]; ok && cur.ScoredAt.After(r.ScoredAt) {
			continue
		}
		out[r.Word] = r
	}
	return out
}

// Latest returns the most recent record per word with every Normalized on one
// scale. When those records come from more than one batch, Normalized is
// recomputed over their merged raw scores.
func Latest(records []model.ScoreRecord, modelID string) map[string]model.ScoreRecord {
	latest := LatestByWord(records, modelID)

	batches := make(map[string]bool)
	for _, r := range latest {
		batches[r.BatchID] = true
	}
	if len(batches) < 2 {
		return latest
	}

	raws := make(map[string]float64, len(latest))
	for w, r := range latest {
		raws[w] = r.Raw
	}
	for w, n := range score.Normalize(raws) {
		r := latest[w]
		r.Normalized = n
		latest[w] = r
	}
	return latest
}

// less orders retained entries first, then by score descending, then by word
func less(a, b Entry) bool {
	switch {
	case (a.Score == nil) != (b.Score == nil):
		return a.Score == nil
	case a.Score != nil && *a.Score != *b.Score:
		return *a.Score > *b.Score
	default:
		return a.Word < b.Word
	}
}
