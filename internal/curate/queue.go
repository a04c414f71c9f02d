package curate

import (
	"sort"

	"github.com/ppiankov/wordlist/internal/model"
)

// QueueItem is a word awaiting review
type QueueItem struct {
	Word  string
	Score *int
}

// ReviewQueue orders unchecked words least likely first: ascending score,
// unscored words after scored ones, then by word. limit <= 0 returns all.
func ReviewQueue(unchecked []string, records []model.ScoreRecord, modelID string, limit int) []QueueItem {
	latest := Latest(records, modelID)

	items := make([]QueueItem, 0, len(unchecked))
	for _, w := range unchecked {
		it := QueueItem{Word: w}
		if r, ok := latest[w]; ok {
			it.Score = model.IntPtr(r.Normalized)
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.Score != nil && b.Score != nil && *a.Score != *b.Score:
			return *a.Score < *b.Score
		case (a.Score == nil) != (b.Score == nil):
			return a.Score != nil
		default:
			return a.Word < b.Word
		}
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
