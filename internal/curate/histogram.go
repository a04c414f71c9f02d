package curate

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/wordlist/internal/model"
)

// BucketWidth is the score span of one histogram bucket
const BucketWidth = 2

// Histogram counts scored entries per 2-point bucket over 0..50; a score of
// 50 lands in the top bucket. Retained-only entries are not counted.
func Histogram(entries []Entry) []int {
	buckets := make([]int, model.MaxNormalizedScore/BucketWidth)
	for _, e := range entries {
		if e.Score == nil {
			continue
		}
		i := *e.Score / BucketWidth
		i = max(0, min(i, len(buckets)-1))
		buckets[i]++
	}
	return buckets
}

// RenderHistogram draws one bar per bucket, scaled to width columns
func RenderHistogram(w io.Writer, buckets []int, width int) error {
	peak := 0
	for _, n := range buckets {
		peak = max(peak, n)
	}
	for i, n := range buckets {
		bar := 0
		if peak > 0 {
			bar = n * width / peak
		}
		lo := i * BucketWidth
		if _, err := fmt.Fprintf(w, "%2d-%2d | %-*s %d\n", lo, lo+BucketWidth, width, strings.Repeat("#", bar), n); err != nil {
			return err
		}
	}
	return nil
}
