package clues

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/wordlist/internal/cache"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

const housePage = `<html><body>
<h3>Answer</h3><div>HOUSE</div>
<h3>Referring crossword puzzle clues</h3>
<div>
  <ul>
    <li><a href="/clue/a">Home</a></li>
    <li>Legislative   body</li>
    <li>Dwelling</li>
    <li>Full ___ (poker hand)</li>
    <li>Casino</li>
    <li>Residence</li>
    <li>Seventh one</li>
  </ul>
</div>
</body></html>`

func TestParseClues(t *testing.T) {
	got, err := ParseClues(strings.NewReader(housePage), 6)
	if err != nil {
		t.Fatalf("ParseClues: %v", err)
	}
	want := "- Home\n- Legislative body\n- Dwelling\n- Full ___ (poker hand)\n- Casino\n- Residence"
	if got != want {
		t.Errorf("ParseClues =\n%s\nwant\n%s", got, want)
	}
}

func TestParseClues_NoSection(t *testing.T) {
	got, err := ParseClues(strings.NewReader("<html><body><h3>Other</h3><div><li>x</li></div></body></html>"), 6)
	if err != nil || got != "" {
		t.Errorf("Expected no clues, got %q %v", got, err)
	}
}

func newTrackerServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /answer/secret/\n")
		case "/answer/house/":
			hits.Add(1)
			_, _ = fmt.Fprint(w, housePage)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestTrackerFetcher(t *testing.T) {
	var hits atomic.Int32
	server := newTrackerServer(t, &hits)
	defer server.Close()

	pages := NewPageFetcher(5*time.Second, "test-agent", 1<<20, "", "")
	f := NewTrackerFetcher(server.URL+"/", pages,
		WithRobots(NewRobotsChecker("test-agent", pages.HTTPClient())),
		WithPageCache(cache.NewMemoryOnly(time.Minute), 0),
		WithMetrics(metrics.NewManager()))
	ctx := context.Background()

	clues, found, err := f.FetchClues(ctx, "HOUSE")
	if err != nil || !found {
		t.Fatalf("FetchClues: found=%v err=%v", found, err)
	}
	if !strings.HasPrefix(clues, "- Home\n") || strings.Count(clues, "\n") != 5 {
		t.Errorf("Unexpected clues: %q", clues)
	}

	if _, _, err := f.FetchClues(ctx, "HOUSE"); err != nil {
		t.Fatalf("cached FetchClues: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected the second lookup to hit the cache, got %d requests", hits.Load())
	}

	_, found, err = f.FetchClues(ctx, "XYZZY")
	if err != nil || found {
		t.Errorf("Expected no clues for an unknown word, got found=%v err=%v", found, err)
	}

	_, _, err = f.FetchClues(ctx, "SECRET")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
}

func TestNoopFetcher(t *testing.T) {
	clues, found, err := NoopFetcher{}.FetchClues(context.Background(), "HOUSE")
	if clues != "" || found || err != nil {
		t.Errorf("NoopFetcher returned %q %v %v", clues, found, err)
	}
}
