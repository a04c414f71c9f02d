// Package clues retrieves crossword clues for words.
package clues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/wordlist/internal/cache"
	"github.com/ppiankov/wordlist/internal/worker"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

// ErrDisallowed means robots.txt forbids fetching the clue page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher finds clues for a word. found is false when the source has none.
type Fetcher interface {
	FetchClues(ctx context.Context, word string) (clues string, found bool, err error)
}

// NoopFetcher never finds clues
type NoopFetcher struct{}

// FetchClues always reports no clues
func (NoopFetcher) FetchClues(context.Context, string) (string, bool, error) {
	return "", false, nil
}

const (
	cluesHeading    = "Referring crossword puzzle clues"
	DefaultMaxClues = 6
	MaxPageBytes    = 2 << 20
)

// TrackerFetcher scrapes clue pages of the form <base>/answer/<word>/
type TrackerFetcher struct {
	baseURL  string
	maxClues int
	pages    *PageFetcher
	robots   *RobotsChecker
	limiter  *worker.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Manager
	log      logger.Logger
}

// TrackerOption configures a TrackerFetcher
type TrackerOption func(*TrackerFetcher)

// WithRobots checks robots.txt before every page
func WithRobots(r *RobotsChecker) TrackerOption {
	return func(f *TrackerFetcher) { f.robots = r }
}

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) TrackerOption {
	return func(f *TrackerFetcher) { f.limiter = l }
}

// WithPageCache memoizes parsed clues per page URL
func WithPageCache(c cache.Cache, ttl time.Duration) TrackerOption {
	return func(f *TrackerFetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithMaxClues caps the number of clues kept per word
func WithMaxClues(n int) TrackerOption {
	return func(f *TrackerFetcher) {
		if n > 0 {
			f.maxClues = n
		}
	}
}

// WithMetrics counts fetch results on m
func WithMetrics(m *metrics.Manager) TrackerOption {
	return func(f *TrackerFetcher) { f.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) TrackerOption {
	return func(f *TrackerFetcher) { f.log = l }
}

// NewTrackerFetcher creates a scraper rooted at baseURL
func NewTrackerFetcher(baseURL string, pages *PageFetcher, opts ...TrackerOption) *TrackerFetcher {
	f := &TrackerFetcher{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxClues: DefaultMaxClues,
		pages:    pages,
		metrics:  metrics.Default(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PageURL is the clue page of word
func (f *TrackerFetcher) PageURL(word string) string {
	return f.baseURL + "/answer/" + url.PathEscape(strings.ToLower(word)) + "/"
}

// FetchClues returns up to maxClues clues as "- clue" lines
func (f *TrackerFetcher) FetchClues(ctx context.Context, word string) (string, bool, error) {
	pageURL := f.PageURL(word)
	key := cache.CacheKey(pageURL)

	if f.cache != nil {
		if val, ok := f.cache.Get(key); ok {
			f.metrics.RecordClueFetch("cached")
			return string(val), len(val) > 0, nil
		}
	}

	var delay time.Duration
	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, pageURL)
		if err != nil {
			return "", false, err
		}
		if !allowed {
			f.metrics.RecordClueFetch("disallowed")
			return "", false, fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
		}
		delay = crawlDelay
	}

	if f.limiter != nil {
		host, err := worker.HostOf(pageURL)
		if err != nil {
			return "", false, err
		}
		if err := f.limiter.WaitWithDelay(ctx, host, delay); err != nil {
			return "", false, err
		}
	}

	page, err := f.pages.FetchWithRetry(ctx, pageURL)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			f.remember(key, "")
			f.metrics.RecordClueFetch("not_found")
			return "", false, nil
		}
		f.metrics.RecordClueFetch("error")
		return "", false, err
	}

	clues, err := ParseClues(strings.NewReader(page.HTML), f.maxClues)
	if err != nil {
		f.metrics.RecordClueFetch("error")
		return "", false, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	f.remember(key, clues)
	if clues == "" {
		f.metrics.RecordClueFetch("not_found")
		return "", false, nil
	}
	f.metrics.RecordClueFetch("found")
	f.log.Debug(ctx, "clues fetched", logger.String("word", word))
	return clues, true, nil
}

func (f *TrackerFetcher) remember(key, clues string) {
	if f.cache == nil {
		return
	}
	_ = f.cache.Set(key, []byte(clues), f.cacheTTL)
}

// ParseClues finds the "Referring crossword puzzle clues" heading and renders
// the first limit list items of the block that follows it
func ParseClues(r io.Reader, limit int) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	heading := findHeading(doc)
	if heading == nil {
		return "", nil
	}

	block := nextElement(heading)
	if block == nil || block.DataAtom != atom.Div {
		return "", nil
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(lines) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			if text := collapse(textOf(n)); text != "" {
				lines = append(lines, "- "+text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)

	return strings.Join(lines, "\n"), nil
}

func findHeading(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.H3 &&
		strings.EqualFold(collapse(textOf(n)), cluesHeading) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHeading(c); found != nil {
			return found
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
