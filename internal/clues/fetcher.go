package clues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/wordlist/internal/util"
)

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = func(d time.Duration) { time.Sleep(d) }

const (
	maxFetchAttempts = 3
	fetchBackoff     = time.Second
)

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Page is a fetched HTML page
type Page struct {
	HTML       string
	StatusCode int
	FinalURL   string
}

// PageFetcher fetches HTML pages with a size cap and bounded redirects
type PageFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewPageFetcher creates a fetcher; proxies may be empty
func NewPageFetcher(timeout time.Duration, userAgent string, maxBytes int64, httpProxy, httpsProxy string) *PageFetcher {
	client := util.NewHTTPClient(timeout, httpProxy, httpsProxy, "")
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}
	return &PageFetcher{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// HTTPClient exposes the client for robots.txt lookups
func (f *PageFetcher) HTTPClient() *http.Client { return f.httpClient }

// Fetch retrieves one page; non-2xx responses return *StatusError
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries rate limits, server errors and network failures
// with linear backoff
func (f *PageFetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		page, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < maxFetchAttempts {
			fetchSleepFunc(time.Duration(attempt) * fetchBackoff)
		}
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
