package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxBodyBytes = 10 << 20

// Response is what a check sees of one GET request.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Elapsed is measured from sending the request until response headers arrive.
	Elapsed time.Duration
}

// Fetcher performs a single GET request.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher is the Fetcher backed by net/http. It never retries.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher wraps client. Pass nil logger to use the default logger.
func NewHTTPFetcher(client *http.Client, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{client: client, logger: logger}
}

// NewClient returns an http.Client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		f.logger.Debug("fetch failed", "url", url, "elapsed", elapsed, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}

	f.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "elapsed", elapsed, "bytes", len(body))
	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}
