// Package fetcher retrieves feed documents over HTTP and hands them to the
// parser. Every error out of this package invalidates the whole run; the
// caller never retries per item.
package fetcher // import "jobimporter.app/internal/reader/fetcher"

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobimporter.app/internal/model"
	"jobimporter.app/internal/reader/parser"
)

const (
	defaultAcceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
	defaultUserAgent    = "JobImporter (+https://jobimporter.app)"
)

// Fetcher downloads feeds with a bounded timeout and body size.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
}

// New returns a Fetcher whose requests are bounded by timeout and whose
// response bodies are capped at maxBodySize bytes.
func New(timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		maxBodySize: maxBodySize,
	}
}

// Fetch downloads feedURL, parses it as a feed document and returns the
// raw item sequence.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]model.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: invalid feed url %q: %w", feedURL, err)
	}
	req.Header.Set("Accept", defaultAcceptHeader)
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: fetch %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetcher: fetch %s: unexpected status %d",
			feedURL, resp.StatusCode)
	}

	items, err := parser.Parse(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetcher: parse %s: %w", feedURL, err)
	}
	return items, nil
}
