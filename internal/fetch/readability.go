// Package fetch retrieves the readable text content of bookmarked pages.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	defaultTimeout    = 30 * time.Second
	maxResponseBytes  = 8 << 20 // 8 MiB
	defaultUserAgent  = "inkwell/1.0"
	acceptHeaderValue = "text/html,application/xhtml+xml"
)

// ReadabilityFetcher downloads a page and extracts its readable article text,
// stripping navigation, ads, and boilerplate.
type ReadabilityFetcher struct {
	client *http.Client
}

func NewReadabilityFetcher() *ReadabilityFetcher {
	return &ReadabilityFetcher{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// FetchText implements the page fetcher contract: it returns the page title
// and its readable text content.
func (f *ReadabilityFetcher) FetchText(ctx context.Context, rawURL string) (string, string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", acceptHeaderValue)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to read page body: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract readable content: %w", err)
	}

	return article.Title, article.TextContent, nil
}
