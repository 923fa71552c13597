package summarize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// maxPageBytes bounds how much of a fetched page is read. Pages are
// summarized, not archived.
const maxPageBytes = 512 * 1024

var (
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// PageFetcher retrieves external link targets for summarization.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher creates a fetcher with a bounded request timeout.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &PageFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the page and returns its title and a plain-text rendering
// of the body. The title falls back to the URL when the page has none.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", url, err)
	}

	page := string(raw)
	title = url
	if m := titlePattern.FindStringSubmatch(page); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}
	text = scriptPattern.ReplaceAllString(page, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	return title, strings.TrimSpace(text), nil
}
