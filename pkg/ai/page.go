package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
)

// pageFetcher downloads a web page and reduces it to plain text for the model
type pageFetcher struct {
	httpClient *http.Client
	logger     logger.Logger
}

func newPageFetcher(timeout time.Duration, log logger.Logger) *pageFetcher {
	return &pageFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log,
	}
}

// FetchText downloads url and returns its visible text, one trimmed line per
// text node, with scripts and styles removed
func (f *pageFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.ErrorWith(logger.AI, "Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	text := extractText(doc)
	if text == "" {
		return "", fmt.Errorf("no text content found at %s", url)
	}
	return text, nil
}

func extractText(doc *goquery.Document) string {
	var lines []string
	for _, raw := range strings.Split(doc.Text(), "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
