package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/zenimport/internal/logger"
)

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// FetchURL downloads a page with Colly. Only http and https URLs are
// accepted. Bodies over the size limit fail with ErrInputTooLarge.
func (r *Reader) FetchURL(ctx context.Context, targetURL string) (*Document, error) {
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: must be an absolute http(s) URL", targetURL)
	}

	logger.Debug("fetch starting", "url", targetURL)

	// Create a new collector for each request
	c := colly.NewCollector(
		colly.UserAgent(r.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(int(r.config.MaxSize)+1),
	)
	c.SetRequestTimeout(r.config.Timeout)

	var (
		body        []byte
		contentType string
		fetchErr    error
	)

	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
		contentType = resp.Headers.Get("Content-Type")
		logger.Debug("fetch response received",
			"status", resp.StatusCode,
			"content_type", contentType,
			"body_size", len(resp.Body))
	})

	c.OnError(func(resp *colly.Response, err error) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error (status %d): %w", status, err)
		logger.Debug("fetch error", "url", targetURL, "status", status, "error", err)
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	return r.document(targetURL, body, contentType)
}
