// Package fetcher downloads a page and turns it into the visible text the
// checker scans for keywords.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "ticketwatch/1.0 (+https://github.com/mattmezza/ticketwatch)"

	// maxBodyBytes caps how much of a page is read.
	maxBodyBytes = 10 << 20
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected http status")

// Page is a fetched and extracted page.
type Page struct {
	URL        string
	StatusCode int
	Text       string
	FetchedIn  time.Duration
}

// Fetcher performs bounded-timeout GET requests.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New builds a Fetcher. A zero timeout selects DefaultTimeout and an empty
// user agent selects DefaultUserAgent.
func New(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads url and extracts its visible text. The body is decoded as
// UTF-8 regardless of the declared charset.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	text, err := ExtractText(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", url, err)
	}

	return &Page{
		URL:        url,
		StatusCode: resp.StatusCode,
		Text:       text,
		FetchedIn:  time.Since(start),
	}, nil
}
