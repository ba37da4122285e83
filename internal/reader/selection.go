// Package reader turns a web page into translatable selection text.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	// DefaultMaxSelectionRunes caps extracted text so a whole article still
	// fits a single translation request.
	DefaultMaxSelectionRunes = 6000

	defaultUserAgent = "GLOSSA-Translate/1.0 (+https://horse.fit/glossa)"
)

// FetchOptions controls HTTP behavior for selection extraction.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	// MaxRunes caps the extracted selection. Zero means the default cap,
	// negative disables capping.
	MaxRunes   int
	UserAgent  string
	HTTPClient *http.Client
}

func (o FetchOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultFetchTimeout
}

func (o FetchOptions) bodyLimit() int64 {
	if o.BodyByteLimit > 0 {
		return o.BodyByteLimit
	}
	return DefaultBodyByteLimit
}

func (o FetchOptions) userAgent() string {
	if ua := strings.TrimSpace(o.UserAgent); ua != "" {
		return ua
	}
	return defaultUserAgent
}

func (o FetchOptions) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.timeout()}
}

func (o FetchOptions) runeCap() int {
	if o.MaxRunes == 0 {
		return DefaultMaxSelectionRunes
	}
	return o.MaxRunes
}

// FetchSelection retrieves a page and extracts its readable text as the
// selection to translate. Plain-text responses are cleaned and returned
// directly; everything else goes through readability extraction.
func FetchSelection(ctx context.Context, pageURL string, opts FetchOptions) (string, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return "", fmt.Errorf("selection URL is required")
	}

	body, contentType, err := fetchPage(ctx, page, opts)
	if err != nil {
		return "", err
	}

	var text string
	if strings.HasPrefix(contentType, "text/plain") {
		text = CleanText(string(body))
	} else {
		if text, err = extractReadable(body, page); err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}

	if limit := opts.runeCap(); limit > 0 {
		text, _ = TruncateText(text, limit)
	}
	return text, nil
}

// fetchPage downloads the page body within the configured limits and reports
// the response content type.
func fetchPage(ctx context.Context, page string, opts FetchOptions) ([]byte, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", opts.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.bodyLimit()))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	return body, contentType, nil
}

func extractReadable(body []byte, page string) (string, error) {
	pageURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	return text, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// CleanText collapses whitespace runs inside lines and rewrites the text as
// blank-line separated paragraphs.
func CleanText(raw string) string {
	var b strings.Builder
	for _, line := range strings.Split(lineEndings.Replace(raw), "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(words, " "))
	}
	return b.String()
}

// TruncateText clips text to at most maxRunes runes, marking the cut with a
// single ellipsis rune.
func TruncateText(raw string, maxRunes int) (string, bool) {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if text == "" || maxRunes <= 0 || len(runes) <= maxRunes {
		return text, false
	}

	kept := strings.TrimSpace(string(runes[:maxRunes-1]))
	return kept + "…", true
}
