// Package webpage resolves a video title from the HTML of its page.
package webpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxBody = 4 << 20

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL) }

type Resolver struct {
	client *http.Client
}

func New(c *http.Client) *Resolver {
	if c == nil {
		c = &http.Client{Timeout: 20 * time.Second}
	}
	return &Resolver{client: c}
}

func (r *Resolver) ResolveTitle(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}
	return ParseTitle(b)
}

// ParseTitle prefers og:title, then <title>.
func ParseTitle(html []byte) (string, error) {
	if len(html) == 0 {
		return "", errors.New("empty page")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := normSpace(v); t != "" {
			return t, nil
		}
	}
	if t := normSpace(doc.Find("title").First().Text()); t != "" {
		return t, nil
	}
	return "", errors.New("page has no title")
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
