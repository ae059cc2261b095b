// Package vision is a Google Cloud Vision TEXT_DETECTION client.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/harvester/internal/types"
)

const requestTimeout = 60 * time.Second

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string) *Adapter {
	return &Adapter{
		key:     apiKey,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *Adapter) Name() string { return "vision" }

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		Error *apiError `json:"error"`
	} `json:"responses"`
	Error *apiError `json:"error"`
}

func (a *Adapter) Recognize(ctx context.Context, img []byte) (types.Recognition, error) {
	if len(img) == 0 {
		return types.Recognition{}, errors.New("empty image")
	}
	if a.key == "" {
		return types.Recognition{}, errors.New("GOOGLE_VISION_API_KEY is not set")
	}

	body, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(img)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return types.Recognition{}, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := a.baseURL + "/v1/images:annotate?key=" + url.QueryEscape(a.key)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Recognition{}, errors.New(redactSecrets(err.Error(), a.key))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.Recognition{}, fmt.Errorf("vision timeout after %s", requestTimeout)
		}
		// url.Error carries the full URL, key included.
		return types.Recognition{}, errors.New(redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Recognition{}, fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Recognition{}, fmt.Errorf("vision status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var out annotateResponse
	if err := json.Unmarshal(rb, &out); err != nil {
		return types.Recognition{}, fmt.Errorf("decode vision response: %w", err)
	}
	if out.Error != nil {
		return types.Recognition{}, fmt.Errorf("vision error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Responses) == 0 {
		return types.Recognition{}, errors.New("vision returned no responses")
	}
	r := out.Responses[0]
	if r.Error != nil {
		return types.Recognition{}, fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}

	// The first text annotation is the whole detected block; the rest are single words.
	var text string
	switch {
	case r.FullTextAnnotation != nil:
		text = r.FullTextAnnotation.Text
	case len(r.TextAnnotations) > 0:
		text = r.TextAnnotations[0].Description
	}
	text = strings.TrimSpace(text)
	return types.Recognition{Text: text, Lines: splitLines(text)}, nil
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	keyParamRE    = regexp.MustCompile(`([?&]key=)[^&\s"]+`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;&]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
		out = strings.ReplaceAll(out, url.QueryEscape(apiKey), "[REDACTED]")
	}
	out = keyParamRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
