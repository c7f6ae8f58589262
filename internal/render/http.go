package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// HTTPRenderer fetches the raw body without executing scripts. Signals that
// only exist in the rendered DOM are invisible to it, so audits driven by
// this renderer carry weaker classification evidence. It exists for
// environments where headless Chrome is not installed.
type HTTPRenderer struct {
	Client    *http.Client
	UserAgent string
}

func NewHTTPRenderer() *HTTPRenderer {
	return &HTTPRenderer{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: DefaultUserAgent,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, url string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	req.Header.Set("User-Agent", r.userAgent())
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.PageFetchLimitBytes))
	if err != nil {
		return nil, fmt.Errorf("render %s: read body: %w", url, err)
	}

	return &Snapshot{
		HTML:       string(body),
		Title:      extractTitle(string(body)),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func extractTitle(body string) string {
	m := titleRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

func (r *HTTPRenderer) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *HTTPRenderer) userAgent() string {
	if r.UserAgent != "" {
		return r.UserAgent
	}
	return DefaultUserAgent
}
