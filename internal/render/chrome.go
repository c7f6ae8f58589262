package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// DefaultUserAgent identifies the audit browser. A realistic desktop UA
// avoids bot walls that would distort classification.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// DefaultRenderTimeout bounds a single page render end to end.
const DefaultRenderTimeout = 45 * time.Second

// ChromeRenderer renders pages with headless Chrome over the DevTools
// protocol. Safe for concurrent use; every Render gets its own tab.
type ChromeRenderer struct {
	Timeout   time.Duration
	Settle    time.Duration
	UserAgent string
	VerifyTLS bool
}

// NewChromeRenderer returns a renderer with production defaults. TLS errors
// are ignored: a site with a broken certificate still has to be audited,
// and the certificate itself is inspected separately.
func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{
		Timeout:   DefaultRenderTimeout,
		Settle:    constants.RenderSettleDelay,
		UserAgent: DefaultUserAgent,
	}
}

// Render navigates to the URL, waits for the body plus a settle delay so
// late banners appear, and snapshots the live DOM. The status code of the
// main document is captured from the DevTools network events.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (*Snapshot, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", !r.VerifyTLS),
		chromedp.UserAgent(r.userAgent()),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, r.timeout())
	defer cancel()

	var (
		mu         sync.Mutex
		statusCode int
		finalURL   string
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if statusCode == 0 {
			statusCode = int(resp.Response.Status)
			finalURL = resp.Response.URL
		}
	})

	var html, title string
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(normalizeURL(url)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle()),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if finalURL == "" {
		finalURL = normalizeURL(url)
	}
	return &Snapshot{HTML: html, Title: title, StatusCode: statusCode, FinalURL: finalURL}, nil
}

func (r *ChromeRenderer) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultRenderTimeout
}

func (r *ChromeRenderer) settle() time.Duration {
	if r.Settle > 0 {
		return r.Settle
	}
	return constants.RenderSettleDelay
}

func (r *ChromeRenderer) userAgent() string {
	if r.UserAgent != "" {
		return r.UserAgent
	}
	return DefaultUserAgent
}

func normalizeURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	return "https://" + url
}
