// Package render produces page snapshots for auditing. The primary
// implementation drives headless Chrome, because the signals audits look for
// (consent checkboxes, cookie banners, cart widgets) are often injected by
// client-side scripts and never appear in the raw HTTP body. A plain HTTP
// fallback exists for environments without a browser.
package render

import "context"

// Snapshot is an immutable capture of a page after scripts have run.
type Snapshot struct {
	HTML       string `json:"-"`
	Title      string `json:"title"`
	StatusCode int    `json:"status_code"`
	FinalURL   string `json:"final_url"`
}

// Renderer turns a URL into a Snapshot.
type Renderer interface {
	Render(ctx context.Context, url string) (*Snapshot, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) (*Snapshot, error)

func (f RendererFunc) Render(ctx context.Context, url string) (*Snapshot, error) {
	return f(ctx, url)
}
