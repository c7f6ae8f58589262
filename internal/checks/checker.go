// Package checks implements the audit battery: independent legal and
// technical checkers that each examine one aspect of a site and produce a
// status with evidence. Checkers never abort each other; a broken checker
// degrades only its own result.
package checks

import (
	"context"
	"net/http"

	"github.com/avoronkov/pdnaudit/internal/consent"
	"github.com/avoronkov/pdnaudit/internal/render"
	"github.com/avoronkov/pdnaudit/internal/resolver"
)

// Status of a single check.
type Status string

const (
	StatusOK          Status = "ok"
	StatusWarn        Status = "warn"
	StatusFail        Status = "fail"
	StatusNA          Status = "na"
	StatusUnavailable Status = "unavailable"
)

// Problem reports whether the status should attract penalties.
func (s Status) Problem() bool {
	return s == StatusFail || s == StatusWarn
}

// Result is the outcome of one checker run.
type Result struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Evidence       []string `json:"evidence,omitempty"`
	Limitations    []string `json:"limitations,omitempty"`
	LegalReference string   `json:"legal_reference,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}

// Checker examines one aspect of the audited site. Check must be safe to
// call concurrently with other checkers against the same Input and must
// honor ctx cancellation if it performs I/O.
type Checker interface {
	ID() string
	Title() string
	Check(ctx context.Context, in *Input) Result
}

// ProbeInfo captures the plain-HTTP behavior of the site: the headers of
// the final response and where an insecure request ends up.
type ProbeInfo struct {
	Headers      http.Header `json:"-"`
	FinalURL     string      `json:"final_url"`
	HTTPFinalURL string      `json:"http_final_url,omitempty"`
	StatusCode   int         `json:"status_code"`
}

// Input is the immutable evidence snapshot every checker reads. It is built
// once per audit; checkers must not mutate it.
type Input struct {
	Target string
	Host   string

	// Page is nil when rendering failed; Text is the lowercased page
	// markup, precomputed because nearly every checker scans it.
	Page *render.Snapshot
	Text string

	// Pages holds lowercased auxiliary page texts keyed by label
	// (privacy, contacts, about), discovered by the orchestrator.
	Pages map[string]string

	Probe     *ProbeInfo
	TLS       *resolver.TLSInfo
	Ownership *resolver.Ownership
	Consent   *consent.Metadata

	// INN is the operator hint supplied with the audit request, already
	// checksum-validated. Empty when the caller provided none.
	INN string
}

// AllText returns the main page text plus every auxiliary page, for
// checkers that search across the whole crawled surface.
func (in *Input) AllText() []string {
	out := make([]string, 0, 1+len(in.Pages))
	if in.Text != "" {
		out = append(out, in.Text)
	}
	for _, text := range in.Pages {
		out = append(out, text)
	}
	return out
}

// PageAvailable reports whether the render produced usable markup.
func (in *Input) PageAvailable() bool {
	return in.Page != nil && in.Page.HTML != ""
}
