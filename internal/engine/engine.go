// Package engine orchestrates a complete audit: one page render, a fan-out
// of independent network lookups, the check battery, site classification,
// and the final penalty and score assembly.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avoronkov/pdnaudit/internal/checks"
	"github.com/avoronkov/pdnaudit/internal/classify"
	"github.com/avoronkov/pdnaudit/internal/consent"
	"github.com/avoronkov/pdnaudit/internal/inn"
	"github.com/avoronkov/pdnaudit/internal/penalty"
	"github.com/avoronkov/pdnaudit/internal/registry"
	"github.com/avoronkov/pdnaudit/internal/render"
	"github.com/avoronkov/pdnaudit/internal/resolver"
	"github.com/avoronkov/pdnaudit/internal/score"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// DefaultAuditTimeout bounds one audit end to end. Checks still in flight
// when it elapses are reported as unavailable, never awaited.
const DefaultAuditTimeout = 2 * time.Minute

// Request is one audit order. INN and Consent are optional hints from the
// caller; both are validated before any network work starts. Operator is a
// free-form label of who ordered the audit and goes into the report as is.
type Request struct {
	URL      string            `json:"url"`
	INN      string            `json:"inn,omitempty"`
	Operator string            `json:"operator,omitempty"`
	Consent  *consent.Metadata `json:"consent,omitempty"`
}

// Report is the assembled audit outcome. Missing data surfaces in
// Limitations and in per-check statuses; a report is never partial.
type Report struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Host       string    `json:"host"`
	Operator   string    `json:"operator,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Site     classify.Result `json:"site"`
	SiteMeta classify.Meta   `json:"site_meta"`

	Ownership *resolver.Ownership `json:"ownership,omitempty"`
	Checks    []checks.Result     `json:"checks"`
	Penalties penalty.Totals      `json:"penalties"`
	Summary   score.Summary       `json:"summary"`

	Limitations []string `json:"limitations,omitempty"`
}

// OwnershipResolver resolves who stands behind a domain. The production
// implementation is *resolver.Resolver.
type OwnershipResolver interface {
	Resolve(ctx context.Context, target string) (*resolver.Ownership, error)
}

// Auditor wires the audit collaborators together. New fills in the
// production set; tests replace fields with stubs.
type Auditor struct {
	Renderer   render.Renderer
	Resolver   OwnershipResolver
	Registry   *registry.Lookup
	ExtraRules []checks.Checker
	Runner     *checks.Runner
	Thresholds score.Thresholds
	Timeout    time.Duration
	Client     *http.Client
	Log        *zap.Logger

	// TLSInspect overrides the handshake inspection, mirroring the Dial
	// hook of the WHOIS client. nil means a real handshake on port 443.
	TLSInspect func(ctx context.Context, host string) (*resolver.TLSInfo, error)
}

// New returns an auditor backed by the production collaborators: a
// headless-browser renderer, a live WHOIS resolver and an in-memory
// registry cache.
func New(log *zap.Logger) *Auditor {
	return &Auditor{
		Renderer:   render.NewChromeRenderer(),
		Resolver:   resolver.New(nil),
		Registry:   registry.NewLookup(registry.NewMemoryCache(), nil),
		Runner:     checks.NewRunner(),
		Thresholds: score.DefaultThresholds,
		Timeout:    DefaultAuditTimeout,
		Client:     &http.Client{Timeout: 15 * time.Second},
		Log:        log,
	}
}

// RunAudit performs one complete audit. Only validation problems return an
// error; network and checker failures degrade into the report itself.
func (a *Auditor) RunAudit(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()

	host, err := resolver.ExtractHost(req.URL)
	if err != nil {
		return nil, err
	}
	if req.INN != "" {
		if ok, reason := inn.Validate(req.INN); !ok {
			return nil, fmt.Errorf("%w: %s", sharederrors.ErrInvalidINN, reason)
		}
	}
	if a.Renderer == nil {
		return nil, sharederrors.ErrRendererUnset
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	log := a.logger().With(zap.String("host", host))
	log.Info("audit started", zap.String("target", req.URL))

	// The four evidence sources are independent; each failure degrades
	// only its own slot. g.Wait orders these writes before the reads below.
	var (
		snapshot  *render.Snapshot
		ownership *resolver.Ownership
		tlsInfo   *resolver.TLSInfo
		probe     *checks.ProbeInfo
		renderErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		snap, err := a.Renderer.Render(ctx, req.URL)
		if err != nil {
			renderErr = err
			log.Warn("page render failed", zap.Error(err))
			return nil
		}
		snapshot = snap
		return nil
	})
	g.Go(func() error {
		own, err := a.resolverOrDefault().Resolve(ctx, req.URL)
		if err != nil {
			log.Warn("ownership resolution failed", zap.Error(err))
			return nil
		}
		ownership = own
		return nil
	})
	g.Go(func() error {
		info, err := a.tlsInspect()(ctx, host)
		if err != nil {
			log.Debug("tls inspection failed", zap.Error(err))
			return nil
		}
		tlsInfo = info
		return nil
	})
	g.Go(func() error {
		probe = a.probeHTTP(ctx, req.URL, log)
		return nil
	})
	_ = g.Wait()

	in := &checks.Input{
		Target:    req.URL,
		Host:      host,
		Probe:     probe,
		TLS:       tlsInfo,
		Ownership: ownership,
		Consent:   req.Consent,
		INN:       req.INN,
	}
	html := ""
	if snapshot != nil {
		in.Page = snapshot
		in.Text = strings.ToLower(snapshot.HTML)
		in.Pages = a.fetchAuxPages(ctx, snapshot, log)
		html = snapshot.HTML
	}

	battery := checks.DefaultBattery(a.Registry)
	battery = append(battery, a.ExtraRules...)
	results := a.runner().Run(ctx, battery, in)

	site := classify.Classify(html, req.URL)

	rep := &Report{
		ID:         uuid.NewString(),
		Target:     req.URL,
		Host:       host,
		Operator:   req.Operator,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Site:       site,
		SiteMeta:   classify.MetaFor(site.Type),
		Ownership:  ownership,
		Checks:     results,
		Penalties:  penalty.CalcTotals(results),
		Summary:    score.Summarize(results, a.thresholds()),
	}
	if renderErr != nil {
		rep.Limitations = append(rep.Limitations,
			"страница не была отрисована, проверки содержимого выполнены частично")
	}
	if ownership == nil {
		rep.Limitations = append(rep.Limitations,
			"сведения о владельце домена получить не удалось")
	}

	log.Info("audit finished",
		zap.String("site_type", string(site.Type)),
		zap.Int("score", rep.Summary.Score),
		zap.String("severity", string(rep.Summary.Severity)),
		zap.Duration("took", time.Since(started)))
	return rep, nil
}

// Accessors below are pure so a shared Auditor stays safe under concurrent
// RunAudit calls.

func (a *Auditor) resolverOrDefault() OwnershipResolver {
	if a.Resolver != nil {
		return a.Resolver
	}
	return resolver.New(nil)
}

func (a *Auditor) tlsInspect() func(context.Context, string) (*resolver.TLSInfo, error) {
	if a.TLSInspect != nil {
		return a.TLSInspect
	}
	return func(ctx context.Context, host string) (*resolver.TLSInfo, error) {
		return resolver.InspectTLS(ctx, host, 0)
	}
}

func (a *Auditor) runner() *checks.Runner {
	if a.Runner != nil {
		return a.Runner
	}
	return checks.NewRunner()
}

func (a *Auditor) thresholds() score.Thresholds {
	if a.Thresholds == (score.Thresholds{}) {
		return score.DefaultThresholds
	}
	return a.Thresholds
}

func (a *Auditor) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return DefaultAuditTimeout
}

func (a *Auditor) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (a *Auditor) logger() *zap.Logger {
	if a.Log != nil {
		return a.Log
	}
	return zap.NewNop()
}
