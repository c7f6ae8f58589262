package engine

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/avoronkov/pdnaudit/internal/checks"
	"github.com/avoronkov/pdnaudit/internal/render"
	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// auxPagePatterns find links to the pages where legal content usually
// lives. At most one page per label is fetched.
var auxPagePatterns = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"privacy", regexp.MustCompile(`(?i)href=["']([^"']*(?:privacy|policy|politika|политик|конфиденциальн|soglasie|согласи|personal)[^"']*)["']`)},
	{"contacts", regexp.MustCompile(`(?i)href=["']([^"']*(?:contact|kontakt|контакт)[^"']*)["']`)},
	{"about", regexp.MustCompile(`(?i)href=["']([^"']*(?:about|o-kompanii|o-nas|о-компании)[^"']*)["']`)},
}

// probeHTTP captures the response headers of the secure endpoint and the
// fate of a plain-HTTP request to the same address. Either leg may fail on
// its own; nil means the site answered neither.
func (a *Auditor) probeHTTP(ctx context.Context, target string, log *zap.Logger) *checks.ProbeInfo {
	httpsURL, httpURL := probeURLs(target)
	if httpsURL == "" {
		return nil
	}

	client := a.client()
	info := &checks.ProbeInfo{}

	if resp, _, err := fetchPage(ctx, client, httpsURL); err == nil {
		info.Headers = resp.Header
		info.FinalURL = resp.Request.URL.String()
		info.StatusCode = resp.StatusCode
	} else {
		log.Debug("https probe failed", zap.Error(err))
	}

	if resp, _, err := fetchPage(ctx, client, httpURL); err == nil {
		info.HTTPFinalURL = resp.Request.URL.String()
		if info.Headers == nil {
			// A site answering only plain HTTP still has headers worth checking.
			info.Headers = resp.Header
			info.StatusCode = resp.StatusCode
		}
	} else {
		log.Debug("http probe failed", zap.Error(err))
	}

	if info.Headers == nil && info.HTTPFinalURL == "" {
		return nil
	}
	return info
}

// probeURLs derives the https and http twins of the audit target, keeping
// authority and path so non-standard ports stay reachable.
func probeURLs(target string) (httpsURL, httpURL string) {
	raw := strings.TrimSpace(target)
	if raw == "" {
		return "", ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ""
	}
	u.Fragment = ""

	secure := *u
	secure.Scheme = "https"
	plain := *u
	plain.Scheme = "http"
	return secure.String(), plain.String()
}

// fetchAuxPages follows privacy/contacts/about links off the rendered page
// and returns their lowercased bodies keyed by label. Only same-host links
// are followed.
func (a *Auditor) fetchAuxPages(ctx context.Context, snap *render.Snapshot, log *zap.Logger) map[string]string {
	base, err := url.Parse(snap.FinalURL)
	if err != nil || base.Host == "" {
		return nil
	}
	client := a.client()

	var pages map[string]string
	for _, aux := range auxPagePatterns {
		m := aux.pattern.FindStringSubmatch(snap.HTML)
		if m == nil {
			continue
		}
		ref, err := url.Parse(strings.ReplaceAll(m[1], "&amp;", "&"))
		if err != nil {
			continue
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		if target.Host != base.Host || target.String() == snap.FinalURL {
			continue
		}

		resp, body, err := fetchPage(ctx, client, target.String())
		if err != nil || resp.StatusCode >= 400 || body == "" {
			log.Debug("auxiliary page fetch failed",
				zap.String("label", aux.label), zap.String("url", target.String()), zap.Error(err))
			continue
		}
		if pages == nil {
			pages = make(map[string]string, len(auxPagePatterns))
		}
		pages[aux.label] = strings.ToLower(body)
	}
	return pages
}

// fetchPage runs one GET with the audit user agent, reads the body up to
// the fetch limit and closes it. The response's headers and final URL stay
// usable after return.
func fetchPage(ctx context.Context, client *http.Client, rawURL string) (*http.Response, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", render.DefaultUserAgent)
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.PageFetchLimitBytes))
	if err != nil {
		return resp, "", nil
	}
	return resp, string(body), nil
}
