package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// ExtractHost pulls a bare hostname out of a URL or naked domain. Missing
// schemes are tolerated; ports, paths and credentials are stripped.
func ExtractHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", sharederrors.ErrEmptyTarget
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharederrors.ErrInvalidTarget, err)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: %q", sharederrors.ErrInvalidTarget, raw)
	}
	return host, nil
}

// RegistrableDomain reduces a hostname to its registrable form, the unit
// WHOIS registries answer for (shop.example.ru -> example.ru). When the
// public-suffix list cannot decide, the host is returned unchanged.
func RegistrableDomain(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// TLDOf returns the last label of a domain, the key used for WHOIS server
// routing and IANA referral queries.
func TLDOf(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	idx := strings.LastIndex(domain, ".")
	if idx < 0 {
		return domain
	}
	return domain[idx+1:]
}
