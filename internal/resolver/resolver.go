// Package resolver establishes who stands behind a domain: DNS record sets,
// registry ownership data over the WHOIS protocol, and the TLS certificate
// presented on port 443. Every network step degrades to partial data with a
// limitation note; a dead registry or firewalled port never fails an audit.
package resolver

import (
	"context"
	"net"
	"time"
)

// Resolution statuses, aligned with check statuses so the battery can carry
// them through unchanged.
const (
	StatusOK          = "ok"
	StatusWarn        = "warn"
	StatusUnavailable = "unavailable"
)

// Standing limitations attached to every resolution, regardless of outcome.
var standingLimitations = []string{
	"география хостинга не может быть подтверждена только по DNS и WHOIS",
	"данные WHOIS могут быть неполными или скрыты регистратором",
}

// Ownership is the complete resolution result for one domain.
type Ownership struct {
	Host        string       `json:"host"`
	Domain      string       `json:"domain"`
	TLD         string       `json:"tld"`
	DNS         DNSRecordSet `json:"dns"`
	Whois       *WhoisRecord `json:"whois,omitempty"`
	WhoisServer string       `json:"whois_server,omitempty"`
	Status      string       `json:"status"`
	Limitations []string     `json:"limitations"`
}

// Resolver combines the DNS and WHOIS stages. The zero value is not usable;
// use New.
type Resolver struct {
	Whois   *WhoisClient
	Timeout time.Duration

	dns lookuper
}

// New builds a Resolver sharing the given WHOIS referral cache across
// audits. Pass nil to keep a private cache.
func New(cache TLDCache) *Resolver {
	return &Resolver{
		Whois:   NewWhoisClient(cache),
		Timeout: DefaultWhoisTimeout,
		dns:     net.DefaultResolver,
	}
}

// Resolve runs the full ownership resolution for a URL or bare domain.
// The only error it returns is target validation; network failures are
// absorbed into the result.
func (r *Resolver) Resolve(ctx context.Context, target string) (*Ownership, error) {
	host, err := ExtractHost(target)
	if err != nil {
		return nil, err
	}

	own := &Ownership{
		Host:   host,
		Domain: RegistrableDomain(host),
	}
	own.TLD = TLDOf(own.Domain)

	set, notes := lookupRecords(ctx, r.lookuperOrDefault(), own.Domain, r.timeout())
	own.DNS = set
	own.Limitations = append(own.Limitations, notes...)

	if r.Whois != nil {
		raw, server, err := r.Whois.Lookup(ctx, own.Domain)
		own.WhoisServer = server
		switch {
		case err != nil:
			own.Limitations = append(own.Limitations, "сервер WHOIS не ответил, данные о владельце не получены")
		default:
			rec := ParseWhois(raw)
			if rec.Empty() {
				own.Limitations = append(own.Limitations, "ответ WHOIS не содержит распознаваемых полей")
			} else {
				own.Whois = &rec
			}
		}
	}

	own.Status = deriveStatus(own.DNS, own.Whois)
	own.Limitations = append(own.Limitations, standingLimitations...)
	return own, nil
}

// deriveStatus: a domain with neither NS nor A records does not resolve and
// is unavailable no matter what WHOIS said; resolving without WHOIS payload
// is a warning; anything else is ok.
func deriveStatus(dns DNSRecordSet, whois *WhoisRecord) string {
	if !dns.Resolves() {
		return StatusUnavailable
	}
	if whois == nil {
		return StatusWarn
	}
	return StatusOK
}

func (r *Resolver) lookuperOrDefault() lookuper {
	if r.dns != nil {
		return r.dns
	}
	return net.DefaultResolver
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultWhoisTimeout
}
