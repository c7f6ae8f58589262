package resolver

import (
	"context"
	"net"
	"sort"
	"time"
)

// DNSRecordSet holds the record lists resolved for a domain. Every list is
// independently nullable: one record type failing to resolve leaves the
// others intact.
type DNSRecordSet struct {
	NS   []string `json:"ns,omitempty"`
	A    []string `json:"a,omitempty"`
	AAAA []string `json:"aaaa,omitempty"`
	MX   []string `json:"mx,omitempty"`
}

// Resolves reports whether the domain resolves at all.
func (r DNSRecordSet) Resolves() bool {
	return len(r.NS) > 0 || len(r.A) > 0
}

// lookuper is the subset of net.Resolver the DNS stage needs. Tests inject
// a stub; production uses net.DefaultResolver.
type lookuper interface {
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// lookupRecords resolves NS, A, AAAA and MX for the domain. Each record type
// gets its own timeout-bounded context; failures are absorbed into limitation
// notes so one dead record type never hides the rest.
func lookupRecords(ctx context.Context, dns lookuper, domain string, timeout time.Duration) (DNSRecordSet, []string) {
	var (
		set   DNSRecordSet
		notes []string
	)

	withTimeout := func(fn func(context.Context)) {
		sub, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		fn(sub)
	}

	withTimeout(func(ctx context.Context) {
		records, err := dns.LookupNS(ctx, domain)
		if err != nil {
			notes = append(notes, "не удалось получить NS-записи домена")
			return
		}
		for _, ns := range records {
			set.NS = append(set.NS, trimDot(ns.Host))
		}
		sort.Strings(set.NS)
	})

	withTimeout(func(ctx context.Context) {
		ips, err := dns.LookupIP(ctx, "ip4", domain)
		if err != nil {
			notes = append(notes, "не удалось получить A-записи домена")
			return
		}
		for _, ip := range ips {
			set.A = append(set.A, ip.String())
		}
		sort.Strings(set.A)
	})

	withTimeout(func(ctx context.Context) {
		ips, err := dns.LookupIP(ctx, "ip6", domain)
		if err != nil {
			// Many domains legitimately have no AAAA records; stay quiet.
			return
		}
		for _, ip := range ips {
			set.AAAA = append(set.AAAA, ip.String())
		}
		sort.Strings(set.AAAA)
	})

	withTimeout(func(ctx context.Context) {
		records, err := dns.LookupMX(ctx, domain)
		if err != nil {
			notes = append(notes, "не удалось получить MX-записи домена")
			return
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
		for _, mx := range records {
			set.MX = append(set.MX, trimDot(mx.Host))
		}
	})

	return set, notes
}

func trimDot(host string) string {
	for len(host) > 0 && host[len(host)-1] == '.' {
		host = host[:len(host)-1]
	}
	return host
}
