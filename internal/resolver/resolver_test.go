package resolver

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

type stubDNS struct {
	ns   []string
	a    []string
	aaaa []string
	mx   []string
	fail map[string]bool
}

func (s *stubDNS) LookupNS(_ context.Context, _ string) ([]*net.NS, error) {
	if s.fail["ns"] {
		return nil, errors.New("no such host")
	}
	out := make([]*net.NS, 0, len(s.ns))
	for _, host := range s.ns {
		out = append(out, &net.NS{Host: host})
	}
	return out, nil
}

func (s *stubDNS) LookupIP(_ context.Context, network, _ string) ([]net.IP, error) {
	var addrs []string
	switch network {
	case "ip4":
		if s.fail["a"] {
			return nil, errors.New("no such host")
		}
		addrs = s.a
	case "ip6":
		if s.fail["aaaa"] {
			return nil, errors.New("no such host")
		}
		addrs = s.aaaa
	}
	out := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, net.ParseIP(addr))
	}
	return out, nil
}

func (s *stubDNS) LookupMX(_ context.Context, _ string) ([]*net.MX, error) {
	if s.fail["mx"] {
		return nil, errors.New("no such host")
	}
	out := make([]*net.MX, 0, len(s.mx))
	for i, host := range s.mx {
		out = append(out, &net.MX{Host: host, Pref: uint16(i)})
	}
	return out, nil
}

func newTestResolver(dns *stubDNS, d *scriptedDialer) *Resolver {
	r := New(nil)
	r.Timeout = time.Second
	r.dns = dns
	r.Whois = newTestClient(d)
	return r
}

func TestExtractHost(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.example.ru/path?q=1", "www.example.ru", false},
		{"example.ru", "example.ru", false},
		{"HTTP://SHOP.EXAMPLE.RU:8443", "shop.example.ru", false},
		{"example.ru.", "example.ru", false},
		{"", "", true},
		{"   ", "", true},
		{"localhost", "", true},
	}

	for _, tc := range cases {
		got, err := ExtractHost(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ExtractHost(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractHost(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractHost(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegistrableDomain(t *testing.T) {
	cases := []struct{ in, want string }{
		{"shop.example.ru", "example.ru"},
		{"example.ru", "example.ru"},
		{"a.b.example.co.uk", "example.co.uk"},
	}
	for _, tc := range cases {
		if got := RegistrableDomain(tc.in); got != tc.want {
			t.Errorf("RegistrableDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTLDOf(t *testing.T) {
	cases := []struct{ in, want string }{
		{"example.ru", "ru"},
		{"example.xn--p1ai", "xn--p1ai"},
		{"example.co.uk", "uk"},
		{"ru", "ru"},
	}
	for _, tc := range cases {
		if got := TLDOf(tc.in); got != tc.want {
			t.Errorf("TLDOf(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveFullPath(t *testing.T) {
	dns := &stubDNS{
		ns: []string{"ns2.example.ru.", "ns1.example.ru."},
		a:  []string{"93.184.216.34"},
		mx: []string{"mx.example.ru."},
	}
	d := &scriptedDialer{responses: map[string]string{
		"whois.tcinet.ru:43": "registrar: REGRU-RU\ncreated: 2010-04-01T09:00:00Z\nnserver: ns1.example.ru.\n",
	}}
	r := newTestResolver(dns, d)

	own, err := r.Resolve(context.Background(), "https://shop.example.ru/about")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if own.Host != "shop.example.ru" || own.Domain != "example.ru" || own.TLD != "ru" {
		t.Errorf("identity = %s / %s / %s", own.Host, own.Domain, own.TLD)
	}
	if own.Status != StatusOK {
		t.Errorf("status = %s, want ok (limitations: %v)", own.Status, own.Limitations)
	}
	if own.Whois == nil || own.Whois.Registrar != "REGRU-RU" {
		t.Errorf("whois record not parsed: %+v", own.Whois)
	}
	if len(own.DNS.NS) != 2 || own.DNS.NS[0] != "ns1.example.ru" {
		t.Errorf("ns records = %v", own.DNS.NS)
	}
	if len(own.Limitations) < 2 {
		t.Fatalf("standing limitations missing: %v", own.Limitations)
	}
}

func TestResolveUnresolvableDomain(t *testing.T) {
	dns := &stubDNS{fail: map[string]bool{"ns": true, "a": true, "aaaa": true, "mx": true}}
	// WHOIS still answers: status must stay unavailable regardless.
	d := &scriptedDialer{responses: map[string]string{
		"whois.tcinet.ru:43": "registrar: REGRU-RU\n",
	}}
	r := newTestResolver(dns, d)

	own, err := r.Resolve(context.Background(), "dead.example.ru")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if own.Status != StatusUnavailable {
		t.Errorf("status = %s, want unavailable", own.Status)
	}
}

func TestResolveWithoutWhois(t *testing.T) {
	dns := &stubDNS{ns: []string{"ns1.example.ru."}, a: []string{"93.184.216.34"}}
	r := newTestResolver(dns, &scriptedDialer{responses: map[string]string{}})

	own, err := r.Resolve(context.Background(), "example.ru")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if own.Status != StatusWarn {
		t.Errorf("status = %s, want warn", own.Status)
	}

	found := false
	for _, note := range own.Limitations {
		if strings.Contains(note, "WHOIS") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a whois limitation note, got %v", own.Limitations)
	}
}

func TestResolveInvalidTarget(t *testing.T) {
	r := newTestResolver(&stubDNS{}, &scriptedDialer{})

	if _, err := r.Resolve(context.Background(), ""); !errors.Is(err, sharederrors.ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
}

func TestDeriveStatus(t *testing.T) {
	rec := &WhoisRecord{Registrar: "REGRU-RU"}
	cases := []struct {
		name  string
		dns   DNSRecordSet
		whois *WhoisRecord
		want  string
	}{
		{"resolves with whois", DNSRecordSet{NS: []string{"ns1"}, A: []string{"1.2.3.4"}}, rec, StatusOK},
		{"resolves without whois", DNSRecordSet{A: []string{"1.2.3.4"}}, nil, StatusWarn},
		{"only ns records", DNSRecordSet{NS: []string{"ns1"}}, rec, StatusOK},
		{"nothing resolves", DNSRecordSet{MX: []string{"mx1"}}, rec, StatusUnavailable},
		{"empty everything", DNSRecordSet{}, nil, StatusUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.dns, tc.whois); got != tc.want {
				t.Errorf("deriveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
