package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	io.Reader
	wrote bytes.Buffer
}

func (c *fakeConn) Write(p []byte) (int, error)      { return c.wrote.Write(p) }
func (c *fakeConn) Close() error                     { return nil }
func (c *fakeConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (c *fakeConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// scriptedDialer returns canned responses per address and records every
// dial, so tests can assert routing and caching behavior.
type scriptedDialer struct {
	mu        sync.Mutex
	responses map[string]string
	dials     []string
}

func (d *scriptedDialer) dial(_ context.Context, _ string, addr string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, addr)
	resp, ok := d.responses[addr]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &fakeConn{Reader: strings.NewReader(resp)}, nil
}

func (d *scriptedDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.dials))
	copy(out, d.dials)
	return out
}

func newTestClient(d *scriptedDialer) *WhoisClient {
	c := NewWhoisClient(nil)
	c.Dial = d.dial
	c.Timeout = time.Second
	return c
}

func TestWhoisStaticRouting(t *testing.T) {
	d := &scriptedDialer{responses: map[string]string{
		"whois.tcinet.ru:43": "domain: EXAMPLE.RU\nregistrar: REGRU-RU\n",
	}}
	c := newTestClient(d)

	raw, server, err := c.Lookup(context.Background(), "example.ru")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if server != "whois.tcinet.ru" {
		t.Errorf("server = %s, want whois.tcinet.ru", server)
	}
	if !strings.Contains(raw, "REGRU-RU") {
		t.Errorf("unexpected response: %q", raw)
	}
	if dials := d.dialed(); len(dials) != 1 {
		t.Errorf("expected a single dial, got %v", dials)
	}
}

func TestWhoisReferralAndCache(t *testing.T) {
	d := &scriptedDialer{responses: map[string]string{
		"whois.iana.org:43":  "tld: photo\norganisation: Registry Services\nwhois:        whois.nic.photo\nstatus: ACTIVE\n",
		"whois.nic.photo:43": "Domain Name: STUDIO.PHOTO\nRegistrar: Example Registrar\n",
	}}
	c := newTestClient(d)

	if _, _, err := c.Lookup(context.Background(), "studio.photo"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	dials := d.dialed()
	if len(dials) != 2 || dials[0] != "whois.iana.org:43" || dials[1] != "whois.nic.photo:43" {
		t.Fatalf("unexpected dial sequence: %v", dials)
	}

	// The learned mapping must come from the cache on the next audit.
	if _, _, err := c.Lookup(context.Background(), "another.photo"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	dials = d.dialed()
	if len(dials) != 3 || dials[2] != "whois.nic.photo:43" {
		t.Errorf("expected cache hit to skip the referral, dials: %v", dials)
	}
}

func TestWhoisReferralWithoutServer(t *testing.T) {
	d := &scriptedDialer{responses: map[string]string{
		"whois.iana.org:43": "tld: example\nstatus: ACTIVE\n",
	}}
	c := newTestClient(d)

	if _, err := c.ServerForTLD(context.Background(), "example"); err == nil {
		t.Fatal("expected an error when iana lists no whois server")
	}
}

func TestWhoisConnectionError(t *testing.T) {
	c := newTestClient(&scriptedDialer{responses: map[string]string{}})

	_, server, err := c.Lookup(context.Background(), "example.ru")
	if err == nil {
		t.Fatal("expected an error for a refused connection")
	}
	if server != "whois.tcinet.ru" {
		t.Errorf("server should still be reported, got %q", server)
	}
}

func TestWhoisQuerySendsCRLF(t *testing.T) {
	conn := &fakeConn{Reader: strings.NewReader("ok\n")}
	c := NewWhoisClient(nil)
	c.Timeout = time.Second
	c.Dial = func(context.Context, string, string) (net.Conn, error) { return conn, nil }

	if _, _, err := c.Lookup(context.Background(), "example.ru"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got := conn.wrote.String(); got != "example.ru\r\n" {
		t.Errorf("wire query = %q, want %q", got, "example.ru\r\n")
	}
}

func TestParseWhoisTcinet(t *testing.T) {
	raw := `% TCI Whois Service. Terms of use:
% https://tcinet.ru/documents/whois_ru_rf.pdf

domain:        EXAMPLE.RU
nserver:       ns1.example.ru. 185.42.12.1
nserver:       ns2.example.ru.
nserver:       ns2.example.ru.
state:         REGISTERED, DELEGATED, VERIFIED
person:        Private Person
registrar:     REGRU-RU
admin-contact: http://www.reg.ru/whois/admin_contact
created:       2010-04-01T09:00:00Z
paid-till:     2026-04-01T09:00:00Z
free-date:     2026-05-02
source:        TCI
`
	rec := ParseWhois(raw)

	if rec.Registrar != "REGRU-RU" {
		t.Errorf("registrar = %q", rec.Registrar)
	}
	if rec.Registrant != "" {
		t.Errorf("privacy-redacted registrant should stay empty, got %q", rec.Registrant)
	}
	if rec.CreatedDate != "2010-04-01T09:00:00Z" {
		t.Errorf("created = %q", rec.CreatedDate)
	}
	if rec.ExpiryDate != "2026-04-01T09:00:00Z" {
		t.Errorf("expiry should come from paid-till, got %q", rec.ExpiryDate)
	}
	want := []string{"ns1.example.ru", "ns2.example.ru"}
	if len(rec.NameServers) != len(want) {
		t.Fatalf("nameservers = %v, want %v", rec.NameServers, want)
	}
	for i, ns := range want {
		if rec.NameServers[i] != ns {
			t.Errorf("nameservers[%d] = %q, want %q", i, rec.NameServers[i], ns)
		}
	}
}

func TestParseWhoisVerisign(t *testing.T) {
	raw := `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2026-08-13T04:00:00Z
   Registrant Name: REDACTED FOR PRIVACY
   Registrant Organization: Acme Holdings LLC
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
`
	rec := ParseWhois(raw)

	if rec.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("registrar = %q", rec.Registrar)
	}
	if rec.Registrant != "Acme Holdings LLC" {
		t.Errorf("registrant should skip the redacted line, got %q", rec.Registrant)
	}
	if rec.CreatedDate != "1995-08-14T04:00:00Z" {
		t.Errorf("created = %q", rec.CreatedDate)
	}
	if rec.ExpiryDate != "2026-08-13T04:00:00Z" {
		t.Errorf("expiry = %q", rec.ExpiryDate)
	}
	if len(rec.NameServers) != 2 || rec.NameServers[0] != "a.iana-servers.net" {
		t.Errorf("nameservers = %v", rec.NameServers)
	}
}

func TestParseWhoisEmpty(t *testing.T) {
	rec := ParseWhois("No match for domain \"FREE-DOMAIN.RU\".\n")
	if !rec.Empty() {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

func TestMemoryTLDCacheConcurrency(t *testing.T) {
	cache := NewMemoryTLDCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Set("photo", "whois.nic.photo")
			cache.Get("photo")
		}()
	}
	wg.Wait()

	if server, ok := cache.Get("photo"); !ok || server != "whois.nic.photo" {
		t.Errorf("cache lost the entry: %q %v", server, ok)
	}
}
