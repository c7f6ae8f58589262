package resolver

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// WHOIS is a plaintext request/response protocol over TCP port 43: the
// client sends the query followed by CRLF and reads until the server closes
// the connection. There is no end-of-record marker and no framing.

const (
	whoisPort = "43"

	// ianaReferralHost answers TLD queries with the authoritative WHOIS
	// server for that zone.
	ianaReferralHost = "whois.iana.org"

	// DefaultWhoisTimeout bounds every dial, write and read on a WHOIS
	// socket. Registries are slow; generous but finite.
	DefaultWhoisTimeout = 12 * time.Second
)

// Authoritative servers for zones we audit most. Consulted before any live
// referral; xn--p1ai is the punycode form of .рф.
var tldServers = map[string]string{
	"ru":       "whois.tcinet.ru",
	"su":       "whois.tcinet.ru",
	"xn--p1ai": "whois.tcinet.ru",
	"moscow":   "whois.nic.moscow",
	"com":      "whois.verisign-grs.com",
	"net":      "whois.verisign-grs.com",
	"org":      "whois.pir.org",
	"info":     "whois.nic.info",
	"biz":      "whois.nic.biz",
	"io":       "whois.nic.io",
	"dev":      "whois.nic.google",
	"app":      "whois.nic.google",
}

var ianaServerPattern = regexp.MustCompile(`(?i)whois:\s*(\S+)`)

// TLDCache stores WHOIS servers learned from live IANA referrals. It is
// shared across audits and safe for concurrent use; last write wins.
type TLDCache interface {
	Get(tld string) (string, bool)
	Set(tld, server string)
}

// MemoryTLDCache is the default TLDCache.
type MemoryTLDCache struct {
	mu      sync.RWMutex
	servers map[string]string
}

func NewMemoryTLDCache() *MemoryTLDCache {
	return &MemoryTLDCache{servers: make(map[string]string)}
}

func (c *MemoryTLDCache) Get(tld string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	server, ok := c.servers[tld]
	return server, ok
}

func (c *MemoryTLDCache) Set(tld, server string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[tld] = server
}

// DialFunc opens the raw TCP connection for a WHOIS exchange. Tests inject
// their own; production uses net.Dialer.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// WhoisClient speaks the WHOIS protocol with static TLD routing and a live
// IANA referral fallback. The zero value is not usable; use NewWhoisClient.
type WhoisClient struct {
	Timeout  time.Duration
	Dial     DialFunc
	Cache    TLDCache
	Referral string
}

// NewWhoisClient builds a client around the given referral cache. A nil
// cache gets a private in-memory one.
func NewWhoisClient(cache TLDCache) *WhoisClient {
	if cache == nil {
		cache = NewMemoryTLDCache()
	}
	dialer := &net.Dialer{Timeout: DefaultWhoisTimeout}
	return &WhoisClient{
		Timeout:  DefaultWhoisTimeout,
		Dial:     dialer.DialContext,
		Cache:    cache,
		Referral: ianaReferralHost,
	}
}

// ServerForTLD finds the authoritative WHOIS server for a TLD: static table
// first, then the learned cache, then a live referral query to IANA whose
// answer is cached for subsequent audits.
func (c *WhoisClient) ServerForTLD(ctx context.Context, tld string) (string, error) {
	tld = strings.ToLower(strings.TrimPrefix(tld, "."))
	if tld == "" {
		return "", fmt.Errorf("whois: empty tld")
	}
	if server, ok := tldServers[tld]; ok {
		return server, nil
	}
	if server, ok := c.Cache.Get(tld); ok {
		return server, nil
	}

	response, err := c.exchange(ctx, c.Referral, tld)
	if err != nil {
		return "", fmt.Errorf("whois: iana referral for %q: %w", tld, err)
	}
	match := ianaServerPattern.FindStringSubmatch(response)
	if match == nil {
		return "", fmt.Errorf("whois: iana lists no server for %q", tld)
	}
	server := strings.ToLower(match[1])
	c.Cache.Set(tld, server)
	return server, nil
}

// Lookup queries the authoritative server for a registrable domain and
// returns the raw response text plus the server that produced it.
func (c *WhoisClient) Lookup(ctx context.Context, domain string) (string, string, error) {
	server, err := c.ServerForTLD(ctx, TLDOf(domain))
	if err != nil {
		return "", "", err
	}
	response, err := c.exchange(ctx, server, domain)
	if err != nil {
		return "", server, fmt.Errorf("whois: query %q at %s: %w", domain, server, err)
	}
	return response, server, nil
}

// exchange performs one complete WHOIS round trip: dial, send query+CRLF,
// read until the peer closes. The read is size-capped so a misbehaving
// server cannot exhaust memory.
func (c *WhoisClient) exchange(ctx context.Context, server, query string) (string, error) {
	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, whoisPort)
	}

	conn, err := c.Dial(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := io.WriteString(conn, query+"\r\n"); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(conn, constants.WhoisReadLimitBytes))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return string(data), nil
}

func (c *WhoisClient) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultWhoisTimeout
}
