package resolver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// TLSInfo is the result of a handshake inspection on port 443.
type TLSInfo struct {
	Version         string    `json:"version"`
	CipherSuite     string    `json:"cipher_suite"`
	Subject         string    `json:"subject"`
	Issuer          string    `json:"issuer"`
	DNSNames        []string  `json:"dns_names,omitempty"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	SelfSigned      bool      `json:"self_signed"`
	HostnameMatch   bool      `json:"hostname_match"`
	Expired         bool      `json:"expired"`
	ExpiresSoon     bool      `json:"expires_soon"`
}

// InspectTLS performs a TLS handshake with the host on port 443 and reads
// the negotiated protocol parameters and the peer certificate. Verification
// is done manually: the handshake must succeed even against broken
// deployments, because an invalid certificate is evidence, not an abort.
func InspectTLS(ctx context.Context, host string, timeout time.Duration) (*TLSInfo, error) {
	if timeout <= 0 {
		timeout = DefaultWhoisTimeout
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("tls handshake with %s: no peer certificate", host)
	}
	return analyzeHandshake(host, &state), nil
}

func analyzeHandshake(host string, state *tls.ConnectionState) *TLSInfo {
	cert := state.PeerCertificates[0]
	now := time.Now()

	info := &TLSInfo{
		Version:         tlsVersionName(state.Version),
		CipherSuite:     tls.CipherSuiteName(state.CipherSuite),
		Subject:         cert.Subject.String(),
		Issuer:          cert.Issuer.String(),
		DNSNames:        cert.DNSNames,
		NotBefore:       cert.NotBefore,
		NotAfter:        cert.NotAfter,
		DaysUntilExpiry: int(time.Until(cert.NotAfter).Hours() / 24),
		SelfSigned:      cert.Subject.String() == cert.Issuer.String(),
		HostnameMatch:   verifyHostname(cert, host),
		Expired:         now.After(cert.NotAfter) || now.Before(cert.NotBefore),
	}
	info.ExpiresSoon = !info.Expired && time.Until(cert.NotAfter) < constants.TLSSoonExpiryWindow
	return info
}

func verifyHostname(cert *x509.Certificate, host string) bool {
	return cert.VerifyHostname(host) == nil
}

func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("unknown (0x%04x)", version)
	}
}
