package checks

import (
	"context"
	"fmt"
	"strings"
)

const (
	IDHTTPSEnforced  = "https_enforced"
	IDTLSCertificate = "tls_certificate"
)

// HTTPSEnforcementChecker verifies the site is served over TLS and that
// plain-HTTP requests are redirected to it.
type HTTPSEnforcementChecker struct{}

func (HTTPSEnforcementChecker) ID() string    { return IDHTTPSEnforced }
func (HTTPSEnforcementChecker) Title() string { return "Принудительное использование HTTPS" }

func (c HTTPSEnforcementChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 19 152-ФЗ",
	}

	finalURL := ""
	if in.Page != nil {
		finalURL = in.Page.FinalURL
	}
	if finalURL == "" && in.Probe != nil {
		finalURL = in.Probe.FinalURL
	}
	if finalURL == "" {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "сайт не ответил, использование HTTPS не проверено")
		return res
	}

	if !strings.HasPrefix(finalURL, "https://") {
		res.Status = StatusFail
		res.Evidence = append(res.Evidence, "сайт отдаётся по незащищённому протоколу: "+finalURL)
		return res
	}

	res.Evidence = append(res.Evidence, "итоговый адрес использует HTTPS: "+finalURL)
	if in.Probe != nil && in.Probe.HTTPFinalURL != "" && !strings.HasPrefix(in.Probe.HTTPFinalURL, "https://") {
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "запрос по http:// не перенаправляется на HTTPS: "+in.Probe.HTTPFinalURL)
		return res
	}

	res.Status = StatusOK
	return res
}

// TLSCertificateChecker inspects the certificate presented on port 443.
type TLSCertificateChecker struct{}

func (TLSCertificateChecker) ID() string    { return IDTLSCertificate }
func (TLSCertificateChecker) Title() string { return "TLS-сертификат" }

func (c TLSCertificateChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 19 152-ФЗ",
	}
	if in.TLS == nil {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "TLS-соединение не удалось установить или инспекция не проводилась")
		return res
	}

	info := in.TLS
	res.Evidence = append(res.Evidence,
		"издатель: "+info.Issuer,
		fmt.Sprintf("действителен до %s (%d дн.)", info.NotAfter.Format("02.01.2006"), info.DaysUntilExpiry),
		"протокол: "+info.Version+", шифр: "+info.CipherSuite,
	)

	switch {
	case info.Expired:
		res.Status = StatusFail
		res.Evidence = append(res.Evidence, "срок действия сертификата истёк или ещё не наступил")
	case !info.HostnameMatch:
		res.Status = StatusFail
		res.Evidence = append(res.Evidence, "сертификат выдан на другое имя")
	case info.SelfSigned:
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "сертификат самоподписанный")
	case info.ExpiresSoon:
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "срок действия сертификата скоро истечёт")
	default:
		res.Status = StatusOK
	}
	return res
}
