package checks

import (
	"context"
	"strings"
)

const (
	IDHeaderHSTS = "header_hsts"
	IDHeaderCSP  = "header_csp"
	IDHeaderXFO  = "header_x_frame_options"
	IDHeaderXCTO = "header_x_content_type_options"
)

// headerSpec describes one security header check. The four instances below
// share a single checker implementation.
type headerSpec struct {
	id     string
	title  string
	header string
	assess func(value string) (Status, string)
}

var headerSpecs = []headerSpec{
	{
		id:     IDHeaderHSTS,
		title:  "Заголовок Strict-Transport-Security",
		header: "Strict-Transport-Security",
		assess: func(v string) (Status, string) {
			if !strings.Contains(strings.ToLower(v), "max-age") {
				return StatusWarn, "заголовок установлен без max-age"
			}
			return StatusOK, ""
		},
	},
	{
		id:     IDHeaderCSP,
		title:  "Заголовок Content-Security-Policy",
		header: "Content-Security-Policy",
		assess: func(v string) (Status, string) {
			if strings.Contains(v, "unsafe-inline") || strings.Contains(v, "unsafe-eval") {
				return StatusWarn, "политика допускает unsafe-inline или unsafe-eval"
			}
			return StatusOK, ""
		},
	},
	{
		id:     IDHeaderXFO,
		title:  "Заголовок X-Frame-Options",
		header: "X-Frame-Options",
		assess: func(v string) (Status, string) {
			upper := strings.ToUpper(strings.TrimSpace(v))
			if upper != "DENY" && upper != "SAMEORIGIN" {
				return StatusWarn, "значение отличается от DENY и SAMEORIGIN"
			}
			return StatusOK, ""
		},
	},
	{
		id:     IDHeaderXCTO,
		title:  "Заголовок X-Content-Type-Options",
		header: "X-Content-Type-Options",
		assess: func(v string) (Status, string) {
			if !strings.EqualFold(strings.TrimSpace(v), "nosniff") {
				return StatusWarn, "значение отличается от nosniff"
			}
			return StatusOK, ""
		},
	},
}

// HeaderChecker validates one security header of the main document
// response. Use HeaderCheckers for the standard four.
type HeaderChecker struct {
	spec headerSpec
}

// HeaderCheckers returns the four standard security header checks.
func HeaderCheckers() []Checker {
	out := make([]Checker, 0, len(headerSpecs))
	for _, spec := range headerSpecs {
		out = append(out, HeaderChecker{spec: spec})
	}
	return out
}

func (c HeaderChecker) ID() string    { return c.spec.id }
func (c HeaderChecker) Title() string { return c.spec.title }

func (c HeaderChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 19 152-ФЗ",
	}
	if in.Probe == nil || in.Probe.Headers == nil {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "заголовки ответа не получены")
		return res
	}

	value := in.Probe.Headers.Get(c.spec.header)
	if value == "" {
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "заголовок "+c.spec.header+" отсутствует")
		return res
	}

	status, note := c.spec.assess(value)
	res.Status = status
	res.Evidence = append(res.Evidence, c.spec.header+": "+value)
	if note != "" {
		res.Evidence = append(res.Evidence, note)
	}
	return res
}
