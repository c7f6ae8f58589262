package checks

import (
	"context"

	"github.com/avoronkov/pdnaudit/internal/consent"
)

// ConsentDocumentChecker validates the structured consent metadata supplied
// with the audit request against the statutory content requirements.
type ConsentDocumentChecker struct{}

func (ConsentDocumentChecker) ID() string    { return IDConsentDocument }
func (ConsentDocumentChecker) Title() string { return "Содержание согласия на обработку ПДн" }

func (c ConsentDocumentChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 9 152-ФЗ",
	}
	if in.Consent == nil {
		res.Status = StatusNA
		res.Evidence = append(res.Evidence, "текст согласия не передан на проверку")
		return res
	}

	report := consent.Validate(in.Consent)
	warns := 0
	for _, issue := range report.Issues {
		res.Evidence = append(res.Evidence, issue.Message)
		if issue.Severity == consent.SeverityWarn {
			warns++
		}
	}

	switch {
	case !report.Valid:
		res.Status = StatusFail
	case warns > 0:
		res.Status = StatusWarn
	default:
		res.Status = StatusOK
		res.Evidence = append(res.Evidence, "все обязательные элементы согласия присутствуют")
	}
	return res
}
