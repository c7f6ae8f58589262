package checks

import (
	"context"
	"strings"
)

// Check identifiers, also the keys of the penalty mapping table.
const (
	IDPrivacyPolicy   = "privacy_policy"
	IDConsentCheckbox = "consent_checkbox"
	IDCookieBanner    = "cookie_banner"
	IDConsentDocument = "consent_document"
)

var privacyPolicyMarkers = []string{
	"политика конфиденциальности",
	"политика обработки персональных данных",
	"политике конфиденциальности",
	"обработка персональных данных",
	"обработки персональных данных",
	"privacy policy",
}

// PrivacyPolicyChecker looks for a published personal-data processing
// policy across the main page and the discovered auxiliary pages.
type PrivacyPolicyChecker struct{}

func (PrivacyPolicyChecker) ID() string    { return IDPrivacyPolicy }
func (PrivacyPolicyChecker) Title() string { return "Политика обработки персональных данных" }

func (c PrivacyPolicyChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ч. 2 ст. 18.1 152-ФЗ",
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, поиск политики не выполнен")
		return res
	}

	if marker, source := findAcross(in, privacyPolicyMarkers); marker != "" {
		res.Status = StatusOK
		res.Evidence = append(res.Evidence, "найдено упоминание: «"+marker+"» ("+source+")")
		return res
	}

	res.Status = StatusFail
	res.Evidence = append(res.Evidence, "упоминаний политики обработки персональных данных не найдено")
	return res
}

var consentCheckboxMarkers = []string{
	"согласие на обработку персональных данных",
	"согласен на обработку",
	"даю согласие на обработку",
	"соглашаюсь с политикой",
	"принимаю условия обработки",
}

// ConsentCheckboxChecker verifies that data-collecting forms carry a
// consent confirmation. Pages without forms are out of scope for it.
type ConsentCheckboxChecker struct{}

func (ConsentCheckboxChecker) ID() string    { return IDConsentCheckbox }
func (ConsentCheckboxChecker) Title() string { return "Согласие при отправке форм" }

func (c ConsentCheckboxChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 9 152-ФЗ",
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, формы не проанализированы")
		return res
	}

	if !strings.Contains(in.Text, "<form") {
		res.Status = StatusNA
		res.Evidence = append(res.Evidence, "формы сбора данных на странице не обнаружены")
		return res
	}

	for _, marker := range consentCheckboxMarkers {
		if strings.Contains(in.Text, marker) {
			res.Status = StatusOK
			res.Evidence = append(res.Evidence, "найдена формулировка согласия: «"+marker+"»")
			if strings.Contains(in.Text, `type="checkbox"`) {
				res.Evidence = append(res.Evidence, "на странице присутствует чекбокс")
			}
			return res
		}
	}

	res.Status = StatusFail
	res.Evidence = append(res.Evidence, "форма присутствует, но формулировка согласия не найдена")
	return res
}

var cookieBannerMarkers = []string{
	"мы используем cookie",
	"использует файлы cookie",
	"использует cookie",
	"файлы cookie",
	"файлов cookie",
	"куки-файл",
	"cookie consent",
	"we use cookies",
}

// CookieBannerChecker looks for a cookie notification. The banner is often
// injected by script, which is why audits run against rendered markup.
type CookieBannerChecker struct{}

func (CookieBannerChecker) ID() string    { return IDCookieBanner }
func (CookieBannerChecker) Title() string { return "Уведомление об использовании cookie" }

func (c CookieBannerChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 9 152-ФЗ",
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, баннер cookie не проверен")
		return res
	}

	for _, marker := range cookieBannerMarkers {
		if strings.Contains(in.Text, marker) {
			res.Status = StatusOK
			res.Evidence = append(res.Evidence, "найдено уведомление: «"+marker+"»")
			return res
		}
	}

	res.Status = StatusWarn
	res.Evidence = append(res.Evidence, "уведомление об использовании cookie не найдено")
	res.Limitations = append(res.Limitations, "баннер может показываться только новым посетителям")
	return res
}

// findAcross scans the main page first, then auxiliary pages, and reports
// the first marker hit together with where it was found.
func findAcross(in *Input, markers []string) (marker, source string) {
	for _, m := range markers {
		if strings.Contains(in.Text, m) {
			return m, "главная страница"
		}
	}
	for label, text := range in.Pages {
		for _, m := range markers {
			if strings.Contains(text, m) {
				return m, "страница «" + label + "»"
			}
		}
	}
	return "", ""
}
