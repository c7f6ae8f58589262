// Package penalty maps failed checks to statutory fine ranges and
// aggregates them into per-subject totals. Several checks may be facets of
// one legal violation; the aggregation key makes sure such a violation is
// counted once per audit.
package penalty

import (
	"github.com/avoronkov/pdnaudit/internal/checks"
)

// Subject is the category of the liable person under the administrative
// code. Fine ranges differ by an order of magnitude between them.
type Subject string

const (
	SubjectCitizen Subject = "citizen"
	// SubjectSelfEmployed applies only when the person is not additionally
	// registered as an individual entrepreneur. That distinction is made by
	// the caller; the table just carries both tiers.
	SubjectSelfEmployed           Subject = "self_employed"
	SubjectOfficial               Subject = "official"
	SubjectIndividualEntrepreneur Subject = "individual_entrepreneur"
	SubjectLegalEntity            Subject = "legal_entity"
)

// Confidence of a mapping: high means the fine follows directly from the
// named article, low means the mapping is interpretive.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Range is a statutory fine bracket for one subject type, in rubles.
type Range struct {
	Subject    Subject `json:"subject"`
	MinAmount  int     `json:"min_amount"`
	MaxAmount  int     `json:"max_amount"`
	Confidence string  `json:"confidence"`
	Note       string  `json:"note,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Item is one canonical violation with its fine ranges and remediation
// steps. Items are static configuration; callers must not modify them.
type Item struct {
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	LawBasis       []string `json:"law_basis"`
	AggregationKey string   `json:"aggregation_key"`
	Ranges         []Range  `json:"ranges"`
	Remediation    []string `json:"remediation"`
}

// aliases resolves raw check identifiers to canonical violation keys. Many
// checks fold into one violation: every security header is a facet of the
// same protection-measures duty.
var aliases = map[string]string{
	checks.IDConsentCheckbox: "consent_processing",
	checks.IDCookieBanner:    "consent_processing",
	checks.IDConsentDocument: "consent_processing",

	checks.IDPrivacyPolicy: "policy_publication",

	checks.IDHTTPSEnforced:  "data_protection_measures",
	checks.IDTLSCertificate: "data_protection_measures",
	checks.IDHeaderHSTS:     "data_protection_measures",
	checks.IDHeaderCSP:      "data_protection_measures",
	checks.IDHeaderXFO:      "data_protection_measures",
	checks.IDHeaderXCTO:     "data_protection_measures",

	checks.IDOwnerIdentification: "operator_disclosure",
	checks.IDContacts:            "operator_disclosure",

	checks.IDRegistryRegistration: "registry_notification",
}

const (
	note24 = "в силу ст. 2.4 КоАП РФ ИП отвечает как должностное лицо"
	noteSE = "самозанятые без статуса ИП отвечают как физические лица"
)

var items = map[string]Item{
	"consent_processing": {
		Key:            "consent_processing",
		Title:          "Обработка персональных данных без надлежащего согласия",
		LawBasis:       []string{"ст. 9 152-ФЗ", "ч. 2 ст. 13.11 КоАП РФ"},
		AggregationKey: "consent_processing",
		Ranges: []Range{
			{Subject: SubjectCitizen, MinAmount: 6000, MaxAmount: 10000, Confidence: ConfidenceHigh, Source: "ч. 2 ст. 13.11 КоАП РФ"},
			{Subject: SubjectSelfEmployed, MinAmount: 6000, MaxAmount: 10000, Confidence: ConfidenceMedium, Note: noteSE},
			{Subject: SubjectOfficial, MinAmount: 20000, MaxAmount: 40000, Confidence: ConfidenceHigh, Source: "ч. 2 ст. 13.11 КоАП РФ"},
			{Subject: SubjectIndividualEntrepreneur, MinAmount: 20000, MaxAmount: 40000, Confidence: ConfidenceMedium, Note: note24},
			{Subject: SubjectLegalEntity, MinAmount: 30000, MaxAmount: 150000, Confidence: ConfidenceHigh, Source: "ч. 2 ст. 13.11 КоАП РФ"},
		},
		Remediation: []string{
			"добавить чекбокс согласия во все формы сбора данных",
			"разместить текст согласия со всеми обязательными элементами ст. 9 152-ФЗ",
			"показывать уведомление об использовании cookie при первом визите",
		},
	},
	"policy_publication": {
		Key:            "policy_publication",
		Title:          "Политика обработки персональных данных не опубликована",
		LawBasis:       []string{"ч. 2 ст. 18.1 152-ФЗ", "ч. 3 ст. 13.11 КоАП РФ"},
		AggregationKey: "policy_publication",
		Ranges: []Range{
			{Subject: SubjectCitizen, MinAmount: 1500, MaxAmount: 3000, Confidence: ConfidenceHigh, Source: "ч. 3 ст. 13.11 КоАП РФ"},
			{Subject: SubjectSelfEmployed, MinAmount: 1500, MaxAmount: 3000, Confidence: ConfidenceMedium, Note: noteSE},
			{Subject: SubjectOfficial, MinAmount: 6000, MaxAmount: 12000, Confidence: ConfidenceHigh, Source: "ч. 3 ст. 13.11 КоАП РФ"},
			{Subject: SubjectIndividualEntrepreneur, MinAmount: 10000, MaxAmount: 20000, Confidence: ConfidenceHigh, Source: "ч. 3 ст. 13.11 КоАП РФ"},
			{Subject: SubjectLegalEntity, MinAmount: 30000, MaxAmount: 60000, Confidence: ConfidenceHigh, Source: "ч. 3 ст. 13.11 КоАП РФ"},
		},
		Remediation: []string{
			"опубликовать политику обработки персональных данных",
			"разместить ссылку на политику на каждой странице, где собираются данные",
		},
	},
	"data_protection_measures": {
		Key:            "data_protection_measures",
		Title:          "Не обеспечены технические меры защиты персональных данных",
		LawBasis:       []string{"ст. 19 152-ФЗ", "ч. 6 ст. 13.11 КоАП РФ"},
		AggregationKey: "data_protection_measures",
		Ranges: []Range{
			{Subject: SubjectCitizen, MinAmount: 1500, MaxAmount: 4000, Confidence: ConfidenceLow, Note: "штраф обычно назначается после предписания или инцидента"},
			{Subject: SubjectSelfEmployed, MinAmount: 1500, MaxAmount: 4000, Confidence: ConfidenceLow, Note: noteSE},
			{Subject: SubjectOfficial, MinAmount: 8000, MaxAmount: 20000, Confidence: ConfidenceMedium},
			{Subject: SubjectIndividualEntrepreneur, MinAmount: 20000, MaxAmount: 40000, Confidence: ConfidenceMedium},
			{Subject: SubjectLegalEntity, MinAmount: 50000, MaxAmount: 100000, Confidence: ConfidenceMedium, Source: "ч. 6 ст. 13.11 КоАП РФ"},
		},
		Remediation: []string{
			"включить HTTPS и переадресацию с http:// на https://",
			"настроить заголовки безопасности (HSTS, CSP, X-Frame-Options, X-Content-Type-Options)",
			"следить за сроком действия TLS-сертификата",
		},
	},
	"operator_disclosure": {
		Key:            "operator_disclosure",
		Title:          "Сведения об операторе не раскрыты на сайте",
		LawBasis:       []string{"ч. 2 ст. 10 149-ФЗ", "ч. 4 ст. 13.11 КоАП РФ"},
		AggregationKey: "operator_disclosure",
		Ranges: []Range{
			{Subject: SubjectCitizen, MinAmount: 2000, MaxAmount: 4000, Confidence: ConfidenceMedium},
			{Subject: SubjectSelfEmployed, MinAmount: 2000, MaxAmount: 4000, Confidence: ConfidenceLow, Note: noteSE},
			{Subject: SubjectOfficial, MinAmount: 8000, MaxAmount: 12000, Confidence: ConfidenceMedium},
			{Subject: SubjectIndividualEntrepreneur, MinAmount: 20000, MaxAmount: 30000, Confidence: ConfidenceMedium, Note: note24},
			{Subject: SubjectLegalEntity, MinAmount: 40000, MaxAmount: 80000, Confidence: ConfidenceMedium, Source: "ч. 4 ст. 13.11 КоАП РФ"},
		},
		Remediation: []string{
			"разместить на сайте наименование оператора, ИНН или ОГРН",
			"опубликовать контактные данные для обращений субъектов персональных данных",
		},
	},
	"registry_notification": {
		Key:            "registry_notification",
		Title:          "Оператор не уведомил регулятора об обработке персональных данных",
		LawBasis:       []string{"ст. 22 152-ФЗ", "ч. 10 ст. 13.11 КоАП РФ"},
		AggregationKey: "registry_notification",
		Ranges: []Range{
			{Subject: SubjectCitizen, MinAmount: 5000, MaxAmount: 10000, Confidence: ConfidenceHigh, Source: "ч. 10 ст. 13.11 КоАП РФ"},
			{Subject: SubjectSelfEmployed, MinAmount: 5000, MaxAmount: 10000, Confidence: ConfidenceMedium, Note: noteSE},
			{Subject: SubjectOfficial, MinAmount: 30000, MaxAmount: 50000, Confidence: ConfidenceHigh, Source: "ч. 10 ст. 13.11 КоАП РФ"},
			{Subject: SubjectIndividualEntrepreneur, MinAmount: 30000, MaxAmount: 50000, Confidence: ConfidenceMedium, Note: note24},
			{Subject: SubjectLegalEntity, MinAmount: 100000, MaxAmount: 300000, Confidence: ConfidenceHigh, Source: "ч. 10 ст. 13.11 КоАП РФ"},
		},
		Remediation: []string{
			"подать уведомление об обработке персональных данных через портал Роскомнадзора",
			"после включения в реестр проверить корректность опубликованных сведений",
		},
	},
}

// Attach resolves a check outcome to its penalty item. Passing statuses and
// statuses that carry no evidence (na, unavailable) attach nothing, and so
// do checks without a mapping. The returned item is shared static data.
func Attach(checkID string, status checks.Status) *Item {
	if !status.Problem() {
		return nil
	}
	key, ok := aliases[checkID]
	if !ok {
		return nil
	}
	item, ok := items[key]
	if !ok {
		return nil
	}
	return &item
}

// ItemForKey exposes the canonical table for report rendering.
func ItemForKey(key string) (Item, bool) {
	item, ok := items[key]
	return item, ok
}

// Keys lists every canonical violation key in the table.
func Keys() []string {
	out := make([]string, 0, len(items))
	for key := range items {
		out = append(out, key)
	}
	return out
}
