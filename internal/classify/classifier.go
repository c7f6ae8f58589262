// Package classify guesses the business category of a website from its
// rendered markup. Classification is heuristic: the result carries a
// confidence tier and the matched evidence, never a legal determination.
package classify

import (
	"fmt"
	"strings"
)

// Type is the business category of a site.
type Type string

const (
	TypeEcommerce    Type = "ecommerce"
	TypeMarketplace  Type = "marketplace"
	TypeServices     Type = "services"
	TypeCorporate    Type = "corporate"
	TypeLanding      Type = "landing"
	TypeSaaS         Type = "saas"
	TypeBlog         Type = "blog"
	TypeOnlineSchool Type = "online_school"
	TypeUGC          Type = "ugc"
	TypeClassifieds  Type = "classifieds"
	TypeGovernment   Type = "government"
	TypeOther        Type = "other"
)

// Confidence tier of a classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MinPageLength is the markup length below which a page is considered
// unavailable and classification short-circuits.
const MinPageLength = 100

// Result is the classifier output: the winning type, its confidence, the
// human-readable reasons, and the raw signals for the audit report.
type Result struct {
	Type       Type       `json:"type"`
	Confidence Confidence `json:"confidence"`
	Reasons    []string   `json:"reasons"`
	Signals    Signals    `json:"signals"`
}

// Meta is the display metadata attached to every site type.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// AuditPrice is the reference price of a full manual audit, in rubles.
	AuditPrice int `json:"audit_price"`
}

var catalog = map[Type]Meta{
	TypeEcommerce:    {"Интернет-магазин", "Продажа товаров с корзиной и оформлением заказа", 15000},
	TypeMarketplace:  {"Маркетплейс", "Торговая площадка со множеством продавцов", 25000},
	TypeServices:     {"Сайт услуг", "Презентация услуг компании с формой заявки", 12000},
	TypeCorporate:    {"Корпоративный сайт", "Многостраничный сайт компании", 10000},
	TypeLanding:      {"Лендинг", "Одностраничный сайт с формой захвата контактов", 8000},
	TypeSaaS:         {"SaaS-сервис", "Онлайн-сервис по подписке с личным кабинетом", 20000},
	TypeBlog:         {"Блог / СМИ", "Регулярно обновляемые статьи и публикации", 8000},
	TypeOnlineSchool: {"Онлайн-школа", "Продажа курсов и обучающих программ", 18000},
	TypeUGC:          {"Форум / сообщество", "Площадка с пользовательским контентом", 17000},
	TypeClassifieds:  {"Доска объявлений", "Публикация объявлений пользователями", 20000},
	TypeGovernment:   {"Государственный сайт", "Сайт органа власти или госучреждения", 20000},
	TypeOther:        {"Не определён", "Тип сайта не удалось определить автоматически", 10000},
}

// MetaFor returns display metadata for a type, falling back to TypeOther
// for unknown values.
func MetaFor(t Type) Meta {
	if m, ok := catalog[t]; ok {
		return m
	}
	return catalog[TypeOther]
}

// Rule is one entry of the decision list: a predicate over the extracted
// signals plus the type, confidence and reason it fixes when it matches.
type Rule struct {
	Name       string
	Type       Type
	Confidence Confidence
	Reason     string
	Match      func(Signals) bool
}

// The decision list. Evaluation order is fixed: the first rule whose
// predicate holds wins. Rules combining at least two independent signals
// carry high confidence, single-signal rules carry medium, the fallback
// carries low. Reordering entries changes classification semantics.
var rules = []Rule{
	{"government", TypeGovernment, ConfidenceHigh,
		"домен государственной зоны или терминология органов власти",
		func(s Signals) bool { return s.Government }},
	{"marketplace", TypeMarketplace, ConfidenceHigh,
		"язык торговой площадки вместе с магазинной инфраструктурой",
		func(s Signals) bool { return s.Marketplace && (s.Cart || s.Catalogue || s.Checkout) }},
	{"classifieds", TypeClassifieds, ConfidenceHigh,
		"механика досок объявлений с регистрацией или каталогом",
		func(s Signals) bool { return s.Classifieds && (s.Registration || s.Catalogue || s.ContactForm) }},
	{"strong-ecommerce", TypeEcommerce, ConfidenceHigh,
		"корзина, каталог и оформление заказа",
		func(s Signals) bool {
			n := 0
			for _, v := range []bool{s.Cart, s.Catalogue, s.Checkout} {
				if v {
					n++
				}
			}
			return n >= 2
		}},
	{"weak-ecommerce", TypeEcommerce, ConfidenceMedium,
		"одиночный магазинный признак",
		func(s Signals) bool { return s.Cart || s.Checkout }},
	{"strong-education", TypeOnlineSchool, ConfidenceHigh,
		"учебные материалы вместе с записью или оплатой",
		func(s Signals) bool { return s.Courses && (s.Registration || s.Login || s.Pricing) }},
	{"weak-education", TypeOnlineSchool, ConfidenceMedium,
		"упоминания курсов и уроков",
		func(s Signals) bool { return s.Courses }},
	{"strong-saas", TypeSaaS, ConfidenceHigh,
		"тарифы вместе с личным кабинетом",
		func(s Signals) bool { return s.Pricing && (s.Login || s.Registration) }},
	{"weak-saas", TypeSaaS, ConfidenceMedium,
		"подписочные тарифы",
		func(s Signals) bool { return s.Pricing }},
	{"ugc", TypeUGC, ConfidenceMedium,
		"признаки форума или сообщества",
		func(s Signals) bool { return s.UGC }},
	{"blog", TypeBlog, ConfidenceMedium,
		"плотность статей и публикаций",
		func(s Signals) bool { return s.Articles }},
	{"strong-services", TypeServices, ConfidenceHigh,
		"перечень услуг вместе с формой заявки",
		func(s Signals) bool { return s.ServicesList && (s.ContactForm || s.Portfolio) }},
	{"weak-services", TypeServices, ConfidenceMedium,
		"перечень услуг",
		func(s Signals) bool { return s.ServicesList }},
	{"strong-landing", TypeLanding, ConfidenceHigh,
		"одностраничник с формой захвата контактов",
		func(s Signals) bool { return s.SinglePage && s.ContactForm }},
	{"weak-landing", TypeLanding, ConfidenceMedium,
		"малостраничный сайт с формой контактов",
		func(s Signals) bool { return s.SinglePage || (s.ContactForm && s.LinkCount < smallSiteLinkLimit) }},
	{"weak-corporate", TypeCorporate, ConfidenceMedium,
		"общекорпоративные признаки без выраженной модели",
		func(s Signals) bool { return s.ContactForm || s.Portfolio || s.Login || s.Registration }},
	{"fallback", TypeOther, ConfidenceLow,
		"решающих признаков не найдено",
		func(Signals) bool { return true }},
}

// Rules exposes the decision list so precedence can be inspected and tested.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify runs signal extraction and the decision list over a rendered page.
// It never panics: extraction errors degrade to the fallback result, and
// pages too short to carry signals short-circuit to TypeOther.
func Classify(html, rawURL string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = fallbackResult(fmt.Sprintf("ошибка классификации: %v", r))
		}
	}()

	if len(strings.TrimSpace(html)) < MinPageLength {
		return fallbackResult("страница недоступна или пуста")
	}

	signals := Extract(html, rawURL)
	for _, rule := range rules {
		if !rule.Match(signals) {
			continue
		}
		reasons := []string{rule.Reason}
		if names := signals.active(); len(names) > 0 {
			reasons = append(reasons, "признаки: "+strings.Join(names, ", "))
		}
		return Result{
			Type:       rule.Type,
			Confidence: rule.Confidence,
			Reasons:    reasons,
			Signals:    signals,
		}
	}
	// Unreachable while the fallback rule is in place.
	return fallbackResult("решающих признаков не найдено")
}

func fallbackResult(reason string) Result {
	return Result{
		Type:       TypeOther,
		Confidence: ConfidenceLow,
		Reasons:    []string{reason},
	}
}
