package classify

import (
	"net/url"
	"strings"
)

// Signals are the boolean features extracted from a rendered page. Rules in
// the decision list consume them; the final report carries them as evidence.
type Signals struct {
	Cart         bool `json:"cart"`
	Catalogue    bool `json:"catalogue"`
	Checkout     bool `json:"checkout"`
	Registration bool `json:"registration"`
	Login        bool `json:"login"`
	Pricing      bool `json:"pricing"`
	Courses      bool `json:"courses"`
	Articles     bool `json:"articles"`
	Marketplace  bool `json:"marketplace"`
	Classifieds  bool `json:"classifieds"`
	UGC          bool `json:"ugc"`
	Government   bool `json:"government"`
	ServicesList bool `json:"services_list"`
	Portfolio    bool `json:"portfolio"`
	ContactForm  bool `json:"contact_form"`

	// LinkCount drives the single-page heuristic; SinglePage is derived
	// from it so tests can assert both.
	LinkCount  int  `json:"link_count"`
	SinglePage bool `json:"single_page"`
}

const (
	// Pages with fewer outbound links than this are treated as single-page.
	singlePageLinkLimit = 15
	// Looser limit used by the weak landing rule.
	smallSiteLinkLimit = 30
)

// Keyword tables cover both Russian and English variants. Matching is done
// on the lowercased page, so entries must be lowercase.
var (
	cartMarkers = []string{
		"корзина", "в корзину", "add to cart", "shopping cart", "basket",
	}
	catalogueMarkers = []string{
		"каталог", "catalog", "товар", "product",
	}
	checkoutMarkers = []string{
		"оформить заказ", "оформление заказа", "checkout", "place order",
	}
	registrationMarkers = []string{
		"регистрация", "зарегистрироваться", "создать аккаунт", "sign up", "signup", "create account",
	}
	loginMarkers = []string{
		"личный кабинет", "войти", "вход в систему", "log in", "login", "sign in",
	}
	pricingMarkers = []string{
		"тариф", "подписка", "pricing", "subscription", "попробовать бесплатно", "free trial",
	}
	courseMarkers = []string{
		"курс", "урок", "вебинар", "обучение", "course", "lesson", "webinar",
	}
	articleMarkers = []string{
		"читать далее", "читать полностью", "read more", "блог", "blog", "статьи",
	}
	marketplaceMarkers = []string{
		"маркетплейс", "marketplace", "стать продавцом", "все продавцы", "продавцы", "seller center",
	}
	classifiedsMarkers = []string{
		"доска объявлений", "подать объявление", "разместить объявление", "classified", "post an ad",
	}
	ugcMarkers = []string{
		"форум", "forum", "обсуждения", "сообщество", "community", "темы форума", "thread",
	}
	governmentMarkers = []string{
		"госуслуг", "министерство", "правительство", "администрация района", "администрация города",
		"муниципальн", "федеральная служба", "государственное учреждение", "официальный портал",
	}
	servicesMarkers = []string{
		"наши услуги", "услуги и цены", "спектр услуг", "оказываем услуги", "our services", "services we provide",
	}
	portfolioMarkers = []string{
		"портфолио", "наши работы", "примеры работ", "кейсы", "portfolio", "case studies",
	}
	contactFormMarkers = []string{
		"оставьте заявку", "оставить заявку", "свяжитесь с нами", "обратной связи",
		"заказать звонок", "contact us", "get in touch", "телефон", "phone",
	}
	governmentZones = []string{
		".gov.ru", ".gosuslugi.ru", ".mos.ru", ".gov",
	}
)

// Extract computes all page signals from the lowercased HTML and the host of
// the original URL. It never fails; unknown or empty input yields zero values.
func Extract(html, rawURL string) Signals {
	lower := strings.ToLower(html)
	links := strings.Count(lower, "<a ")

	s := Signals{
		Cart:         containsAny(lower, cartMarkers),
		Catalogue:    containsAny(lower, catalogueMarkers),
		Checkout:     containsAny(lower, checkoutMarkers),
		Registration: containsAny(lower, registrationMarkers),
		Login:        containsAny(lower, loginMarkers),
		Pricing:      containsAny(lower, pricingMarkers),
		Courses:      containsAny(lower, courseMarkers),
		Articles:     strings.Count(lower, "<article") >= 2 || containsAny(lower, articleMarkers),
		Marketplace:  containsAny(lower, marketplaceMarkers),
		Classifieds:  containsAny(lower, classifiedsMarkers),
		UGC:          containsAny(lower, ugcMarkers),
		ServicesList: containsAny(lower, servicesMarkers),
		Portfolio:    containsAny(lower, portfolioMarkers),
		ContactForm:  strings.Contains(lower, "<form") && containsAny(lower, contactFormMarkers),
		LinkCount:    links,
		SinglePage:   links < singlePageLinkLimit,
	}
	s.Government = containsAny(lower, governmentMarkers) || inGovernmentZone(rawURL)
	return s
}

func inGovernmentZone(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, zone := range governmentZones {
		if strings.HasSuffix(host, zone) || host == strings.TrimPrefix(zone, ".") {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// active lists the names of the set signals, in a stable order, for evidence.
func (s Signals) active() []string {
	var names []string
	for _, entry := range []struct {
		name string
		set  bool
	}{
		{"cart", s.Cart},
		{"catalogue", s.Catalogue},
		{"checkout", s.Checkout},
		{"registration", s.Registration},
		{"login", s.Login},
		{"pricing", s.Pricing},
		{"courses", s.Courses},
		{"articles", s.Articles},
		{"marketplace", s.Marketplace},
		{"classifieds", s.Classifieds},
		{"ugc", s.UGC},
		{"government", s.Government},
		{"services", s.ServicesList},
		{"portfolio", s.Portfolio},
		{"contact form", s.ContactForm},
		{"single page", s.SinglePage},
	} {
		if entry.set {
			names = append(names, entry.name)
		}
	}
	return names
}
