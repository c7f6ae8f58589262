package classify

import (
	"strings"
	"testing"
)

const shopHTML = `<html><body>
<a href="/catalog">Каталог</a>
<a href="/cart">Корзина</a>
<div class="items">Популярные товары этой недели со скидками и доставкой по всей стране</div>
<button>Оформить заказ</button>
</body></html>`

const landingHTML = `<html><body>
<h1>Ремонт квартир под ключ</h1>
<p>Сделаем ремонт за 30 дней с фиксированной сметой и гарантией на все работы</p>
<form><input name="phone" placeholder="Телефон"><button>Оставьте заявку</button></form>
</body></html>`

func TestClassifyShopWithFullFunnel(t *testing.T) {
	result := Classify(shopHTML, "https://shop.example.ru")
	if result.Type != TypeEcommerce {
		t.Fatalf("type = %s, want %s (reasons: %v)", result.Type, TypeEcommerce, result.Reasons)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high", result.Confidence)
	}
	if len(result.Reasons) == 0 {
		t.Error("expected at least one reason")
	}
}

func TestClassifyLandingByLinkCount(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		result := Classify(landingHTML, "https://remont.example.ru")
		if result.Type != TypeLanding || result.Confidence != ConfidenceHigh {
			t.Errorf("got %s/%s, want landing/high (reasons: %v)", result.Type, result.Confidence, result.Reasons)
		}
	})

	t.Run("small site", func(t *testing.T) {
		html := landingHTML + strings.Repeat(`<a href="/p">p</a>`, 20)
		result := Classify(html, "https://remont.example.ru")
		if result.Type != TypeLanding || result.Confidence != ConfidenceMedium {
			t.Errorf("got %s/%s, want landing/medium (reasons: %v)", result.Type, result.Confidence, result.Reasons)
		}
	})
}

func TestClassifyShortCircuitsOnEmptyPage(t *testing.T) {
	for _, html := range []string{"", "   ", "<html></html>"} {
		result := Classify(html, "https://example.ru")
		if result.Type != TypeOther || result.Confidence != ConfidenceLow {
			t.Errorf("Classify(%q) = %s/%s, want other/low", html, result.Type, result.Confidence)
		}
	}
}

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name string
		html string
		want Type
	}{
		{
			name: "government beats shop signals",
			html: `<html><body>Официальный портал администрации города. Каталог услуг, корзина обращений, оформить заказ справки.</body></html>`,
			want: TypeGovernment,
		},
		{
			name: "marketplace beats ecommerce",
			html: `<html><body>Маркетплейс для всей семьи. Каталог из миллиона товаров, корзина, стать продавцом может каждый.</body></html>`,
			want: TypeMarketplace,
		},
		{
			name: "courses with registration",
			html: `<html><body>Онлайн-курс по программированию. Уроки каждую неделю, домашние задания. Регистрация открыта до конца месяца.</body></html>`,
			want: TypeOnlineSchool,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Classify(tc.html, "https://example.ru")
			if result.Type != tc.want {
				t.Errorf("type = %s, want %s (reasons: %v)", result.Type, tc.want, result.Reasons)
			}
		})
	}
}

func TestClassifyFallback(t *testing.T) {
	// Neutral text, enough links to defeat the single-page heuristic,
	// no form and no recognizable signals.
	html := `<html><body><p>lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua</p>` +
		strings.Repeat(`<a href="/x">x</a>`, 16) + `</body></html>`

	result := Classify(html, "https://example.com")
	if result.Type != TypeOther || result.Confidence != ConfidenceLow {
		t.Errorf("got %s/%s, want other/low (reasons: %v)", result.Type, result.Confidence, result.Reasons)
	}
}

func TestRuleOrder(t *testing.T) {
	list := Rules()
	if len(list) == 0 {
		t.Fatal("empty decision list")
	}
	if list[0].Name != "government" {
		t.Errorf("first rule = %s, want government", list[0].Name)
	}
	last := list[len(list)-1]
	if last.Name != "fallback" || last.Confidence != ConfidenceLow {
		t.Errorf("last rule = %s/%s, want fallback/low", last.Name, last.Confidence)
	}
	if !last.Match(Signals{}) {
		t.Error("fallback rule must match empty signals")
	}
}

func TestExtractSignals(t *testing.T) {
	html := `<html><body>
<a href="/one">one</a><a href="/two">two</a>
<div>Add to cart</div><div>Products catalog</div>
<form><input name="phone"></form>
</body></html>`

	s := Extract(html, "https://example.com")
	if !s.Cart || !s.Catalogue {
		t.Errorf("expected cart and catalogue signals, got %+v", s)
	}
	if !s.ContactForm {
		t.Error("expected contact form signal")
	}
	if s.LinkCount != 2 {
		t.Errorf("link count = %d, want 2", s.LinkCount)
	}
	if !s.SinglePage {
		t.Error("two links should count as single page")
	}
}

func TestGovernmentZoneDetection(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://admin.gov.ru/news", true},
		{"kremlin.gov.ru", true},
		{"https://shop.example.ru", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := inGovernmentZone(tc.url); got != tc.want {
			t.Errorf("inGovernmentZone(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestMetaFor(t *testing.T) {
	m := MetaFor(TypeEcommerce)
	if m.Name == "" || m.AuditPrice <= 0 {
		t.Errorf("incomplete metadata for ecommerce: %+v", m)
	}
	if got := MetaFor(Type("nonsense")); got != MetaFor(TypeOther) {
		t.Errorf("unknown type should fall back to other, got %+v", got)
	}
}
