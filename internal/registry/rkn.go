package registry

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/avoronkov/pdnaudit/internal/inn"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// registryListURL is the public operator register search page. It sits
// behind a bot wall, so lookups drive a real browser instead of plain HTTP.
const registryListURL = "https://pd.rkn.gov.ru/operators-registry/operators-list/"

const defaultRKNTimeout = 60 * time.Second

var (
	// Registration numbers look like 77-17-003892.
	regNumberPattern = regexp.MustCompile(`\d{2}-\d+-\d+`)
	regDatePattern   = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

	// Tokens that mark a line as an organization name.
	orgNameTokens = []string{"ООО", "АО", "ПАО", "ИП"}

	// Phrases the register shows when a search yields nothing.
	notFoundMarkers = []string{"найдено: 0", "не найдено", "нет данных"}
)

// RKNClient performs live lookups against the operator register with a
// headless browser: open the search page, fill the INN field, submit, parse
// the result table out of the rendered page.
type RKNClient struct {
	Timeout   time.Duration
	UserAgent string
}

func NewRKNClient() *RKNClient {
	return &RKNClient{Timeout: defaultRKNTimeout}
}

func (c *RKNClient) Lookup(ctx context.Context, innValue string) (*Record, error) {
	innValue = strings.TrimSpace(innValue)
	if ok, reason := inn.Validate(innValue); !ok {
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrInvalidINN, reason)
	}

	content, err := c.fetchSearchResults(ctx, innValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrRegistryUnavailable, err)
	}

	rec := parseRegistryPage(innValue, content)
	rec.Source = registryListURL
	rec.LastCheckedAt = time.Now().UTC()
	return rec, nil
}

func (c *RKNClient) fetchSearchResults(ctx context.Context, innValue string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, c.timeout())
	defer cancel()

	var content string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(registryListURL),
		chromedp.WaitVisible(`input[name="inn"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="inn"]`, innValue, chromedp.ByQuery),
		chromedp.Submit(`input[name="inn"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *RKNClient) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultRKNTimeout
}

// parseRegistryPage extracts an operator record from the rendered search
// results. The register's markup changes without notice, so parsing is
// pattern based: a registration number, a date and an organization-looking
// line are enough to call the operator registered.
func parseRegistryPage(innValue, html string) *Record {
	rec := &Record{INN: innValue}

	lower := strings.ToLower(html)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return rec
		}
	}

	text := stripTags(html)
	if m := regNumberPattern.FindString(text); m != "" {
		rec.RegistrationNumber = m
	}
	if m := regDatePattern.FindString(text); m != "" {
		rec.RegistrationDate = m
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= 10 || allDigits(line) {
			continue
		}
		if containsToken(line, orgNameTokens) {
			rec.Name = line
			break
		}
	}

	rec.Registered = rec.RegistrationNumber != "" || rec.Name != ""
	return rec
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(strings.ReplaceAll(html, "><", ">\n<"), "")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsToken(line string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(line, token) {
			return true
		}
	}
	return false
}
