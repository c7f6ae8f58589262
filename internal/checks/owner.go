package checks

import (
	"context"
	"regexp"
	"strings"

	"github.com/avoronkov/pdnaudit/internal/inn"
)

const IDOwnerIdentification = "owner_identification"

// Patterns run over lowercased page text.
var (
	innTokenPattern  = regexp.MustCompile(`(?:инн|inn)\D{0,5}(\d{12}|\d{10})`)
	ogrnTokenPattern = regexp.MustCompile(`(?:огрнип|огрн)\D{0,5}(\d{15}|\d{13})`)
	orgNamePattern   = regexp.MustCompile(`(?:ооо|пао|зао|оао|ао|ип)\s+[«"][^»"]{2,80}[»"]`)
)

// ExtractINN finds the first checksum-valid INN mentioned on the audited
// pages. Used both as owner evidence and as the registry lookup key when
// the caller supplied no hint.
func ExtractINN(in *Input) string {
	for _, text := range in.AllText() {
		for _, m := range innTokenPattern.FindAllStringSubmatch(text, -1) {
			if ok, _ := inn.Validate(m[1]); ok {
				return m[1]
			}
		}
	}
	return ""
}

// OwnerIdentificationChecker verifies the site discloses who operates it:
// an organization name, an INN or an OGRN somewhere on the crawled pages.
type OwnerIdentificationChecker struct{}

func (OwnerIdentificationChecker) ID() string    { return IDOwnerIdentification }
func (OwnerIdentificationChecker) Title() string { return "Идентификация владельца сайта" }

func (c OwnerIdentificationChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ч. 2 ст. 10 149-ФЗ",
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, реквизиты не искались")
		return res
	}

	var found int

	if innValue := ExtractINN(in); innValue != "" {
		found++
		res.Evidence = append(res.Evidence, "указан ИНН "+innValue+" (контрольная сумма сходится)")
	} else if m := searchPattern(in, innTokenPattern); m != "" {
		// A number labeled as INN that fails its checksum is worth flagging.
		res.Evidence = append(res.Evidence, "указан ИНН "+m+", но его контрольная сумма не сходится")
	}

	if m := searchPattern(in, ogrnTokenPattern); m != "" {
		found++
		res.Evidence = append(res.Evidence, "указан ОГРН "+m)
	}
	if m := searchWholePattern(in, orgNamePattern); m != "" {
		found++
		res.Evidence = append(res.Evidence, "найдено наименование организации: «"+strings.ToUpper(firstWord(m))+" ...»")
	}

	switch {
	case found >= 2:
		res.Status = StatusOK
	case found == 1:
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "реквизиты владельца раскрыты лишь частично")
	default:
		res.Status = StatusFail
		res.Evidence = append(res.Evidence, "реквизиты владельца (наименование, ИНН, ОГРН) не найдены")
	}
	return res
}

func searchPattern(in *Input, p *regexp.Regexp) string {
	for _, text := range in.AllText() {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func searchWholePattern(in *Input, p *regexp.Regexp) string {
	for _, text := range in.AllText() {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return s
}
