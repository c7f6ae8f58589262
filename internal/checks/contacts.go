package checks

import (
	"context"
	"regexp"
	"strings"
)

const IDContacts = "contacts"

var (
	emailPattern = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)+`)
	phonePattern = regexp.MustCompile(`(?:\+7|8)[\s\-(]*\d{3}[\s\-)]*\d{3}[\s\-]*\d{2}[\s\-]*\d{2}`)
)

var addressMarkers = []string{
	"г. ", "город ", "ул. ", "улица ", "проспект", "пр-т", "пер. ", "офис", "строение", "корпус",
}

// ContactsChecker verifies the site publishes working contact channels:
// email, phone and a postal address.
type ContactsChecker struct{}

func (ContactsChecker) ID() string    { return IDContacts }
func (ContactsChecker) Title() string { return "Контактная информация" }

func (c ContactsChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ч. 2 ст. 10 149-ФЗ",
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, контакты не искались")
		return res
	}

	var kinds int

	if email := searchWholePattern(in, emailPattern); email != "" {
		kinds++
		res.Evidence = append(res.Evidence, "email: "+email)
	}
	if phone := searchWholePattern(in, phonePattern); phone != "" {
		kinds++
		res.Evidence = append(res.Evidence, "телефон: "+strings.Join(strings.Fields(phone), " "))
	}
	if marker := containsAnyMarker(in, addressMarkers); marker != "" {
		kinds++
		res.Evidence = append(res.Evidence, "найдены признаки почтового адреса («"+strings.TrimSpace(marker)+"»)")
	}

	switch {
	case kinds >= 2:
		res.Status = StatusOK
	case kinds == 1:
		res.Status = StatusWarn
		res.Evidence = append(res.Evidence, "найден только один канал связи")
	default:
		res.Status = StatusFail
		res.Evidence = append(res.Evidence, "контактная информация не найдена")
	}
	return res
}

func containsAnyMarker(in *Input, markers []string) string {
	for _, text := range in.AllText() {
		for _, m := range markers {
			if strings.Contains(text, m) {
				return m
			}
		}
	}
	return ""
}
