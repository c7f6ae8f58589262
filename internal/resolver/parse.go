package resolver

import "strings"

// WhoisRecord is the structured subset of a free-text WHOIS response.
// Registries format responses differently; fields a registry omits or
// redacts stay empty rather than failing the parse.
type WhoisRecord struct {
	Registrar   string   `json:"registrar,omitempty"`
	Registrant  string   `json:"registrant,omitempty"`
	CreatedDate string   `json:"created_date,omitempty"`
	ExpiryDate  string   `json:"expiry_date,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
}

// Empty reports whether parsing recovered nothing useful.
func (r WhoisRecord) Empty() bool {
	return r.Registrar == "" && r.Registrant == "" && r.CreatedDate == "" &&
		r.ExpiryDate == "" && len(r.NameServers) == 0
}

// Key prefixes per field, lowercase. Order inside a group matters only for
// readability; the first line that yields a non-empty value wins.
var (
	registrarKeys = []string{"registrar", "registrar name", "sponsoring registrar"}
	createdKeys   = []string{"creation date", "created", "created on", "registered", "registration date", "registered on"}
	expiryKeys    = []string{"registry expiry date", "expiration date", "expiry date", "expires", "expires on", "paid-till", "free-date"}
	nserverKeys   = []string{"nserver", "name server", "nameserver"}
	registrantKeys = []string{
		"registrant organization", "registrant name", "registrant", "org", "organization", "person", "holder",
	}
)

// Values registries substitute when the registrant is hidden. A redacted
// value is skipped entirely: an empty registrant is honest, a placeholder
// string is not.
var redactionMarkers = []string{
	"redacted", "privacy", "private person", "protected", "not disclosed",
	"withheld", "data protected", "gdpr", "statutory masking",
}

// ParseWhois extracts a WhoisRecord from raw response text using
// case-insensitive key-prefix matching, line by line. Comment lines and
// lines without a colon are skipped; unparseable lines never abort the scan.
func ParseWhois(raw string) WhoisRecord {
	var rec WhoisRecord
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '%' || line[0] == '#' || line[0] == '>' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch {
		case matchesKey(key, nserverKeys):
			// tcinet appends the glue address after the host name.
			host := strings.ToLower(trimDot(strings.Fields(value)[0]))
			if host != "" && !seen[host] {
				seen[host] = true
				rec.NameServers = append(rec.NameServers, host)
			}
		case matchesKey(key, registrarKeys):
			if rec.Registrar == "" {
				rec.Registrar = value
			}
		case matchesKey(key, createdKeys):
			if rec.CreatedDate == "" {
				rec.CreatedDate = value
			}
		case matchesKey(key, expiryKeys):
			if rec.ExpiryDate == "" {
				rec.ExpiryDate = value
			}
		case matchesKey(key, registrantKeys):
			if rec.Registrant == "" && !redacted(value) {
				rec.Registrant = value
			}
		}
	}
	return rec
}

func matchesKey(key string, candidates []string) bool {
	for _, c := range candidates {
		if key == c {
			return true
		}
	}
	return false
}

func redacted(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range redactionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
