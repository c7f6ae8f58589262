package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avoronkov/pdnaudit/internal/security"
)

const currentRuleAPIVersion = 1

// RuleDefinition is a user-supplied content rule loaded from a JSON file.
// Rules extend the battery without code changes: each one checks that the
// page mentions (or avoids) given phrases.
type RuleDefinition struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	LegalReference string   `json:"legal_reference"`
	RequireAny     []string `json:"require_any"`
	Forbid         []string `json:"forbid"`
	Severity       string   `json:"severity"`
	APIVersion     int      `json:"api_version"`
}

// LoadRules reads every *.json rule in dir. Broken definitions are skipped
// with a warning rather than failing the load, so one bad file cannot take
// down the battery.
func LoadRules(dir string) ([]Checker, []string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read rules dir: %w", err)
	}

	var (
		checkers []Checker
		warnings []string
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %s: %v", entry.Name(), err))
			continue
		}

		var def RuleDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %s: %v", entry.Name(), err))
			continue
		}
		if def.APIVersion == 0 {
			def.APIVersion = currentRuleAPIVersion
		}
		if def.APIVersion != currentRuleAPIVersion {
			warnings = append(warnings, fmt.Sprintf("rule %s: unsupported api version %d", entry.Name(), def.APIVersion))
			continue
		}
		if err := validateRule(&def); err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %s: %v", entry.Name(), err))
			continue
		}
		checkers = append(checkers, RuleChecker{def: def})
	}
	return checkers, warnings, nil
}

func validateRule(def *RuleDefinition) error {
	if err := security.ValidateID(def.ID); err != nil {
		return fmt.Errorf("bad id: %w", err)
	}
	if def.Title == "" {
		return fmt.Errorf("title required")
	}
	if len(def.RequireAny) == 0 && len(def.Forbid) == 0 {
		return fmt.Errorf("require_any or forbid must be set")
	}
	switch def.Severity {
	case "":
		def.Severity = string(StatusFail)
	case string(StatusFail), string(StatusWarn):
	default:
		return fmt.Errorf("severity must be fail or warn")
	}
	for i, m := range def.RequireAny {
		def.RequireAny[i] = strings.ToLower(m)
	}
	for i, m := range def.Forbid {
		def.Forbid[i] = strings.ToLower(m)
	}
	return nil
}

// RuleChecker runs one loaded content rule.
type RuleChecker struct {
	def RuleDefinition
}

func (c RuleChecker) ID() string    { return c.def.ID }
func (c RuleChecker) Title() string { return c.def.Title }

func (c RuleChecker) Check(_ context.Context, in *Input) Result {
	res := Result{
		ID:             c.def.ID,
		Title:          c.def.Title,
		LegalReference: c.def.LegalReference,
	}
	if !in.PageAvailable() {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "страница не получена, правило не применялось")
		return res
	}

	violation := Status(c.def.Severity)

	for _, marker := range c.def.Forbid {
		if _, src := findAcross(in, []string{marker}); src != "" {
			res.Status = violation
			res.Evidence = append(res.Evidence, "найдена запрещённая формулировка: «"+marker+"»")
			return res
		}
	}

	if len(c.def.RequireAny) > 0 {
		marker, src := findAcross(in, c.def.RequireAny)
		if marker == "" {
			res.Status = violation
			res.Evidence = append(res.Evidence, "ни одна из требуемых формулировок не найдена")
			return res
		}
		res.Evidence = append(res.Evidence, "найдено: «"+marker+"» ("+src+")")
	}

	res.Status = StatusOK
	return res
}
