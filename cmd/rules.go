package cmd

import (
	"fmt"
	"os"

	"github.com/avoronkov/pdnaudit/internal/checks"
)

// loadExtraRules picks up user-supplied rule checkers from the data
// directory (<data-dir>/rules/*.json). A missing directory means no extra
// rules; broken definitions are reported on stderr and skipped.
func loadExtraRules() []checks.Checker {
	rules, warnings, err := checks.LoadRules(getRulesDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorWarn("Warning: failed to load extra rules:"), err)
		return nil
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", colorWarn("Warning:"), w)
	}
	return rules
}
