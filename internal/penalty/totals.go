package penalty

import (
	"github.com/avoronkov/pdnaudit/internal/checks"
)

// Amount is a summed fine bracket in rubles.
type Amount struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Totals is the aggregated fine exposure of one audit.
type Totals struct {
	// Subjects holds the summed bracket per liable-person category.
	Subjects map[Subject]Amount `json:"subjects"`

	// UniqueViolations counts deduplicated violations; TriggeredKeys lists
	// their aggregation keys in the order the battery surfaced them.
	UniqueViolations int      `json:"unique_violations"`
	TriggeredKeys    []string `json:"triggered_keys,omitempty"`

	// Items carries the triggered penalty items so reports can show law
	// basis and remediation without a second table lookup.
	Items []Item `json:"items,omitempty"`
}

// CalcTotals folds check results into fine totals. Results must arrive in a
// stable order: the first check of an aggregation group claims the key, the
// rest of the group is skipped, which keeps totals reproducible.
func CalcTotals(results []checks.Result) Totals {
	totals := Totals{Subjects: make(map[Subject]Amount)}
	seen := make(map[string]bool, len(items))

	for _, res := range results {
		item := Attach(res.ID, res.Status)
		if item == nil {
			continue
		}
		if seen[item.AggregationKey] {
			continue
		}
		seen[item.AggregationKey] = true

		totals.UniqueViolations++
		totals.TriggeredKeys = append(totals.TriggeredKeys, item.AggregationKey)
		totals.Items = append(totals.Items, *item)

		for _, r := range item.Ranges {
			sum := totals.Subjects[r.Subject]
			sum.Min += r.MinAmount
			sum.Max += r.MaxAmount
			totals.Subjects[r.Subject] = sum
		}
	}
	return totals
}
