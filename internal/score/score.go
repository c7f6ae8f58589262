// Package score turns a battery outcome into the headline numbers of a
// report: a 0-100 score and a severity bucket.
package score

import (
	"math"

	"github.com/avoronkov/pdnaudit/internal/checks"
)

// Severity bucket of an audit.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Thresholds steer severity bucketing. The defaults reproduce long-standing
// product behavior and carry no legal meaning; override them per deployment
// rather than editing the formula.
type Thresholds struct {
	HighFailCount   int `json:"high_fail_count" mapstructure:"high_fail_count"`
	MediumWarnCount int `json:"medium_warn_count" mapstructure:"medium_warn_count"`
}

// DefaultThresholds: more than three failures is a high-severity audit,
// more than five warnings a medium one.
var DefaultThresholds = Thresholds{HighFailCount: 3, MediumWarnCount: 5}

// Summary is the aggregate view of one battery run.
type Summary struct {
	Score    int      `json:"score"`
	Severity Severity `json:"severity"`

	OK          int `json:"ok"`
	Warn        int `json:"warn"`
	Fail        int `json:"fail"`
	NA          int `json:"na"`
	Unavailable int `json:"unavailable"`
	Total       int `json:"total"`
}

// Summarize counts statuses and derives the score and severity. Checks
// without a verdict (na, unavailable) stay in the denominator: an audit
// that could not inspect half the site must not score like one that did.
func Summarize(results []checks.Result, th Thresholds) Summary {
	s := Summary{Total: len(results)}
	for _, res := range results {
		switch res.Status {
		case checks.StatusOK:
			s.OK++
		case checks.StatusWarn:
			s.Warn++
		case checks.StatusFail:
			s.Fail++
		case checks.StatusNA:
			s.NA++
		case checks.StatusUnavailable:
			s.Unavailable++
		}
	}
	s.Score = Compute(s.OK, s.Total)
	s.Severity = th.Severity(s.Fail, s.Warn)
	return s
}

// Compute is the score formula: the passed share of all checks, rounded to
// a whole percent.
func Compute(okCount, totalCount int) int {
	if totalCount <= 0 {
		return 0
	}
	return int(math.Round(float64(okCount) / float64(totalCount) * 100))
}

// Severity buckets a battery outcome. Failures dominate warnings.
func (th Thresholds) Severity(failCount, warnCount int) Severity {
	switch {
	case failCount > th.HighFailCount:
		return SeverityHigh
	case warnCount > th.MediumWarnCount:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
