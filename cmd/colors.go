package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/avoronkov/pdnaudit/internal/checks"
	"github.com/avoronkov/pdnaudit/internal/score"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorMuted   = color.New(color.FgHiBlack).SprintFunc()
)

func formatCheckStatus(status checks.Status) string {
	switch status {
	case checks.StatusOK:
		return colorSuccess(string(status))
	case checks.StatusWarn:
		return colorWarn(string(status))
	case checks.StatusFail:
		return colorError(string(status))
	case checks.StatusUnavailable:
		return colorMuted(string(status))
	default:
		return string(status)
	}
}

func formatSeverity(sev score.Severity) string {
	switch sev {
	case score.SeverityLow:
		return colorSuccess(string(sev))
	case score.SeverityMedium:
		return colorWarn(string(sev))
	case score.SeverityHigh:
		return colorError(string(sev))
	default:
		return string(sev)
	}
}

// formatRubles renders a fine bracket like "30 000 – 150 000 ₽".
func formatRubles(min, max int) string {
	return fmt.Sprintf("%s – %s ₽", groupDigits(min), groupDigits(max))
}

func groupDigits(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, c)
	}
	return string(out)
}
