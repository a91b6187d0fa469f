package http

import (
	"html/template"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// sanitizeInput removes control characters except tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// amountInput renders an absolute amount for the edit form, e.g. "1799.50".
func amountInput(m core.Money) string {
	return m.Abs().Decimal().StringFixed(2)
}

// cssWidth renders a progress bar width for a style attribute.
func cssWidth(p float64) template.CSS {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return template.CSS("width: " + strconv.FormatFloat(p, 'f', 2, 64) + "%")
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inr":         core.FormatINR,
		"signedINR":   core.FormatSignedINR,
		"dateIN":      core.FormatDateIN,
		"percent":     core.FormatPercent,
		"width":       cssWidth,
		"amountInput": amountInput,
		"isoTime":     isoTime,
	}
}
