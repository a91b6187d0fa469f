package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	CurrencySymbol = "₹"
	JustNow        = "Just now"
)

// DisplayLocation is the zone dates are rendered in.
var DisplayLocation = time.FixedZone("IST", 5*60*60+30*60)

// FormatINR renders money the way en-IN formats INR: lakh/crore digit
// grouping and two decimals, e.g. ₹1,23,456.78 and -₹1,799.00.
func FormatINR(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	rupees := groupIndian(strconv.FormatInt(cents/100, 10))
	paise := cents % 100
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(CurrencySymbol)
	b.WriteString(rupees)
	b.WriteByte('.')
	if paise < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(paise, 10))
	return b.String()
}

// FormatSignedINR prefixes income with a plus sign.
func FormatSignedINR(m Money) string {
	if m.Cents > 0 {
		return "+" + FormatINR(m)
	}
	return FormatINR(m)
}

// groupIndian groups the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatDateIN renders a timestamp as "19 October 2026". A zero time is a
// record whose server timestamp has not been assigned yet.
func FormatDateIN(t time.Time) string {
	if t.IsZero() {
		return JustNow
	}
	return t.In(DisplayLocation).Format("2 January 2006")
}

// FormatPercent renders a percentage with at most one decimal place.
func FormatPercent(p float64) string {
	s := strconv.FormatFloat(p, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "%"
}
