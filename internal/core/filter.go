package core

import (
	"strings"
	"time"
)

// Filter selects transactions by the sign of their amount.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterIncome  Filter = "income"
	FilterExpense Filter = "expense"
)

// ParseFilter falls back to FilterAll for empty or unknown values.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterIncome:
		return FilterIncome
	case FilterExpense:
		return FilterExpense
	default:
		return FilterAll
	}
}

// FilterTransactions keeps order and partitions by sign, not by the type tag.
func FilterTransactions(txs []Transaction, f Filter) []Transaction {
	if f == FilterAll {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if (f == FilterIncome && t.IsIncome()) || (f == FilterExpense && t.IsExpense()) {
			out = append(out, t)
		}
	}
	return out
}

// Period bounds the transactions a summary covers.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodAll
	}
}

// Label is the text shown on the period selector.
func (p Period) Label() string {
	switch p {
	case PeriodMonth:
		return "This Month"
	case PeriodYear:
		return "This Year"
	default:
		return "All Time"
	}
}

// FilterByPeriod keeps transactions in the calendar month or year of now,
// evaluated in now's location.
func FilterByPeriod(txs []Transaction, p Period, now time.Time) []Transaction {
	if p == PeriodAll {
		return txs
	}
	loc := now.Location()
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		ts := t.Timestamp.In(loc)
		if ts.Year() != now.Year() {
			continue
		}
		if p == PeriodMonth && ts.Month() != now.Month() {
			continue
		}
		out = append(out, t)
	}
	return out
}
