package core

import (
	"testing"
	"time"
)

func tx(name, category string, cents int64) Transaction {
	typ := TypeExpense
	if cents > 0 {
		typ = TypeIncome
	}
	return Transaction{Name: name, Category: category, Amount: Money{Cents: cents}, Type: typ, UserID: "u1"}
}

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		tx("Salary", "Salary", 10000000),
		tx("Rent", "Rent", -2500000),
		tx("Food", "Groceries", -500000),
		tx("SIP", CategoryInvestment, -2000000),
		tx("RD", CategorySavings, -1000000),
		tx("Coffee", "Coffee", -100000),
	}
	s := Summarize(txs)

	if s.Income.Cents != 10000000 {
		t.Errorf("Income = %d", s.Income.Cents)
	}
	if s.Expenses.Cents != 3100000 {
		t.Errorf("Expenses = %d", s.Expenses.Cents)
	}
	if s.Investment.Cents != 2000000 {
		t.Errorf("Investment = %d", s.Investment.Cents)
	}
	if s.Savings.Cents != 1000000 {
		t.Errorf("Savings = %d", s.Savings.Cents)
	}
	if s.Net.Cents != 3900000 {
		t.Errorf("Net = %d", s.Net.Cents)
	}
	if s.ExpensesPct != 31 || s.InvestmentPct != 20 || s.SavingsPct != 10 {
		t.Errorf("pcts = %v %v %v", s.ExpensesPct, s.InvestmentPct, s.SavingsPct)
	}
	if s.Count != 6 {
		t.Errorf("Count = %d", s.Count)
	}

	wantSegs := []struct {
		label, color string
		width        float64
	}{
		{"Expenses", ColorExpenses, 31},
		{"Investment", ColorInvestment, 20},
		{"Savings", ColorSavings, 10},
	}
	if len(s.Segments) != len(wantSegs) {
		t.Fatalf("segments = %d", len(s.Segments))
	}
	for i, w := range wantSegs {
		got := s.Segments[i]
		if got.Label != w.label || got.Color != w.color || got.Width != w.width {
			t.Errorf("segment %d = %+v", i, got)
		}
	}

	if s.ByCategory[0].Name != "Rent" || s.ByCategory[0].Amount.Cents != 2500000 {
		t.Errorf("top category = %+v", s.ByCategory[0])
	}
	if s.ByCategory[len(s.ByCategory)-1].Name != "Coffee" {
		t.Errorf("last category = %+v", s.ByCategory[len(s.ByCategory)-1])
	}
	if s.ByCategory[0].PercentOfOutflow != 40.98 {
		t.Errorf("rent share = %v", s.ByCategory[0].PercentOfOutflow)
	}
}

func TestSummarizeNoIncome(t *testing.T) {
	s := Summarize([]Transaction{tx("Rent", "Rent", -1000)})
	if s.ExpensesPct != 0 || s.InvestmentPct != 0 || s.SavingsPct != 0 {
		t.Fatalf("expected zero percentages without income: %+v", s)
	}
	if s.Net.Cents != -1000 {
		t.Fatalf("Net = %d", s.Net.Cents)
	}
	for _, seg := range s.Segments {
		if seg.Width != 0 {
			t.Fatalf("expected zero widths, got %+v", seg)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Income.Cents != 0 || s.Net.Cents != 0 || len(s.ByCategory) != 0 || len(s.Segments) != 3 {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func TestSummarizeOverspendNormalizesWidths(t *testing.T) {
	s := Summarize([]Transaction{
		tx("Salary", "Salary", 1000),
		tx("Rent", "Rent", -1500),
		tx("SIP", CategoryInvestment, -500),
	})
	if s.ExpensesPct != 150 || s.InvestmentPct != 50 {
		t.Fatalf("raw pcts = %v %v", s.ExpensesPct, s.InvestmentPct)
	}
	var total float64
	for _, seg := range s.Segments {
		total += seg.Width
	}
	if total > 100 {
		t.Fatalf("widths sum to %v", total)
	}
	if s.Segments[0].Width != 75 || s.Segments[1].Width != 25 {
		t.Fatalf("widths = %v %v", s.Segments[0].Width, s.Segments[1].Width)
	}
}

func TestSummarizePartitionsBySign(t *testing.T) {
	txs := []Transaction{
		tx("a", "Salary", 300),
		tx("b", "Gift", 200),
		tx("c", "Rent", -100),
		tx("d", CategorySavings, -50),
	}
	s := Summarize(txs)
	var in, out int64
	for _, x := range txs {
		if x.Amount.Cents > 0 {
			in += x.Amount.Cents
		} else {
			out -= x.Amount.Cents
		}
	}
	if s.Income.Cents != in || s.Outflow().Cents != out {
		t.Fatalf("partition mismatch: income %d/%d outflow %d/%d", s.Income.Cents, in, s.Outflow().Cents, out)
	}
}

func TestFilterTransactions(t *testing.T) {
	txs := []Transaction{tx("a", "x", 100), tx("b", "x", -100), tx("c", "x", 200)}

	if got := FilterTransactions(txs, FilterAll); len(got) != 3 {
		t.Fatalf("all = %d", len(got))
	}
	inc := FilterTransactions(txs, FilterIncome)
	if len(inc) != 2 || inc[0].Name != "a" || inc[1].Name != "c" {
		t.Fatalf("income = %+v", inc)
	}
	exp := FilterTransactions(txs, FilterExpense)
	if len(exp) != 1 || exp[0].Name != "b" {
		t.Fatalf("expense = %+v", exp)
	}
	if ParseFilter("INCOME") != FilterIncome || ParseFilter("bogus") != FilterAll {
		t.Fatalf("ParseFilter mismatch")
	}
}

func TestFilterByPeriod(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	at := func(y int, m time.Month, d int) Transaction {
		x := tx("t", "x", -1)
		x.Timestamp = time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
		return x
	}
	txs := []Transaction{at(2026, time.October, 1), at(2026, time.March, 5), at(2025, time.October, 10)}

	if got := FilterByPeriod(txs, PeriodMonth, now); len(got) != 1 {
		t.Fatalf("month = %d", len(got))
	}
	if got := FilterByPeriod(txs, PeriodYear, now); len(got) != 2 {
		t.Fatalf("year = %d", len(got))
	}
	if got := FilterByPeriod(txs, PeriodAll, now); len(got) != 3 {
		t.Fatalf("all = %d", len(got))
	}
}
