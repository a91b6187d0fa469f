package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CategoryInvestment = "Investment"
	CategorySavings    = "Savings"
	Uncategorized      = "Uncategorized"
)

// Progress bar segment colors.
const (
	ColorExpenses   = "bg-red-500"
	ColorInvestment = "bg-blue-500"
	ColorSavings    = "bg-yellow-400"
)

// Segment is one slice of the allocation progress bar. Percent is relative
// to income; Width is Percent scaled so all widths fit in 100.
type Segment struct {
	Label   string
	Color   string
	Amount  Money
	Percent float64
	Width   float64
}

// CategoryAmount is an outflow total for one category.
type CategoryAmount struct {
	Name             string
	Amount           Money
	PercentOfOutflow float64
}

// Summary aggregates a list of transactions. All amounts except Net are
// non-negative.
type Summary struct {
	Income     Money
	Expenses   Money
	Investment Money
	Savings    Money
	Net        Money

	ExpensesPct   float64
	InvestmentPct float64
	SavingsPct    float64

	Segments   []Segment
	ByCategory []CategoryAmount
	Count      int
}

// Outflow is everything that left the account.
func (s Summary) Outflow() Money {
	return s.Expenses.Add(s.Investment).Add(s.Savings)
}

// Summarize reduces transactions into totals and allocation percentages.
// Negative amounts in the Investment and Savings categories are allocations,
// every other negative amount is an expense.
func Summarize(txs []Transaction) Summary {
	var s Summary
	byCat := make(map[string]int64)

	for _, t := range txs {
		s.Count++
		switch {
		case t.Amount.Cents > 0:
			s.Income.Cents += t.Amount.Cents
		case t.Amount.Cents < 0:
			abs := -t.Amount.Cents
			switch t.Category {
			case CategoryInvestment:
				s.Investment.Cents += abs
			case CategorySavings:
				s.Savings.Cents += abs
			default:
				s.Expenses.Cents += abs
			}
			name := strings.TrimSpace(t.Category)
			if name == "" {
				name = Uncategorized
			}
			byCat[name] += abs
		}
	}

	s.Net = s.Income.Sub(s.Outflow())
	s.ExpensesPct = percentOf(s.Expenses.Cents, s.Income.Cents)
	s.InvestmentPct = percentOf(s.Investment.Cents, s.Income.Cents)
	s.SavingsPct = percentOf(s.Savings.Cents, s.Income.Cents)

	s.Segments = []Segment{
		{Label: "Expenses", Color: ColorExpenses, Amount: s.Expenses, Percent: s.ExpensesPct},
		{Label: "Investment", Color: ColorInvestment, Amount: s.Investment, Percent: s.InvestmentPct},
		{Label: "Savings", Color: ColorSavings, Amount: s.Savings, Percent: s.SavingsPct},
	}
	normalizeWidths(s.Segments)

	outflow := s.Outflow().Cents
	for name, cents := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{
			Name:             name,
			Amount:           Money{Cents: cents},
			PercentOfOutflow: percentOf(cents, outflow),
		})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	return s
}

// normalizeWidths keeps the bar within 100% when outflow exceeds income.
func normalizeWidths(segs []Segment) {
	total := decimal.Zero
	for _, seg := range segs {
		total = total.Add(decimal.NewFromFloat(seg.Percent))
	}
	hundred := decimal.NewFromInt(100)
	for i := range segs {
		p := decimal.NewFromFloat(segs[i].Percent)
		if total.GreaterThan(hundred) {
			p = p.Mul(hundred).Div(total).RoundDown(2)
		}
		segs[i].Width = p.InexactFloat64()
	}
}
