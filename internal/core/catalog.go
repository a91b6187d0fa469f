package core

// CategoryGroup is a named set of suggested categories.
type CategoryGroup struct {
	Name       string
	Categories []string
}

var catalog = []CategoryGroup{
	{Name: "Home", Categories: []string{"Rent", "Groceries"}},
	{Name: "Leisure", Categories: []string{"Streaming", "Restaurant", "Coffee", "Travel"}},
	{Name: "Allocation", Categories: []string{CategoryInvestment, CategorySavings}},
	{Name: "Income", Categories: []string{"Salary"}},
}

// CategoryGroups returns a copy of the suggestion catalog.
func CategoryGroups() []CategoryGroup {
	out := make([]CategoryGroup, len(catalog))
	for i, g := range catalog {
		out[i] = CategoryGroup{Name: g.Name, Categories: append([]string(nil), g.Categories...)}
	}
	return out
}

// AllCategories flattens the catalog in display order.
func AllCategories() []string {
	var out []string
	for _, g := range catalog {
		out = append(out, g.Categories...)
	}
	return out
}
