package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type summaryView struct {
	Summary core.Summary
	Period  core.Period
	Periods []option
}

type listView struct {
	Items   []core.Transaction
	Filter  core.Filter
	Filters []option
}

type formView struct {
	Tx         *core.Transaction
	Values     TransactionRequest
	Groups     []core.CategoryGroup
	Error      string
	IsEdit     bool
	SubmitPath string
}

type dashboardPage struct {
	pageData
	Summary summaryView
	List    listView
	Form    formView
}

func periodOptions(selected core.Period) []option {
	periods := []core.Period{core.PeriodAll, core.PeriodMonth, core.PeriodYear}
	out := make([]option, len(periods))
	for i, p := range periods {
		out[i] = option{Value: string(p), Label: p.Label(), Selected: p == selected}
	}
	return out
}

func filterOptions(selected core.Filter) []option {
	return []option{
		{Value: string(core.FilterAll), Label: "All", Selected: selected == core.FilterAll},
		{Value: string(core.FilterIncome), Label: "Income", Selected: selected == core.FilterIncome},
		{Value: string(core.FilterExpense), Label: "Expense", Selected: selected == core.FilterExpense},
	}
}

func newFormView() formView {
	return formView{
		Values:     TransactionRequest{Type: string(core.TypeExpense)},
		Groups:     core.CategoryGroups(),
		SubmitPath: "/transactions",
	}
}

func editFormView(tx core.Transaction) formView {
	return formView{
		Tx: &tx,
		Values: TransactionRequest{
			Name:     tx.Name,
			Amount:   amountInput(tx.Amount),
			Category: tx.Category,
			Type:     string(tx.Type),
		},
		Groups:     core.CategoryGroups(),
		IsEdit:     true,
		SubmitPath: "/transactions/" + tx.ID,
	}
}

func (s *Server) loadSummary(r *http.Request, userID string, p core.Period) (summaryView, error) {
	sum, err := s.transactions.Summary(r.Context(), userID, p)
	if err != nil {
		return summaryView{}, err
	}
	return summaryView{Summary: sum, Period: p, Periods: periodOptions(p)}, nil
}

func (s *Server) loadList(r *http.Request, userID string, f core.Filter) (listView, error) {
	items, err := s.transactions.List(r.Context(), userID, f)
	if err != nil {
		return listView{}, err
	}
	return listView{Items: items, Filter: f, Filters: filterOptions(f)}, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	params := ParseListParams(r.URL.Query())

	summary, err := s.loadSummary(r, id.UserID, params.Period)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	list, err := s.loadList(r, id.UserID, params.Filter)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		pageData: newPageData(r, "Dashboard", "dashboard"),
		Summary:  summary,
		List:     list,
		Form:     newFormView(),
	})
}

// handleSummaryPartial renders the summary cards and progress bar.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	view, err := s.loadSummary(r, id.UserID, ParseListParams(r.URL.Query()).Period)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "summary", view)
}

func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	view, err := s.loadList(r, id.UserID, ParseListParams(r.URL.Query()).Filter)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "transactions", view)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	tx, err := s.transactions.Get(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_form", editFormView(tx))
}
