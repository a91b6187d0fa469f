package http

import (
	"net/http"

	"fintrack/internal/core"
)

type feedView struct {
	Items []core.Transaction
	Limit int
}

type cashflowPage struct {
	pageData
	Feed feedView
}

// handleCashflow renders the public feed of recent expenses across all users.
func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	items, err := s.transactions.PublicFeed(r.Context(), s.opts.FeedLimit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "cashflow.html", cashflowPage{
		pageData: newPageData(r, "Cashflow", "cashflow"),
		Feed:     feedView{Items: items, Limit: s.opts.FeedLimit},
	})
}

func (s *Server) handleFeedPartial(w http.ResponseWriter, r *http.Request) {
	items, err := s.transactions.PublicFeed(r.Context(), s.opts.FeedLimit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "feed", feedView{Items: items, Limit: s.opts.FeedLimit})
}
