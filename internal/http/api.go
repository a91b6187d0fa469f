package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type transactionJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
}

type feedItemJSON struct {
	Initial   string    `json:"initial"`
	Name      string    `json:"name"`
	Amount    string    `json:"amount"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

type segmentJSON struct {
	Label   string  `json:"label"`
	Amount  string  `json:"amount"`
	Percent float64 `json:"percent"`
}

type categoryJSON struct {
	Name             string  `json:"name"`
	Amount           string  `json:"amount"`
	PercentOfOutflow float64 `json:"percentOfOutflow"`
}

type summaryJSON struct {
	Period        string         `json:"period"`
	Income        string         `json:"income"`
	Expenses      string         `json:"expenses"`
	Investment    string         `json:"investment"`
	Savings       string         `json:"savings"`
	Net           string         `json:"net"`
	ExpensesPct   float64        `json:"expensesPct"`
	InvestmentPct float64        `json:"investmentPct"`
	SavingsPct    float64        `json:"savingsPct"`
	Count         int            `json:"count"`
	Segments      []segmentJSON  `json:"segments"`
	ByCategory    []categoryJSON `json:"byCategory"`
}

type sessionJSON struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
}

func decimalString(m core.Money) string {
	return m.Decimal().StringFixed(2)
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Name:        t.Name,
		Amount:      decimalString(t.Amount),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Type:        string(t.Type),
		Timestamp:   t.Timestamp,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = toTransactionJSON(t)
	}
	return out
}

func toSummaryJSON(p core.Period, s core.Summary) summaryJSON {
	out := summaryJSON{
		Period:        string(p),
		Income:        decimalString(s.Income),
		Expenses:      decimalString(s.Expenses),
		Investment:    decimalString(s.Investment),
		Savings:       decimalString(s.Savings),
		Net:           decimalString(s.Net),
		ExpensesPct:   s.ExpensesPct,
		InvestmentPct: s.InvestmentPct,
		SavingsPct:    s.SavingsPct,
		Count:         s.Count,
		Segments:      make([]segmentJSON, len(s.Segments)),
		ByCategory:    make([]categoryJSON, len(s.ByCategory)),
	}
	for i, seg := range s.Segments {
		out.Segments[i] = segmentJSON{Label: seg.Label, Amount: decimalString(seg.Amount), Percent: seg.Percent}
	}
	for i, c := range s.ByCategory {
		out.ByCategory[i] = categoryJSON{Name: c.Name, Amount: decimalString(c.Amount), PercentOfOutflow: c.PercentOfOutflow}
	}
	return out
}

func toSessionJSON(sess services.Session) sessionJSON {
	return sessionJSON{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    sess.User.ID,
		Email:     sess.User.Email,
		Phone:     sess.User.Phone,
	}
}

// apiRoutes mounts the JSON API. Sign-in endpoints return a bearer token;
// everything else requires one (or the session cookie).
func (s *Server) apiRoutes(api *mux.Router) {
	api.Use(applog.ComponentMiddleware(applog.ComponentAPI))

	api.Handle("/auth/signup", s.throttleAuth(s.apiSignUp, s.apiRateLimited)).Methods(http.MethodPost)
	api.Handle("/auth/signin", s.throttleAuth(s.apiSignIn, s.apiRateLimited)).Methods(http.MethodPost)
	api.Handle("/auth/otp", s.throttleAuth(s.apiRequestOTP, s.apiRateLimited)).Methods(http.MethodPost)
	api.Handle("/auth/otp/verify", s.throttleAuth(s.apiVerifyOTP, s.apiRateLimited)).Methods(http.MethodPost)
	api.HandleFunc("/cashflow", s.apiCashflow).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(auth.RequireAPI)
	authed.HandleFunc("/transactions", s.apiListTransactions).Methods(http.MethodGet)
	authed.HandleFunc("/transactions", s.apiCreateTransaction).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/export", s.apiExport).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/{id}", s.apiGetTransaction).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/{id}", s.apiUpdateTransaction).Methods(http.MethodPut)
	authed.HandleFunc("/transactions/{id}", s.apiDeleteTransaction).Methods(http.MethodDelete)
	authed.HandleFunc("/summary", s.apiSummary).Methods(http.MethodGet)
}

func (s *Server) apiRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests, slow down"})
}

func (s *Server) apiSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.signIns.Add(1)
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

func (s *Server) apiSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.appMetrics.failedSignIns.Add(1)
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.signIns.Add(1)
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) apiRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	phone, err := s.auth.RequestOTP(r.Context(), req.Phone)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"phone": phone, "status": "sent"})
}

func (s *Server) apiVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPVerifyRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	sess, err := s.auth.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		s.appMetrics.failedSignIns.Add(1)
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.signIns.Add(1)
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) apiCashflow(w http.ResponseWriter, r *http.Request) {
	items, err := s.transactions.PublicFeed(r.Context(), s.opts.FeedLimit)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	out := make([]feedItemJSON, len(items))
	for i, t := range items {
		out[i] = feedItemJSON{
			Initial:   t.Initial(),
			Name:      t.Name,
			Amount:    decimalString(t.Amount),
			Category:  t.Category,
			Timestamp: t.Timestamp,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	params := ParseListParams(r.URL.Query())
	txs, err := s.transactions.List(r.Context(), id.UserID, params.Filter)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter": string(params.Filter),
		"items":  toTransactionsJSON(txs),
	})
}

func (s *Server) apiGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	tx, err := s.transactions.Get(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) apiCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req TransactionRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	tx, err := s.transactions.Create(r.Context(), id, req.Input())
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)
	s.logChange(r, applog.OpCreate, tx)
	w.Header().Set("Location", "/api/v1/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) apiUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req TransactionRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	tx, err := s.transactions.Update(r.Context(), id, mux.Vars(r)["id"], req.Input())
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.transactionsUpdated.Add(1)
	s.logChange(r, applog.OpUpdate, tx)
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) apiDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	txID := mux.Vars(r)["id"]
	existing, err := s.transactions.Get(r.Context(), id, txID)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id, txID); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)
	s.logChange(r, applog.OpDelete, existing)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p := ParseListParams(r.URL.Query()).Period
	sum, err := s.transactions.Summary(r.Context(), id.UserID, p)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(p, sum))
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	format, body, err := s.exportFor(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeDownload(w, format, body)
}
