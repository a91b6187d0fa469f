package http

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

func (s *Server) logChange(r *http.Request, op string, tx core.Transaction) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionChanged(
		r.Context(), op, tx.UserID, tx.ID, tx.Name, tx.Amount.Cents, tx.Category, string(tx.Type))
}

// handleCreateTransaction stores a new transaction from the add form.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req TransactionRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	tx, err := s.transactions.Create(r.Context(), id, req.Input())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)
	s.logChange(r, applog.OpCreate, tx)

	NewHTMXResponse().
		TriggerTransactionChanged("created", tx.ID, tx.Type).
		TriggerFormReset().
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Transaction added").
		BodyHTML(successFragment("Added " + tx.Name + ": " + core.FormatSignedINR(tx.Amount))).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	txID := mux.Vars(r)["id"]

	var req TransactionRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	tx, err := s.transactions.Update(r.Context(), id, txID, req.Input())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.appMetrics.transactionsUpdated.Add(1)
	s.logChange(r, applog.OpUpdate, tx)

	NewHTMXResponse().
		TriggerTransactionChanged("updated", tx.ID, tx.Type).
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Transaction updated").
		BodyHTML(successFragment("Saved " + tx.Name + ": " + core.FormatSignedINR(tx.Amount))).
		Write(w)
}

// handleDeleteTransaction answers 200 with an empty body so htmx removes the
// row it targeted.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	txID := mux.Vars(r)["id"]

	existing, err := s.transactions.Get(r.Context(), id, txID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id, txID); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)
	s.logChange(r, applog.OpDelete, existing)

	NewHTMXResponse().
		TriggerTransactionChanged("deleted", existing.ID, existing.Type).
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

// handleExport downloads the user's transactions as CSV or XML.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, body, err := s.exportFor(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	writeDownload(w, format, body)
}

// exportFor renders the signed-in user's transactions, honouring ?format=
// and ?filter=.
func (s *Server) exportFor(r *http.Request) (export.Format, []byte, error) {
	id, _ := auth.FromContext(r.Context())
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return "", nil, &ValidationError{Field: "format", Message: "Format must be csv or xml"}
	}
	txs, err := s.transactions.List(r.Context(), id.UserID, core.ParseFilter(r.URL.Query().Get("filter")))
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, id.DisplayName(), txs); err != nil {
		return "", nil, err
	}
	s.appMetrics.exports.Add(1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transactions exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldUserID, id.UserID,
		"format", string(format),
		"count", len(txs))
	return format, buf.Bytes(), nil
}

func writeDownload(w http.ResponseWriter, format export.Format, body []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func successFragment(msg string) string {
	return `<div class="success">` + template.HTMLEscapeString(msg) + `</div>`
}
