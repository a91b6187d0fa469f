package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
)

// Notifier announces a transaction change, e.g. in a chat channel.
type Notifier interface {
	NotifyTransaction(ctx context.Context, e *amqp.TransactionEvent) error
}

// EventWorker applies transaction events from the bus to the ledger mirror
// and the notifier. Either may be nil.
type EventWorker struct {
	ledger   sheets.LedgerWriter
	notifier Notifier
}

func NewEventWorker(ledger sheets.LedgerWriter, notifier Notifier) *EventWorker {
	return &EventWorker{ledger: ledger, notifier: notifier}
}

// HandleEvent processes one event. A ledger error is returned so the message
// is retried; a notifier error is only logged.
func (w *EventWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", e.ID,
		"action", e.Action)

	if err := w.syncLedger(ctx, e); err != nil {
		return err
	}

	if w.notifier != nil {
		if err := w.notifier.NotifyTransaction(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to send notification",
				"id", e.ID,
				"error", err)
		}
	}
	return nil
}

func (w *EventWorker) syncLedger(ctx context.Context, e *amqp.TransactionEvent) error {
	if w.ledger == nil {
		slog.DebugContext(ctx, "No ledger configured, skipping", "id", e.ID)
		return nil
	}

	switch e.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		if err := w.ledger.UpsertTransaction(ctx, e.Transaction()); err != nil {
			return fmt.Errorf("upsert ledger row: %w", err)
		}
	case amqp.ActionDeleted:
		if err := w.ledger.RemoveTransaction(ctx, e.ID); err != nil {
			return fmt.Errorf("remove ledger row: %w", err)
		}
	default:
		return fmt.Errorf("unknown action %q: %w", e.Action, amqp.ErrPermanent)
	}

	slog.InfoContext(ctx, "Ledger synced",
		"id", e.ID,
		"action", e.Action,
		"amount_cents", e.AmountCents)
	return nil
}
