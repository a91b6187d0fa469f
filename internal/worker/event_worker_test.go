package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type fakeLedger struct {
	rows map[string]core.Transaction
	err  error
}

func (l *fakeLedger) UpsertTransaction(_ context.Context, t core.Transaction) error {
	if l.err != nil {
		return l.err
	}
	l.rows[t.ID] = t
	return nil
}

func (l *fakeLedger) RemoveTransaction(_ context.Context, id string) error {
	if l.err != nil {
		return l.err
	}
	delete(l.rows, id)
	return nil
}

type fakeNotifier struct {
	actions []amqp.EventAction
	err     error
}

func (n *fakeNotifier) NotifyTransaction(_ context.Context, e *amqp.TransactionEvent) error {
	n.actions = append(n.actions, e.Action)
	return n.err
}

func event(action amqp.EventAction, name string) *amqp.TransactionEvent {
	return amqp.NewTransactionEvent(action, core.Transaction{
		ID: "t1", Name: name, Amount: core.Money{Cents: -179900}, Category: "Rent",
		Type: core.TypeExpense, Timestamp: time.Now().UTC(), UserID: "u1", UserEmail: "asha@example.com",
	})
}

func TestEventWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{rows: map[string]core.Transaction{}}
	notifier := &fakeNotifier{}
	w := NewEventWorker(ledger, notifier)

	if err := w.HandleEvent(ctx, event(amqp.ActionCreated, "Rent")); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := w.HandleEvent(ctx, event(amqp.ActionUpdated, "House rent")); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if len(ledger.rows) != 1 || ledger.rows["t1"].Name != "House rent" {
		t.Fatalf("ledger rows = %+v", ledger.rows)
	}
	if err := w.HandleEvent(ctx, event(amqp.ActionDeleted, "House rent")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if len(ledger.rows) != 0 {
		t.Fatalf("row should be removed, got %+v", ledger.rows)
	}
	if len(notifier.actions) != 3 {
		t.Errorf("notifications = %v", notifier.actions)
	}
}

func TestEventWorker_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger error is returned", func(t *testing.T) {
		notifier := &fakeNotifier{}
		w := NewEventWorker(&fakeLedger{rows: map[string]core.Transaction{}, err: errors.New("quota")}, notifier)
		if err := w.HandleEvent(ctx, event(amqp.ActionCreated, "Rent")); err == nil {
			t.Fatal("expected ledger error")
		}
		if len(notifier.actions) != 0 {
			t.Error("notifier should not run when the ledger fails")
		}
	})

	t.Run("notifier error is swallowed", func(t *testing.T) {
		w := NewEventWorker(nil, &fakeNotifier{err: errors.New("discord down")})
		if err := w.HandleEvent(ctx, event(amqp.ActionCreated, "Rent")); err != nil {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("nil collaborators", func(t *testing.T) {
		if err := NewEventWorker(nil, nil).HandleEvent(ctx, event(amqp.ActionDeleted, "Rent")); err != nil {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		e := event(amqp.ActionCreated, "Rent")
		e.Action = "archived"
		err := NewEventWorker(&fakeLedger{rows: map[string]core.Transaction{}}, nil).HandleEvent(ctx, e)
		if !errors.Is(err, amqp.ErrPermanent) {
			t.Fatalf("error = %v, want a permanent failure", err)
		}
	})
}
