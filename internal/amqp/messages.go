package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventAction is the kind of change a TransactionEvent reports.
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionUpdated EventAction = "updated"
	ActionDeleted EventAction = "deleted"
)

// TransactionEvent carries a full snapshot so consumers never read the
// database. For deletions the snapshot is the last known state.
type TransactionEvent struct {
	ID          string      `json:"id"`
	Action      EventAction `json:"action"`
	UserID      string      `json:"user_id"`
	UserEmail   string      `json:"user_email,omitempty"`
	Name        string      `json:"name"`
	AmountCents int64       `json:"amount_cents"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// NewTransactionEvent snapshots t for action.
func NewTransactionEvent(action EventAction, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		ID:          t.ID,
		Action:      action,
		UserID:      t.UserID,
		UserEmail:   t.UserEmail,
		Name:        t.Name,
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Type:        string(t.Type),
		Timestamp:   t.Timestamp,
		OccurredAt:  time.Now().UTC(),
	}
}

// Transaction rebuilds the domain value from the snapshot.
func (e *TransactionEvent) Transaction() core.Transaction {
	return core.Transaction{
		ID:        e.ID,
		Name:      e.Name,
		Amount:    core.Money{Cents: e.AmountCents},
		Category:  e.Category,
		Type:      core.TransactionType(e.Type),
		Timestamp: e.Timestamp,
		UserID:    e.UserID,
		UserEmail: e.UserEmail,
	}
}

func (e *TransactionEvent) Validate() error {
	if e.ID == "" {
		return errors.New("missing transaction id")
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
