package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

const (
	DefaultCategory = "Groceries"

	MaxNameLength     = 100
	MaxCategoryLength = 50
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. Amount is signed:
	// negative for expenses, positive for income.
	Transaction struct {
		ID        string
		Name      string
		Amount    Money
		Category  string
		Type      TransactionType
		Timestamp time.Time
		UserID    string
		UserEmail string
	}

	// TransactionInput carries raw user input for create and edit forms.
	TransactionInput struct {
		Name     string
		Amount   string
		Category string
		Type     string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrSignMismatch    = errors.New("amount sign does not match transaction type")
	ErrMissingOwner    = errors.New("missing transaction owner")

	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrForbidden = errors.New("forbidden")
)

// ParseTransactionType maps form input to a type. Empty input means expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TypeExpense):
		return TypeExpense, nil
	case string(TypeIncome):
		return TypeIncome, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

func (t TransactionType) IsValid() bool {
	return t == TypeExpense || t == TypeIncome
}

func (t TransactionType) String() string { return string(t) }

// SignAmount forces the sign of an amount to match the transaction type.
func SignAmount(m Money, t TransactionType) Money {
	abs := m.Abs()
	if t == TypeExpense {
		return Money{Cents: -abs.Cents}
	}
	return abs
}

// Build turns raw input into a transaction without owner or timestamp.
func (in TransactionInput) Build() (Transaction, error) {
	typ, err := ParseTransactionType(in.Type)
	if err != nil {
		return Transaction{}, err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	tx := Transaction{
		Name:     strings.TrimSpace(in.Name),
		Amount:   SignAmount(amount, typ),
		Category: category,
		Type:     typ,
	}
	if err := tx.validateContent(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Validate checks every invariant of a stored transaction.
func (t Transaction) Validate() error {
	if err := t.validateContent(); err != nil {
		return err
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingOwner
	}
	return nil
}

func (t Transaction) validateContent() error {
	n := utf8.RuneCountInString(t.Name)
	if strings.TrimSpace(t.Name) == "" || n > MaxNameLength {
		return ErrInvalidName
	}
	if strings.TrimSpace(t.Category) == "" || utf8.RuneCountInString(t.Category) > MaxCategoryLength {
		return ErrInvalidCategory
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if (t.Type == TypeExpense) != (t.Amount.Cents < 0) {
		return ErrSignMismatch
	}
	return nil
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool { return t.Amount.Cents < 0 }

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool { return t.Amount.Cents > 0 }

// Initial is the upper-cased first rune of the name, used as an avatar.
func (t Transaction) Initial() string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(t.Name))
	if r == utf8.RuneError {
		return "?"
	}
	return strings.ToUpper(string(r))
}
