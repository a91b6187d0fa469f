// Package ports declares the storage interfaces the services depend on.
// Implementations live under internal/storage.
package ports

import (
	"context"

	"fintrack/internal/core"
)

type (
	// TransactionStore persists transactions. Implementations assign IDs.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error

		// ListByUser returns the user's transactions, newest first.
		ListByUser(ctx context.Context, userID string) ([]core.Transaction, error)

		// ListPublicExpenses returns expenses of all users, newest first.
		// A limit <= 0 means no limit.
		ListPublicExpenses(ctx context.Context, limit int) ([]core.Transaction, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByPhone(ctx context.Context, phone string) (core.User, error)
	}

	// OTPStore keeps at most one challenge per phone.
	OTPStore interface {
		SaveOTP(ctx context.Context, c core.OTPChallenge) error
		GetOTP(ctx context.Context, phone string) (core.OTPChallenge, error)
		DeleteOTP(ctx context.Context, phone string) error
	}

	Store interface {
		TransactionStore
		UserStore
		OTPStore
		Ping(ctx context.Context) error
		Close() error
	}
)
