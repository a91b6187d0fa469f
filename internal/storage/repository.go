package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

const txColumns = `id, name, amount_cents, category, type, user_id, user_email, created_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Amount.Cents, t.Category, string(t.Type), t.UserID, t.UserEmail, t.Timestamp.UTC().UnixNano())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET name = ?, amount_cents = ?, category = ?, type = ? WHERE id = ?`,
		t.Name, t.Amount.Cents, t.Category, string(t.Type), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction", id)
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListPublicExpenses(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE amount_cents < 0 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list public expenses: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = uuid.NewString()
	u.Email = core.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, phone, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, nullable(u.Email), nullable(u.Phone), u.PasswordHash, u.CreatedAt.UTC().UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("user %s: %w", u.DisplayName(), core.ErrConflict)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `email = ?`, core.NormalizeEmail(email))
}

func (r *SQLiteRepository) GetUserByPhone(ctx context.Context, phone string) (core.User, error) {
	return r.getUser(ctx, `phone = ?`, phone)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where, arg string) (core.User, error) {
	var (
		u            core.User
		email, phone sql.NullString
		createdAt    int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, phone, password_hash, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &email, &phone, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", arg, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Email, u.Phone = email.String, phone.String
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return u, nil
}

func (r *SQLiteRepository) SaveOTP(ctx context.Context, c core.OTPChallenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (phone, code_hash, expires_at, attempts) VALUES (?, ?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET code_hash = excluded.code_hash, expires_at = excluded.expires_at, attempts = excluded.attempts`,
		c.Phone, c.CodeHash, c.ExpiresAt.UTC().UnixNano(), c.Attempts)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetOTP(ctx context.Context, phone string) (core.OTPChallenge, error) {
	var (
		c         core.OTPChallenge
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT phone, code_hash, expires_at, attempts FROM otp_challenges WHERE phone = ?`, phone).
		Scan(&c.Phone, &c.CodeHash, &expiresAt, &c.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OTPChallenge{}, fmt.Errorf("otp %s: %w", phone, core.ErrNotFound)
	}
	if err != nil {
		return core.OTPChallenge{}, fmt.Errorf("get otp: %w", err)
	}
	c.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return c, nil
}

func (r *SQLiteRepository) DeleteOTP(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE phone = ?`, phone); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		typ       string
		createdAt int64
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Amount.Cents, &t.Category, &typ, &t.UserID, &t.UserEmail, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Timestamp = time.Unix(0, createdAt).UTC()
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
