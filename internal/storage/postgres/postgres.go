// Package postgres stores fintrack data in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var _ ports.Store = (*Repository)(nil)

type userRow struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Email        *string `gorm:"uniqueIndex"`
	Phone        *string `gorm:"uniqueIndex"`
	PasswordHash string
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type transactionRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"not null"`
	AmountCents int64  `gorm:"not null;index:idx_transactions_amount_created,priority:1"`
	Category    string `gorm:"not null"`
	Type        string `gorm:"not null;size:16"`
	UserID      string `gorm:"not null;size:36;index:idx_transactions_user_created,priority:1"`
	UserEmail   string
	CreatedAt   time.Time `gorm:"not null;index:idx_transactions_user_created,priority:2;index:idx_transactions_amount_created,priority:2"`
}

func (transactionRow) TableName() string { return "transactions" }

type otpRow struct {
	Phone     string `gorm:"primaryKey"`
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

func (otpRow) TableName() string { return "otp_challenges" }

type Repository struct {
	db *gorm.DB
}

// Open connects to dsn, configures the pool and migrates the schema.
func Open(dsn string) (*Repository, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&userRow{}, &transactionRow{}, &otpRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	row := toTransactionRow(t)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&transactionRow{}).Where("id = ?", t.ID).Updates(map[string]any{
		"name":         t.Name,
		"amount_cents": t.Amount.Cents,
		"category":     t.Category,
		"type":         string(t.Type),
	})
	if res.Error != nil {
		return fmt.Errorf("update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&transactionRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (r *Repository) ListPublicExpenses(ctx context.Context, limit int) ([]core.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("amount_cents < 0").
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []transactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list public expenses: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = uuid.NewString()
	u.Email = core.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row := toUserRow(u)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.User{}, fmt.Errorf("user %s: %w", u.DisplayName(), core.ErrConflict)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email = ?", core.NormalizeEmail(email))
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (core.User, error) {
	return r.getUser(ctx, "phone = ?", phone)
}

func (r *Repository) getUser(ctx context.Context, where, arg string) (core.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).First(&row, where, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.User{}, fmt.Errorf("user %s: %w", arg, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) SaveOTP(ctx context.Context, c core.OTPChallenge) error {
	row := otpRow{Phone: c.Phone, CodeHash: c.CodeHash, ExpiresAt: c.ExpiresAt.UTC(), Attempts: c.Attempts}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "attempts"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (r *Repository) GetOTP(ctx context.Context, phone string) (core.OTPChallenge, error) {
	var row otpRow
	err := r.db.WithContext(ctx).First(&row, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.OTPChallenge{}, fmt.Errorf("otp %s: %w", phone, core.ErrNotFound)
	}
	if err != nil {
		return core.OTPChallenge{}, fmt.Errorf("get otp: %w", err)
	}
	return core.OTPChallenge{Phone: row.Phone, CodeHash: row.CodeHash, ExpiresAt: row.ExpiresAt.UTC(), Attempts: row.Attempts}, nil
}

func (r *Repository) DeleteOTP(ctx context.Context, phone string) error {
	if err := r.db.WithContext(ctx).Delete(&otpRow{}, "phone = ?", phone).Error; err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func toTransactionRow(t core.Transaction) transactionRow {
	return transactionRow{
		ID:          t.ID,
		Name:        t.Name,
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Type:        string(t.Type),
		UserID:      t.UserID,
		UserEmail:   t.UserEmail,
		CreatedAt:   t.Timestamp.UTC(),
	}
}

func (row transactionRow) toCore() core.Transaction {
	return core.Transaction{
		ID:        row.ID,
		Name:      row.Name,
		Amount:    core.Money{Cents: row.AmountCents},
		Category:  row.Category,
		Type:      core.TransactionType(row.Type),
		Timestamp: row.CreatedAt.UTC(),
		UserID:    row.UserID,
		UserEmail: row.UserEmail,
	}
}

func toCoreTransactions(rows []transactionRow) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out
}

func toUserRow(u core.User) userRow {
	return userRow{
		ID:           u.ID,
		Email:        optional(u.Email),
		Phone:        optional(u.Phone),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

func (row userRow) toCore() core.User {
	u := core.User{ID: row.ID, PasswordHash: row.PasswordHash, CreatedAt: row.CreatedAt.UTC()}
	if row.Email != nil {
		u.Email = *row.Email
	}
	if row.Phone != nil {
		u.Phone = *row.Phone
	}
	return u
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
