package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// DemoEmail owns the transactions loaded by NewFromFile.
const DemoEmail = "demo@fintrack.local"

type record struct {
	tx  core.Transaction
	seq int64
}

// Store keeps everything in process memory. It is the default backend and
// the one tests run against.
type Store struct {
	mu    sync.RWMutex
	seq   int64
	txs   map[string]*record
	users map[string]core.User
	otps  map[string]core.OTPChallenge
}

func New() *Store {
	return &Store{
		txs:   make(map[string]*record),
		users: make(map[string]core.User),
		otps:  make(map[string]core.OTPChallenge),
	}
}

// NewFromFile seeds a demo user's transactions from a pipe separated file:
//
//	# name|amount|category|type
//	Netflix|17.99|Streaming|expense
//
// Missing files and malformed lines are skipped.
func NewFromFile(path string) *Store {
	s := New()
	lines := readLines(path)
	if len(lines) == 0 {
		return s
	}
	ctx := context.Background()
	owner, err := s.CreateUser(ctx, core.User{Email: DemoEmail, CreatedAt: time.Now().UTC()})
	if err != nil {
		return s
	}
	base := time.Now().UTC().Add(-time.Duration(len(lines)) * time.Minute)
	for i, line := range lines {
		parts := strings.Split(line, "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		tx, err := core.TransactionInput{Name: parts[0], Amount: parts[1], Category: parts[2], Type: parts[3]}.Build()
		if err != nil {
			slog.Warn("Skipping seed line", "path", path, "line", line, "error", err)
			continue
		}
		tx.UserID, tx.UserEmail = owner.ID, owner.Email
		tx.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			slog.Warn("Skipping seed line", "path", path, "line", line, "error", err)
		}
	}
	return s
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	s.seq++
	s.txs[t.ID] = &record{tx: t, seq: s.seq}
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return r.tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.txs[t.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	r.tx = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]core.Transaction, error) {
	return s.collect(func(t core.Transaction) bool { return t.UserID == userID }, 0), nil
}

func (s *Store) ListPublicExpenses(_ context.Context, limit int) ([]core.Transaction, error) {
	return s.collect(core.Transaction.IsExpense, limit), nil
}

// collect returns matching transactions newest first; insertion order breaks ties.
func (s *Store) collect(keep func(core.Transaction) bool, limit int) []core.Transaction {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.txs))
	for _, r := range s.txs {
		if keep(r.tx) {
			recs = append(recs, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.tx.Timestamp.Equal(b.tx.Timestamp) {
			return a.tx.Timestamp.After(b.tx.Timestamp)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]core.Transaction, len(recs))
	for i, r := range recs {
		out[i] = r.tx
	}
	return out
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if (u.Email != "" && existing.Email == u.Email) || (u.Phone != "" && existing.Phone == u.Phone) {
			return core.User{}, fmt.Errorf("user %s: %w", u.DisplayName(), core.ErrConflict)
		}
	}
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	return s.findUser(func(u core.User) bool { return email != "" && u.Email == email }, email)
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (core.User, error) {
	return s.findUser(func(u core.User) bool { return phone != "" && u.Phone == phone }, phone)
}

func (s *Store) findUser(match func(core.User) bool, key string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %s: %w", key, core.ErrNotFound)
}

func (s *Store) SaveOTP(_ context.Context, c core.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[c.Phone] = c
	return nil
}

func (s *Store) GetOTP(_ context.Context, phone string) (core.OTPChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.otps[phone]
	if !ok {
		return core.OTPChallenge{}, fmt.Errorf("otp %s: %w", phone, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) DeleteOTP(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.otps, phone)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
