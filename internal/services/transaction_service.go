package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/live"
	"fintrack/internal/ports"
)

const (
	summaryCacheSize = 1000
	summaryCacheTTL  = 5 * time.Minute
	feedCacheSize    = 16
	feedCacheTTL     = 30 * time.Second
)

// EventPublisher forwards transaction changes to the message bus.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction changes across the store,
// the summary caches, the live hub and the message bus.
type TransactionService struct {
	store     ports.TransactionStore
	summaries *cache.LRUCache[core.Summary]
	feed      *cache.LRUCache[[]core.Transaction]
	hub       *live.Hub
	publisher EventPublisher
	now       func() time.Time

	// genMu orders cache fills against invalidations. A fill stores its
	// result only if no write bumped the generation since it read the store.
	genMu    sync.Mutex
	userGens map[string]uint64
	feedGen  uint64
}

// NewTransactionService wires the service. hub and publisher may be nil.
func NewTransactionService(store ports.TransactionStore, hub *live.Hub, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		summaries: cache.NewLRUCache[core.Summary](summaryCacheSize, summaryCacheTTL),
		feed:      cache.NewLRUCache[[]core.Transaction](feedCacheSize, feedCacheTTL),
		hub:       hub,
		publisher: publisher,
		now:       time.Now,
		userGens:  make(map[string]uint64),
	}
}

// RegisterCaches adds the service caches to a cleanup manager.
func (s *TransactionService) RegisterCaches(m *cache.Manager) {
	m.Register("summaries", s.summaries)
	m.Register("feed", s.feed)
}

func (s *TransactionService) SummaryCacheStats() cache.Stats { return s.summaries.Stats() }

func (s *TransactionService) FeedCacheStats() cache.Stats { return s.feed.Stats() }

// Create stores a new transaction owned by owner. The server assigns the
// timestamp; the store assigns the ID.
func (s *TransactionService) Create(ctx context.Context, owner auth.Identity, in core.TransactionInput) (core.Transaction, error) {
	tx, err := in.Build()
	if err != nil {
		return core.Transaction{}, err
	}
	tx.UserID = owner.UserID
	tx.UserEmail = owner.DisplayName()
	tx.Timestamp = s.now().UTC()

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.changed(ctx, amqp.ActionCreated, created, created.IsExpense())
	return created, nil
}

// Get returns a transaction the owner may edit.
func (s *TransactionService) Get(ctx context.Context, owner auth.Identity, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.UserID != owner.UserID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrForbidden)
	}
	return tx, nil
}

// Update re-signs the amount from the type and keeps timestamp and owner.
func (s *TransactionService) Update(ctx context.Context, owner auth.Identity, id string, in core.TransactionInput) (core.Transaction, error) {
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := in.Build()
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = existing.ID
	tx.Timestamp = existing.Timestamp
	tx.UserID = existing.UserID
	tx.UserEmail = existing.UserEmail

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.changed(ctx, amqp.ActionUpdated, tx, existing.IsExpense() || tx.IsExpense())
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, owner auth.Identity, id string) error {
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.changed(ctx, amqp.ActionDeleted, existing, existing.IsExpense())
	return nil
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, f core.Filter) ([]core.Transaction, error) {
	txs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.FilterTransactions(txs, f), nil
}

// Summary aggregates the user's transactions for a period.
func (s *TransactionService) Summary(ctx context.Context, userID string, p core.Period) (core.Summary, error) {
	key := summaryKey(userID, p)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}
	gen := s.userGeneration(userID)
	txs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	sum := core.Summarize(core.FilterByPeriod(txs, p, s.now().In(core.DisplayLocation)))

	s.genMu.Lock()
	if s.userGens[userID] == gen {
		s.summaries.Set(key, sum)
	}
	s.genMu.Unlock()
	return sum, nil
}

// PublicFeed returns the latest expenses of every user.
func (s *TransactionService) PublicFeed(ctx context.Context, limit int) ([]core.Transaction, error) {
	key := strconv.Itoa(limit)
	if txs, ok := s.feed.Get(key); ok {
		return txs, nil
	}
	s.genMu.Lock()
	gen := s.feedGen
	s.genMu.Unlock()

	txs, err := s.store.ListPublicExpenses(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("public feed: %w", err)
	}

	s.genMu.Lock()
	if s.feedGen == gen {
		s.feed.Set(key, txs)
	}
	s.genMu.Unlock()
	return txs, nil
}

func (s *TransactionService) userGeneration(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.userGens[userID]
}

// invalidate drops cached views of a committed write. It must run after the
// store call returns.
func (s *TransactionService) invalidate(userID string, touchesFeed bool) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.userGens[userID]++
	s.summaries.DeletePrefix(userID + "|")
	if touchesFeed {
		s.feedGen++
		s.feed.DeletePrefix("")
	}
}

func (s *TransactionService) changed(ctx context.Context, action amqp.EventAction, tx core.Transaction, touchesFeed bool) {
	s.invalidate(tx.UserID, touchesFeed)

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Action:        live.Action(action),
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			Expense:       touchesFeed,
			At:            s.now().UTC(),
		})
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(action, tx)); err != nil {
		// Don't fail the request, the transaction is already stored
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", tx.ID, "action", action, "error", err)
	}
}

func summaryKey(userID string, p core.Period) string {
	return userID + "|" + string(p)
}
