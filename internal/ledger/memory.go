package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"cryptopay-bot/internal/models"
)

// MemoryStore keeps the ledger in process memory. Transactions are
// serialized and their writes become visible only on commit.
type MemoryStore struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	subs     map[int64]models.Subscription
	consumed map[string]models.ConsumedTransaction
	nextID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:     make(map[int64]models.Subscription),
		consumed: make(map[string]models.ConsumedTransaction),
	}
}

func (s *MemoryStore) GetSubscription(_ context.Context, userID int64) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *MemoryStore) UpsertSubscription(ctx context.Context, userID int64, endDate time.Time) error {
	return s.Transaction(ctx, func(tx Store) error {
		return tx.UpsertSubscription(ctx, userID, endDate)
	})
}

func (s *MemoryStore) LockSubscription(context.Context, int64) error {
	return nil
}

func (s *MemoryStore) HasConsumedTransaction(_ context.Context, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.consumed[reference]
	return ok, nil
}

func (s *MemoryStore) RecordConsumedTransaction(ctx context.Context, tx models.ConsumedTransaction) error {
	return s.Transaction(ctx, func(st Store) error {
		return st.RecordConsumedTransaction(ctx, tx)
	})
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSubscriptions(s.subs, nil, func(sub models.Subscription) bool {
		return sub.EndDate.Before(now)
	}), nil
}

func (s *MemoryStore) ListExpiringWithin(_ context.Context, now time.Time, horizon time.Duration) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSubscriptions(s.subs, nil, expiringFilter(now, horizon)), nil
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		parent:   s,
		subs:     make(map[int64]models.Subscription),
		consumed: make(map[string]models.ConsumedTransaction),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// SubscriptionCount reports how many users have a subscription record.
func (s *MemoryStore) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

type memoryTx struct {
	parent   *MemoryStore
	subs     map[int64]models.Subscription
	consumed map[string]models.ConsumedTransaction
}

func (t *memoryTx) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	if sub, ok := t.subs[userID]; ok {
		return &sub, nil
	}
	return t.parent.GetSubscription(ctx, userID)
}

func (t *memoryTx) UpsertSubscription(ctx context.Context, userID int64, endDate time.Time) error {
	now := time.Now().UTC()
	sub, err := t.GetSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		sub = &models.Subscription{UserID: userID, CreatedAt: now}
	}
	sub.EndDate = endDate.UTC()
	sub.UpdatedAt = now
	t.subs[userID] = *sub
	return nil
}

func (t *memoryTx) LockSubscription(context.Context, int64) error {
	return nil
}

func (t *memoryTx) HasConsumedTransaction(ctx context.Context, reference string) (bool, error) {
	if _, ok := t.consumed[reference]; ok {
		return true, nil
	}
	return t.parent.HasConsumedTransaction(ctx, reference)
}

func (t *memoryTx) RecordConsumedTransaction(ctx context.Context, tx models.ConsumedTransaction) error {
	exists, err := t.HasConsumedTransaction(ctx, tx.Reference)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateKey
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	t.consumed[tx.Reference] = tx
	return nil
}

func (t *memoryTx) ListExpired(_ context.Context, now time.Time) ([]models.Subscription, error) {
	t.parent.mu.RLock()
	defer t.parent.mu.RUnlock()
	return filterSubscriptions(t.parent.subs, t.subs, func(sub models.Subscription) bool {
		return sub.EndDate.Before(now)
	}), nil
}

func (t *memoryTx) ListExpiringWithin(_ context.Context, now time.Time, horizon time.Duration) ([]models.Subscription, error) {
	t.parent.mu.RLock()
	defer t.parent.mu.RUnlock()
	return filterSubscriptions(t.parent.subs, t.subs, expiringFilter(now, horizon)), nil
}

// Transaction on an open transaction joins it.
func (t *memoryTx) Transaction(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *memoryTx) commit() error {
	p := t.parent
	p.mu.Lock()
	defer p.mu.Unlock()

	for ref := range t.consumed {
		if _, ok := p.consumed[ref]; ok {
			return ErrDuplicateKey
		}
	}
	for ref, tx := range t.consumed {
		p.consumed[ref] = tx
	}
	for userID, sub := range t.subs {
		if sub.ID == 0 {
			p.nextID++
			sub.ID = p.nextID
		}
		p.subs[userID] = sub
	}
	return nil
}

func expiringFilter(now time.Time, horizon time.Duration) func(models.Subscription) bool {
	until := now.Add(horizon)
	return func(sub models.Subscription) bool {
		return !sub.EndDate.Before(now) && !sub.EndDate.After(until)
	}
}

func filterSubscriptions(base, overlay map[int64]models.Subscription, keep func(models.Subscription) bool) []models.Subscription {
	var out []models.Subscription
	for userID, sub := range base {
		if o, ok := overlay[userID]; ok {
			sub = o
		}
		if keep(sub) {
			out = append(out, sub)
		}
	}
	for userID, sub := range overlay {
		if _, ok := base[userID]; !ok && keep(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].EndDate.Before(out[j].EndDate)
	})
	return out
}
