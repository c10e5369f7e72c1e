// Package ledger persists subscriptions and consumed payment transactions.
package ledger

import (
	"context"
	"errors"
	"time"

	"cryptopay-bot/internal/models"
)

// ErrDuplicateKey is returned by RecordConsumedTransaction when the
// reference has already been stored.
var ErrDuplicateKey = errors.New("ledger: duplicate key")

// Store is safe for concurrent use. Implementations must enforce uniqueness
// of ConsumedTransaction.Reference at the storage level.
type Store interface {
	// GetSubscription returns nil, nil when the user never subscribed.
	GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, userID int64, endDate time.Time) error
	// LockSubscription serializes extensions of one user until the
	// surrounding Transaction ends.
	LockSubscription(ctx context.Context, userID int64) error

	HasConsumedTransaction(ctx context.Context, reference string) (bool, error)
	RecordConsumedTransaction(ctx context.Context, tx models.ConsumedTransaction) error

	// ListExpired returns subscriptions with EndDate < now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error)
	// ListExpiringWithin returns subscriptions with now <= EndDate <= now+horizon.
	ListExpiringWithin(ctx context.Context, now time.Time, horizon time.Duration) ([]models.Subscription, error)

	// Transaction runs fn atomically; any error returned by fn rolls back.
	Transaction(ctx context.Context, fn func(Store) error) error
}
