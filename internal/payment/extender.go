package payment

import (
	"context"
	"fmt"
	"time"

	"cryptopay-bot/internal/ledger"
)

// Extender turns an accepted payment into a new subscription end date.
type Extender struct {
	store ledger.Store
}

func NewExtender(store ledger.Store) *Extender {
	return &Extender{store: store}
}

// Extend reads the user's subscription, pushes its end date by one tier
// period and stores the result.
func (e *Extender) Extend(ctx context.Context, userID int64, tier Tier, now time.Time) (time.Time, error) {
	sub, err := e.store.GetSubscription(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	var current *time.Time
	if sub != nil {
		current = &sub.EndDate
	}
	newEndDate := NextEndDate(current, tier, now)

	if err := e.store.UpsertSubscription(ctx, userID, newEndDate); err != nil {
		return time.Time{}, fmt.Errorf("extend subscription: %w", err)
	}
	return newEndDate, nil
}

// NextEndDate extends from the later of the current end date and now, so
// active time is never lost and expired time is never credited back.
func NextEndDate(current *time.Time, tier Tier, now time.Time) time.Time {
	base := now.UTC()
	if current != nil && current.After(now) {
		base = current.UTC()
	}
	return addMonths(base, tier.months())
}
