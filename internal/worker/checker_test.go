package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/messages"
)

type sentNotice struct {
	UserID int64
	Text   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sentNotice
	failOn map[int64]bool
}

func (n *recordingNotifier) Send(_ context.Context, userID int64, text, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn[userID] {
		return errors.New("bot was blocked by the user")
	}
	n.sent = append(n.sent, sentNotice{UserID: userID, Text: text})
	return nil
}

func (n *recordingNotifier) textFor(userID int64) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.sent {
		if s.UserID == userID {
			return s.Text, true
		}
	}
	return "", false
}

var catalog = messages.Catalog{
	Wallet:       "0x52908400098527886E0F7030069857D2E4169EE7",
	Network:      "Sepolia",
	MonthlyPrice: decimal.RequireFromString("0.01"),
	YearlyPrice:  decimal.RequireFromString("0.1"),
}

func TestCheckerRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := ledger.NewMemoryStore()

	require.NoError(t, store.UpsertSubscription(ctx, 1, now.Add(-time.Second)))
	require.NoError(t, store.UpsertSubscription(ctx, 2, now.Add(60*time.Hour)))
	require.NoError(t, store.UpsertSubscription(ctx, 3, now.Add(4*day)))
	require.NoError(t, store.UpsertSubscription(ctx, 4, now.Add(90*day)))
	require.NoError(t, store.UpsertSubscription(ctx, 5, now.Add(time.Hour)))

	notifier := &recordingNotifier{}
	report, err := NewChecker(store, notifier, catalog, "@daily").Run(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, Report{Expired: 1, Reminded: 2}, report)

	text, ok := notifier.textFor(1)
	require.True(t, ok)
	assert.Equal(t, catalog.Expired(), text)

	text, ok = notifier.textFor(2)
	require.True(t, ok, "2.5 days rounds up to 3")
	assert.Equal(t, catalog.DaysLeft(3), text)

	text, ok = notifier.textFor(5)
	require.True(t, ok)
	assert.Equal(t, catalog.DaysLeft(1), text)

	_, ok = notifier.textFor(3)
	assert.False(t, ok, "exactly 4 days left gets no reminder")
	_, ok = notifier.textFor(4)
	assert.False(t, ok)
}

func TestCheckerRunCountsFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := ledger.NewMemoryStore()

	require.NoError(t, store.UpsertSubscription(ctx, 1, now.Add(-day)))
	require.NoError(t, store.UpsertSubscription(ctx, 2, now.Add(-day)))
	require.NoError(t, store.UpsertSubscription(ctx, 3, now.Add(day)))

	notifier := &recordingNotifier{failOn: map[int64]bool{1: true}}
	report, err := NewChecker(store, notifier, catalog, "@daily").Run(ctx, now)
	require.NoError(t, err, "a failed notice does not abort the pass")

	assert.Equal(t, Report{Expired: 1, Reminded: 1, Failed: 1}, report)
	_, ok := notifier.textFor(2)
	assert.True(t, ok)
}

func TestCheckerRunLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := ledger.NewMemoryStore()
	end := now.Add(-day)
	require.NoError(t, store.UpsertSubscription(ctx, 1, end))

	_, err := NewChecker(store, &recordingNotifier{}, catalog, "@daily").Run(ctx, now)
	require.NoError(t, err)

	sub, err := store.GetSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, end, sub.EndDate)
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		remaining time.Duration
		want      int
	}{
		{-time.Second, 0},
		{0, 0},
		{time.Second, 1},
		{day, 1},
		{day + time.Second, 2},
		{60 * time.Hour, 3},
		{3 * day, 3},
		{4 * day, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysLeft(now.Add(tt.remaining), now), tt.remaining.String())
	}
}

func TestCheckerStartRejectsBadSchedule(t *testing.T) {
	err := NewChecker(ledger.NewMemoryStore(), &recordingNotifier{}, catalog, "not a schedule").Start(context.Background())
	assert.Error(t, err)
}

func TestCheckerStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewChecker(ledger.NewMemoryStore(), &recordingNotifier{}, catalog, "@every 1h").Start(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop")
	}
}
