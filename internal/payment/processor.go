package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/metrics"
	"cryptopay-bot/internal/models"
)

// Receipt is returned for a credited payment.
type Receipt struct {
	SubmissionID string
	Acceptance
	NewEndDate time.Time
}

// Processor is the submission boundary: it verifies a reference and credits
// it at most once.
type Processor struct {
	store    ledger.Store
	verifier *Verifier
	now      func() time.Time
}

func NewProcessor(store ledger.Store, verifier *Verifier) *Processor {
	return &Processor{
		store:    store,
		verifier: verifier,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

func (p *Processor) Submit(ctx context.Context, userID int64, reference string) (*Receipt, error) {
	submissionID := uuid.NewString()
	logger := log.With().
		Str("submission_id", submissionID).
		Int64("user_id", userID).
		Logger()

	receipt, err := p.submit(ctx, userID, reference)
	metrics.PaymentSubmissionsTotal.WithLabelValues(ReasonOf(err)).Inc()

	if err != nil {
		event := logger.Info()
		if IsTransient(err) || ReasonOf(err) == "internal" {
			event = logger.Error()
		}
		event.Err(err).Str("reason", ReasonOf(err)).Msg("Payment rejected")
		return nil, err
	}

	receipt.SubmissionID = submissionID
	metrics.SubscriptionExtensionsTotal.WithLabelValues(string(receipt.Tier)).Inc()
	logger.Info().
		Str("reference", receipt.Reference).
		Str("tier", string(receipt.Tier)).
		Str("amount", receipt.Amount.String()).
		Time("end_date", receipt.NewEndDate).
		Msg("Subscription extended")
	return receipt, nil
}

func (p *Processor) submit(ctx context.Context, userID int64, reference string) (*Receipt, error) {
	acc, err := p.verifier.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	var newEndDate time.Time
	err = p.store.Transaction(ctx, func(tx ledger.Store) error {
		// The marker goes first: a concurrent submission of the same
		// reference fails here on the unique key and the whole
		// transaction rolls back.
		if err := tx.RecordConsumedTransaction(ctx, models.ConsumedTransaction{
			Reference: acc.Reference,
			UserID:    userID,
			Tier:      string(acc.Tier),
			Amount:    acc.Amount.String(),
		}); err != nil {
			return err
		}
		if err := tx.LockSubscription(ctx, userID); err != nil {
			return err
		}

		var err error
		newEndDate, err = NewExtender(tx).Extend(ctx, userID, acc.Tier, p.now())
		return err
	})
	if errors.Is(err, ledger.ErrDuplicateKey) {
		return nil, ErrAlreadyUsed
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Receipt{Acceptance: *acc, NewEndDate: newEndDate}, nil
}
