package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"cryptopay-bot/internal/chain"
	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/metrics"
)

const defaultOracleTimeout = 10 * time.Second

// Policy is what a transaction must satisfy to be accepted.
type Policy struct {
	Recipient     common.Address
	ChainID       *big.Int
	MonthlyPrice  decimal.Decimal
	YearlyPrice   decimal.Decimal
	OracleTimeout time.Duration
}

// TierFor picks the highest tier whose price amount reaches.
func (p Policy) TierFor(amount decimal.Decimal) (Tier, bool) {
	switch {
	case amount.GreaterThanOrEqual(p.YearlyPrice):
		return TierYearly, true
	case amount.GreaterThanOrEqual(p.MonthlyPrice):
		return TierMonthly, true
	default:
		return "", false
	}
}

// Acceptance describes a transaction that passed every check.
type Acceptance struct {
	Reference   string
	Tier        Tier
	Amount      decimal.Decimal // ETH
	Transaction *chain.Transaction
}

// Verifier decides whether a transaction pays for a subscription. It only
// reads the ledger; recording the payment is up to the caller.
type Verifier struct {
	store  ledger.Store
	oracle chain.Oracle
	policy Policy
}

func NewVerifier(store ledger.Store, oracle chain.Oracle, policy Policy) *Verifier {
	if policy.OracleTimeout <= 0 {
		policy.OracleTimeout = defaultOracleTimeout
	}
	return &Verifier{store: store, oracle: oracle, policy: policy}
}

func (v *Verifier) Policy() Policy {
	return v.policy
}

func (v *Verifier) Verify(ctx context.Context, reference string) (*Acceptance, error) {
	ref, err := chain.NormalizeReference(reference)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	// Checked before the oracle so a replay costs no external call.
	used, err := v.store.HasConsumedTransaction(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if used {
		return nil, ErrAlreadyUsed
	}

	tx, err := v.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}

	if tx.ChainID == nil || v.policy.ChainID == nil || tx.ChainID.Cmp(v.policy.ChainID) != 0 {
		return nil, ErrWrongNetwork
	}
	if tx.To != v.policy.Recipient {
		return nil, ErrWrongRecipient
	}

	amount := chain.WeiToEther(tx.Value)
	tier, ok := v.policy.TierFor(amount)
	if !ok {
		return nil, ErrInsufficientAmount
	}

	return &Acceptance{
		Reference:   ref,
		Tier:        tier,
		Amount:      amount,
		Transaction: tx,
	}, nil
}

func (v *Verifier) lookup(ctx context.Context, ref string) (*chain.Transaction, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.policy.OracleTimeout)
	defer cancel()

	start := time.Now()
	tx, err := v.oracle.Lookup(lookupCtx, ref)
	outcome := "found"

	switch {
	case errors.Is(err, chain.ErrNotFound):
		outcome = "not_found"
		err = ErrNotFound
	case err != nil:
		outcome = "error"
		err = fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	case tx == nil:
		outcome = "not_found"
		err = ErrNotFound
	}
	metrics.OracleRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return tx, err
}
