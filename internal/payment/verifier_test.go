package payment

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cryptopay-bot/internal/chain"
	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/models"
)

var (
	testRef    = "0x" + strings.Repeat("ab", 32)
	testWallet = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	otherAddr  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	sepolia    = big.NewInt(11155111)
)

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Lookup(ctx context.Context, reference string) (*chain.Transaction, error) {
	args := m.Called(ctx, reference)
	tx, _ := args.Get(0).(*chain.Transaction)
	return tx, args.Error(1)
}

func testPolicy() Policy {
	return Policy{
		Recipient:     testWallet,
		ChainID:       sepolia,
		MonthlyPrice:  decimal.RequireFromString("0.01"),
		YearlyPrice:   decimal.RequireFromString("0.1"),
		OracleTimeout: time.Second,
	}
}

func ethTx(eth string) *chain.Transaction {
	return &chain.Transaction{
		Hash:    testRef,
		To:      testWallet,
		Value:   chain.EtherToWei(decimal.RequireFromString(eth)),
		ChainID: sepolia,
	}
}

func TestVerifyTiers(t *testing.T) {
	tests := []struct {
		name     string
		eth      string
		wantTier Tier
		wantErr  error
	}{
		{name: "exactly yearly price", eth: "0.1", wantTier: TierYearly},
		{name: "above yearly price", eth: "1.5", wantTier: TierYearly},
		{name: "just below yearly price", eth: "0.099999999999999999", wantTier: TierMonthly},
		{name: "exactly monthly price", eth: "0.01", wantTier: TierMonthly},
		{name: "one wei short of monthly", eth: "0.009999999999999999", wantErr: ErrInsufficientAmount},
		{name: "zero value", eth: "0", wantErr: ErrInsufficientAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := new(mockOracle)
			oracle.On("Lookup", mock.Anything, testRef).Return(ethTx(tt.eth), nil).Once()

			acc, err := NewVerifier(ledger.NewMemoryStore(), oracle, testPolicy()).Verify(context.Background(), testRef)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, acc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, acc.Tier)
			assert.True(t, acc.Amount.Equal(decimal.RequireFromString(tt.eth)))
			assert.Equal(t, testRef, acc.Reference)
			oracle.AssertExpectations(t)
		})
	}
}

func TestVerifyRejectsBadReferenceWithoutLookups(t *testing.T) {
	oracle := new(mockOracle)
	v := NewVerifier(ledger.NewMemoryStore(), oracle, testPolicy())

	for _, ref := range []string{"", "0x", "0x123", "hello", "0x" + strings.Repeat("z", 64)} {
		_, err := v.Verify(context.Background(), ref)
		assert.ErrorIs(t, err, ErrInvalidFormat, ref)
	}
	oracle.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestVerifyAlreadyUsedSkipsOracle(t *testing.T) {
	store := ledger.NewMemoryStore()
	require.NoError(t, store.RecordConsumedTransaction(context.Background(), models.ConsumedTransaction{Reference: testRef}))

	oracle := new(mockOracle)
	v := NewVerifier(store, oracle, testPolicy())

	// Upper-case input is normalized before the dedup lookup.
	_, err := v.Verify(context.Background(), strings.ToUpper(testRef[2:]))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = v.Verify(context.Background(), "0x"+strings.ToUpper(testRef[2:]))
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	oracle.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestVerifyGating(t *testing.T) {
	wrongNetwork := ethTx("1")
	wrongNetwork.ChainID = big.NewInt(1)

	wrongRecipient := ethTx("1")
	wrongRecipient.To = otherAddr

	both := ethTx("1")
	both.ChainID = big.NewInt(1)
	both.To = otherAddr

	tests := []struct {
		name    string
		tx      *chain.Transaction
		err     error
		wantErr error
	}{
		{name: "wrong network even with enough value", tx: wrongNetwork, wantErr: ErrWrongNetwork},
		{name: "wrong recipient", tx: wrongRecipient, wantErr: ErrWrongRecipient},
		{name: "network checked before recipient", tx: both, wantErr: ErrWrongNetwork},
		{name: "not found", err: chain.ErrNotFound, wantErr: ErrNotFound},
		{name: "oracle failure", err: errors.New("connection refused"), wantErr: ErrOracleUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := new(mockOracle)
			oracle.On("Lookup", mock.Anything, testRef).Return(tt.tx, tt.err)

			_, err := NewVerifier(ledger.NewMemoryStore(), oracle, testPolicy()).Verify(context.Background(), testRef)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyRecipientIsCaseInsensitive(t *testing.T) {
	policy := testPolicy()
	policy.Recipient = common.HexToAddress(strings.ToLower(testWallet.Hex()))

	oracle := new(mockOracle)
	oracle.On("Lookup", mock.Anything, testRef).Return(ethTx("0.01"), nil)

	acc, err := NewVerifier(ledger.NewMemoryStore(), oracle, policy).Verify(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, TierMonthly, acc.Tier)
}

func TestVerifyOracleTimeout(t *testing.T) {
	policy := testPolicy()
	policy.OracleTimeout = 20 * time.Millisecond

	oracle := new(mockOracle)
	oracle.On("Lookup", mock.Anything, testRef).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := NewVerifier(ledger.NewMemoryStore(), oracle, policy).Verify(context.Background(), testRef)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.True(t, IsTransient(err))
}

func TestPolicyTierFor(t *testing.T) {
	p := testPolicy()

	tier, ok := p.TierFor(decimal.RequireFromString("0.1"))
	assert.True(t, ok)
	assert.Equal(t, TierYearly, tier)

	tier, ok = p.TierFor(decimal.RequireFromString("0.01"))
	assert.True(t, ok)
	assert.Equal(t, TierMonthly, tier)

	_, ok = p.TierFor(decimal.RequireFromString("0.001"))
	assert.False(t, ok)
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, "accepted", ReasonOf(nil))
	assert.Equal(t, "already_used", ReasonOf(ErrAlreadyUsed))
	assert.Equal(t, "store_unavailable", ReasonOf(errors.Join(ErrStoreUnavailable, errors.New("db down"))))
	assert.Equal(t, "internal", ReasonOf(errors.New("something else")))
	assert.False(t, IsTransient(ErrWrongNetwork))
}
