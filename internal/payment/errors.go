package payment

import (
	"errors"
)

// Rejections. Every submission that is not accepted ends with one of these
// (possibly wrapped).
var (
	ErrInvalidFormat      = errors.New("invalid transaction reference format")
	ErrAlreadyUsed        = errors.New("transaction already used")
	ErrNotFound           = errors.New("transaction not found")
	ErrWrongNetwork       = errors.New("transaction sent on a different network")
	ErrWrongRecipient     = errors.New("transaction sent to a different address")
	ErrInsufficientAmount = errors.New("amount is below the monthly price")

	ErrOracleUnavailable = errors.New("chain oracle unavailable")
	ErrStoreUnavailable  = errors.New("ledger store unavailable")
)

var reasons = []struct {
	err   error
	label string
}{
	{ErrInvalidFormat, "invalid_format"},
	{ErrAlreadyUsed, "already_used"},
	{ErrNotFound, "not_found"},
	{ErrWrongNetwork, "wrong_network"},
	{ErrWrongRecipient, "wrong_recipient"},
	{ErrInsufficientAmount, "insufficient_amount"},
	{ErrOracleUnavailable, "oracle_unavailable"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// ReasonOf returns a stable label for err, "accepted" for nil and
// "internal" for anything outside the taxonomy.
func ReasonOf(err error) string {
	if err == nil {
		return "accepted"
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "internal"
}

// IsTransient reports whether resending the same reference may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOracleUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
