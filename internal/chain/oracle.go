// Package chain resolves transaction references to on-chain facts.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when the transaction does not exist or the
// response lacks a field needed to judge the payment.
var ErrNotFound = errors.New("transaction not found")

// Transaction holds the facts a payment is judged on.
type Transaction struct {
	Hash    string
	To      common.Address
	Value   *big.Int // wei
	ChainID *big.Int
}

// Oracle looks up a single transaction by its normalized reference.
type Oracle interface {
	Lookup(ctx context.Context, reference string) (*Transaction, error)
}
