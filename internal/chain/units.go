package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the wei-per-ether exponent.
const EtherDecimals = 18

// WeiToEther converts a raw wei amount into ether without rounding.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// EtherToWei converts an ether amount into wei, truncating below 1 wei.
func EtherToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(EtherDecimals).BigInt()
}
