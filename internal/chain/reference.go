package chain

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ReferencePrefix starts every EVM transaction hash.
const ReferencePrefix = "0x"

var (
	ErrInvalidReference = errors.New("invalid transaction reference")

	txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
)

// NormalizeReference trims and lower-cases a user supplied hash and checks
// that it is 0x followed by 64 hex digits.
func NormalizeReference(raw string) (string, error) {
	ref := strings.ToLower(strings.TrimSpace(raw))
	if !txHashPattern.MatchString(ref) {
		return "", ErrInvalidReference
	}
	return common.HexToHash(ref).Hex(), nil
}
