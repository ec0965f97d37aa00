package common

import (
	"fmt"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a 20-byte hex address.
var ErrInvalidAddress = NewError(KindValidation, "InvalidAddress", "invalid address")

// ZeroAddress is the null account.
var ZeroAddress = ethCommon.Address{}

// ParseAddress parses a 0x-prefixed (or bare) hex address.
func ParseAddress(s string) (ethCommon.Address, error) {
	s = strings.TrimSpace(s)
	if !ethCommon.IsHexAddress(s) {
		return ethCommon.Address{}, fmt.Errorf("%w: '%s'", ErrInvalidAddress, s)
	}
	return ethCommon.HexToAddress(s), nil
}

// IsZeroAddress reports whether a is the null account.
func IsZeroAddress(a ethCommon.Address) bool {
	return a == ZeroAddress
}

// ErrZeroAddress is returned when the null account is supplied where a real
// account is required.
var ErrZeroAddress = NewError(KindValidation, "ZeroAddress", "zero address")
