package common

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd"
	"github.com/holiman/uint256"
)

// ErrInvalidAmount is returned when a string is not a non-negative integer
// that fits in 256 bits.
var ErrInvalidAmount = NewError(KindValidation, "InvalidAmount", "invalid amount")

// Precision used when computing ratios like the share price.
const ratioPrecision = 36

// ParseAmount parses a base-10 amount in the token's smallest unit.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// FormatUnits renders amount with the given number of decimals, e.g.
// FormatUnits(1234567, 6) == "1.234567".
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	d := apd.NewWithBigInt(amount.ToBig(), -int32(decimals))
	return d.Text('f')
}

// Ratio returns num/den as a decimal string. A zero denominator yields "1",
// the initial exchange rate of an empty vault.
func Ratio(num, den *uint256.Int) (string, error) {
	if den == nil || den.IsZero() {
		return "1", nil
	}
	ctx := apd.BaseContext.WithPrecision(ratioPrecision)
	var res apd.Decimal
	if _, err := ctx.Quo(&res, apd.NewWithBigInt(num.ToBig(), 0), apd.NewWithBigInt(den.ToBig(), 0)); err != nil {
		return "", fmt.Errorf("ratio: %w", err)
	}
	return res.Text('f'), nil
}
