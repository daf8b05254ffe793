package fungible

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount accepts non-negative integer amounts only.
func ParseAmount(s string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if amt.IsNegative() || !amt.Equal(amt.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	return amt, nil
}

func parsePositive(s string) (decimal.Decimal, error) {
	amt, err := ParseAmount(s)
	if err != nil {
		return amt, err
	}
	if !amt.IsPositive() {
		return amt, fmt.Errorf("%w: zero", ErrInvalidAmount)
	}
	return amt, nil
}
