package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBracket taxes the income between the previous bracket's upper bound and
// UpperBound at Rate. A zero UpperBound marks the open top band and is only
// allowed on the last bracket.
type TaxBracket struct {
	UpperBound decimal.Decimal
	Rate       decimal.Decimal
}

func (b TaxBracket) open() bool {
	return b.UpperBound.IsZero()
}

// DefaultTaxBrackets is the statutory annual personal income tax schedule.
func DefaultTaxBrackets() []TaxBracket {
	return []TaxBracket{
		{UpperBound: decimal.NewFromInt(150_000), Rate: decimal.Zero},
		{UpperBound: decimal.NewFromInt(300_000), Rate: decimal.RequireFromString("0.05")},
		{UpperBound: decimal.NewFromInt(500_000), Rate: decimal.RequireFromString("0.10")},
		{UpperBound: decimal.NewFromInt(750_000), Rate: decimal.RequireFromString("0.15")},
		{UpperBound: decimal.NewFromInt(1_000_000), Rate: decimal.RequireFromString("0.20")},
		{UpperBound: decimal.NewFromInt(2_000_000), Rate: decimal.RequireFromString("0.25")},
		{UpperBound: decimal.NewFromInt(5_000_000), Rate: decimal.RequireFromString("0.30")},
		{Rate: decimal.RequireFromString("0.35")},
	}
}

// ValidateBrackets checks that upper bounds strictly increase, rates lie in
// [0, 1] and only the final bracket is open-ended.
func ValidateBrackets(brackets []TaxBracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: tax bracket table is empty", ErrInvalidInput)
	}
	one := decimal.NewFromInt(1)
	floor := decimal.Zero
	last := len(brackets) - 1
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: tax bracket %d rate %s outside [0, 1]", ErrInvalidInput, i, b.Rate)
		}
		if i == last {
			if !b.open() {
				return fmt.Errorf("%w: last tax bracket must be open-ended", ErrInvalidInput)
			}
			break
		}
		if b.open() || b.UpperBound.IsNegative() {
			return fmt.Errorf("%w: tax bracket %d must have a positive upper bound", ErrInvalidInput, i)
		}
		if !b.UpperBound.GreaterThan(floor) {
			return fmt.Errorf("%w: tax bracket %d upper bound %s not above %s", ErrInvalidInput, i, b.UpperBound, floor)
		}
		floor = b.UpperBound
	}
	return nil
}
