package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StorageMinorUnits is the scale of every persisted amount column.
const StorageMinorUnits int32 = 2

// NonNegative rejects negative amounts for the named field.
func NonNegative(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, field)
	}
	return nil
}

// WithinScale rejects amounts with more decimal places than can be stored.
func WithinScale(field string, value decimal.Decimal) error {
	if !value.Equal(value.Truncate(StorageMinorUnits)) {
		return fmt.Errorf("%w: %s must have at most %d decimal places", ErrInvalidInput, field, StorageMinorUnits)
	}
	return nil
}

// storable applies both the sign and the scale checks.
func storable(fields ...namedAmount) error {
	if err := nonNegative(fields...); err != nil {
		return err
	}
	for _, f := range fields {
		if err := WithinScale(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func nonNegative(fields ...namedAmount) error {
	for _, f := range fields {
		if err := NonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

type namedAmount struct {
	name  string
	value decimal.Decimal
}
