package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// ComputeProgressiveTax applies each bracket's rate to the slice of
// annualIncome that falls inside it.
func ComputeProgressiveTax(annualIncome decimal.Decimal, brackets []TaxBracket) (decimal.Decimal, error) {
	if err := NonNegative("annualIncome", annualIncome); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateBrackets(brackets); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	floor := decimal.Zero
	for _, b := range brackets {
		if b.open() || annualIncome.LessThanOrEqual(b.UpperBound) {
			total = total.Add(annualIncome.Sub(floor).Mul(b.Rate))
			break
		}
		total = total.Add(b.UpperBound.Sub(floor).Mul(b.Rate))
		floor = b.UpperBound
	}
	return total, nil
}

// ComputeMonthlyTax annualises a monthly gross, taxes it and returns one
// twelfth rounded half-up to a whole currency unit.
func ComputeMonthlyTax(monthlyGross decimal.Decimal, brackets []TaxBracket) (decimal.Decimal, error) {
	if err := NonNegative("monthlyGrossPay", monthlyGross); err != nil {
		return decimal.Zero, err
	}
	annual, err := ComputeProgressiveTax(monthlyGross.Mul(monthsPerYear), brackets)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monthly tax: %w", err)
	}
	// Round is half away from zero, which is half-up for the non-negative values here.
	return annual.Div(monthsPerYear).Round(0), nil
}
