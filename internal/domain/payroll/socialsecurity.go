package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SocialSecurityPolicy is a capped percentage-of-salary contribution.
type SocialSecurityPolicy struct {
	Rate decimal.Decimal
	Cap  decimal.Decimal
}

// StatutorySocialSecurity is 5% of base salary capped at 750 per month.
var StatutorySocialSecurity = SocialSecurityPolicy{
	Rate: decimal.RequireFromString("0.05"),
	Cap:  decimal.NewFromInt(750),
}

func (p SocialSecurityPolicy) Validate() error {
	if p.Rate.IsNegative() || p.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: social security rate %s outside [0, 1]", ErrInvalidInput, p.Rate)
	}
	return NonNegative("socialSecurityCap", p.Cap)
}

// ComputeSocialSecurity returns min(baseSalary*rate, cap).
func ComputeSocialSecurity(baseSalary, rate, cap decimal.Decimal) (decimal.Decimal, error) {
	if err := (SocialSecurityPolicy{Rate: rate, Cap: cap}).Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := NonNegative("baseSalary", baseSalary); err != nil {
		return decimal.Zero, err
	}
	return decimal.Min(baseSalary.Mul(rate), cap), nil
}

// EstimatorPolicy is the uncapped two-part withholding model used for quick
// estimates. It is not the statutory contribution.
type EstimatorPolicy struct {
	SocialSecurityRate decimal.Decimal
	MedicareRate       decimal.Decimal
}

var DefaultEstimator = EstimatorPolicy{
	SocialSecurityRate: decimal.RequireFromString("0.062"),
	MedicareRate:       decimal.RequireFromString("0.0145"),
}

type WithholdingEstimate struct {
	SocialSecurity decimal.Decimal `json:"socialSecurity"`
	Medicare       decimal.Decimal `json:"medicare"`
	Total          decimal.Decimal `json:"total"`
}

func (p EstimatorPolicy) Validate() error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{"socialSecurityRate": p.SocialSecurityRate, "medicareRate": p.MedicareRate} {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("%w: estimator %s %s outside [0, 1]", ErrInvalidInput, name, rate)
		}
	}
	return nil
}

// EstimateWithholding applies both uncapped rates to gross pay.
func EstimateWithholding(grossPay decimal.Decimal, policy EstimatorPolicy) (WithholdingEstimate, error) {
	if err := policy.Validate(); err != nil {
		return WithholdingEstimate{}, err
	}
	if err := NonNegative("grossPay", grossPay); err != nil {
		return WithholdingEstimate{}, err
	}
	ss := grossPay.Mul(policy.SocialSecurityRate)
	medicare := grossPay.Mul(policy.MedicareRate)
	return WithholdingEstimate{SocialSecurity: ss, Medicare: medicare, Total: ss.Add(medicare)}, nil
}
