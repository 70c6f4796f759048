package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculator turns a salary structure and period inputs into a payslip. It
// holds no mutable state and is safe for concurrent use.
type Calculator struct {
	brackets        []TaxBracket
	socialSecurity  SocialSecurityPolicy
	estimator       EstimatorPolicy
	overtime        map[string]OvertimePolicy
	defaultOvertime string
	minorUnits      int32
}

type CalculatorConfig struct {
	Brackets        []TaxBracket
	SocialSecurity  SocialSecurityPolicy
	Estimator       EstimatorPolicy
	Overtime        []OvertimePolicy
	DefaultOvertime string
	MinorUnits      int32
}

// DefaultCalculatorConfig is the statutory configuration.
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		Brackets:        DefaultTaxBrackets(),
		SocialSecurity:  StatutorySocialSecurity,
		Estimator:       DefaultEstimator,
		Overtime:        []OvertimePolicy{FlatMonthlyHoursPolicy, WorkingDaysPolicy},
		DefaultOvertime: PolicyFlatMonthlyHours,
		MinorUnits:      DefaultMinorUnits,
	}
}

func NewCalculator(cfg CalculatorConfig) (*Calculator, error) {
	if err := ValidateBrackets(cfg.Brackets); err != nil {
		return nil, err
	}
	if err := cfg.SocialSecurity.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Estimator.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinorUnits < 0 || cfg.MinorUnits > StorageMinorUnits {
		return nil, fmt.Errorf("%w: minor units must be between 0 and %d", ErrInvalidInput, StorageMinorUnits)
	}
	policies := make(map[string]OvertimePolicy, len(cfg.Overtime))
	for _, p := range cfg.Overtime {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		policies[p.Name] = p
	}
	if _, ok := policies[cfg.DefaultOvertime]; !ok {
		return nil, fmt.Errorf("%w: default overtime policy %q is not configured", ErrInvalidInput, cfg.DefaultOvertime)
	}

	brackets := make([]TaxBracket, len(cfg.Brackets))
	copy(brackets, cfg.Brackets)
	return &Calculator{
		brackets:        brackets,
		socialSecurity:  cfg.SocialSecurity,
		estimator:       cfg.Estimator,
		overtime:        policies,
		defaultOvertime: cfg.DefaultOvertime,
		minorUnits:      cfg.MinorUnits,
	}, nil
}

// MustDefaultCalculator panics only if the built-in tables are malformed.
func MustDefaultCalculator() *Calculator {
	calc, err := NewCalculator(DefaultCalculatorConfig())
	if err != nil {
		panic(err)
	}
	return calc
}

// OvertimePolicy resolves a policy name, falling back to the default for "".
func (c *Calculator) OvertimePolicy(name string) (OvertimePolicy, error) {
	if name == "" {
		name = c.defaultOvertime
	}
	policy, ok := c.overtime[name]
	if !ok {
		return OvertimePolicy{}, fmt.Errorf("%w: unknown overtime policy %q", ErrInvalidInput, name)
	}
	return policy, nil
}

// ComputeAllowances sums the fixed monthly allowances of a structure.
func ComputeAllowances(s SalaryStructure) decimal.Decimal {
	return s.HousingAllowance.Add(s.TransportAllowance).Add(s.OtherAllowances)
}

// ComputeNetPay subtracts all deductions from gross. The result may be negative.
func ComputeNetPay(grossPay, taxDeduction, socialSecurity, otherDeductions decimal.Decimal) (decimal.Decimal, error) {
	if err := nonNegative(
		namedAmount{"grossPay", grossPay},
		namedAmount{"taxDeduction", taxDeduction},
		namedAmount{"socialSecurity", socialSecurity},
		namedAmount{"otherDeductions", otherDeductions},
	); err != nil {
		return decimal.Zero, err
	}
	return grossPay.Sub(taxDeduction.Add(socialSecurity).Add(otherDeductions)), nil
}

func (c *Calculator) OvertimePay(base decimal.Decimal, in PeriodInputs) (decimal.Decimal, error) {
	if in.OvertimePay != nil {
		return SuppliedOvertimePay(*in.OvertimePay)
	}
	policy, err := c.OvertimePolicy(in.OvertimePolicy)
	if err != nil {
		return decimal.Zero, err
	}
	return ComputeOvertimePay(base, in.OvertimeHours, policy)
}

func (c *Calculator) SocialSecurity(baseSalary decimal.Decimal) (decimal.Decimal, error) {
	return ComputeSocialSecurity(baseSalary, c.socialSecurity.Rate, c.socialSecurity.Cap)
}

func (c *Calculator) MonthlyTax(grossPay decimal.Decimal) (decimal.Decimal, error) {
	return ComputeMonthlyTax(grossPay, c.brackets)
}

func (c *Calculator) EstimateWithholding(grossPay decimal.Decimal) (WithholdingEstimate, error) {
	est, err := EstimateWithholding(grossPay, c.estimator)
	if err != nil {
		return WithholdingEstimate{}, err
	}
	ss := c.round(est.SocialSecurity)
	medicare := c.round(est.Medicare)
	return WithholdingEstimate{
		SocialSecurity: ss,
		Medicare:       medicare,
		Total:          ss.Add(medicare),
	}, nil
}

// Calculate produces the payslip for one employee and period. Intermediate
// values keep full precision until the result is assembled. Net pay is then
// derived from the rounded gross and deductions so the stored figures always
// reconcile.
func (c *Calculator) Calculate(structure SalaryStructure, in PeriodInputs) (PayslipResult, error) {
	if err := structure.Validate(); err != nil {
		return PayslipResult{}, err
	}
	if err := in.Validate(); err != nil {
		return PayslipResult{}, err
	}

	allowances := ComputeAllowances(structure)
	overtimePay, err := c.OvertimePay(structure.BaseSalary, in)
	if err != nil {
		return PayslipResult{}, err
	}
	gross := structure.BaseSalary.Add(allowances).Add(overtimePay).Add(in.Bonus).Add(in.Commission)

	socialSecurity, err := c.SocialSecurity(structure.BaseSalary)
	if err != nil {
		return PayslipResult{}, err
	}
	tax, err := c.MonthlyTax(gross)
	if err != nil {
		return PayslipResult{}, err
	}

	result := PayslipResult{
		Allowances:     c.round(allowances),
		OvertimePay:    c.round(overtimePay),
		GrossPay:       c.round(gross),
		SocialSecurity: c.round(socialSecurity),
		TaxDeduction:   c.round(tax),
	}
	result.NetPay, err = ComputeNetPay(result.GrossPay, result.TaxDeduction, result.SocialSecurity, c.round(in.OtherDeductions))
	if err != nil {
		return PayslipResult{}, err
	}
	return result, nil
}

func (c *Calculator) round(v decimal.Decimal) decimal.Decimal {
	return v.Round(c.minorUnits)
}
