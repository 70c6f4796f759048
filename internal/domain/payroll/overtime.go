package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OvertimePolicy derives an hourly rate from a monthly base salary.
type OvertimePolicy struct {
	Name                string
	HoursPerDay         decimal.Decimal
	WorkingDaysPerMonth decimal.Decimal
	Multiplier          decimal.Decimal
}

const (
	PolicyFlatMonthlyHours = "flat_160"
	PolicyWorkingDays      = "working_days_8x22"
)

var overtimeMultiplier = decimal.RequireFromString("1.5")

// FlatMonthlyHoursPolicy divides the base salary by a flat 160 hour month.
var FlatMonthlyHoursPolicy = OvertimePolicy{
	Name:                PolicyFlatMonthlyHours,
	HoursPerDay:         decimal.NewFromInt(8),
	WorkingDaysPerMonth: decimal.NewFromInt(20),
	Multiplier:          overtimeMultiplier,
}

// WorkingDaysPolicy divides the base salary by 8 hours over 22 working days.
var WorkingDaysPolicy = OvertimePolicy{
	Name:                PolicyWorkingDays,
	HoursPerDay:         decimal.NewFromInt(8),
	WorkingDaysPerMonth: decimal.NewFromInt(22),
	Multiplier:          overtimeMultiplier,
}

func (p OvertimePolicy) StandardMonthlyHours() decimal.Decimal {
	return p.HoursPerDay.Mul(p.WorkingDaysPerMonth)
}

func (p OvertimePolicy) Validate() error {
	if !p.HoursPerDay.IsPositive() || !p.WorkingDaysPerMonth.IsPositive() {
		return fmt.Errorf("%w: overtime policy %q needs positive hours per day and working days", ErrInvalidInput, p.Name)
	}
	if p.Multiplier.IsNegative() {
		return fmt.Errorf("%w: overtime policy %q multiplier must not be negative", ErrInvalidInput, p.Name)
	}
	return nil
}

// HourlyRate is baseSalary over the policy's standard monthly hours.
func (p OvertimePolicy) HourlyRate(baseSalary decimal.Decimal) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := NonNegative("baseSalary", baseSalary); err != nil {
		return decimal.Zero, err
	}
	return baseSalary.Div(p.StandardMonthlyHours()), nil
}

// OvertimeRate is the hourly rate scaled by the policy multiplier.
func (p OvertimePolicy) OvertimeRate(baseSalary decimal.Decimal) (decimal.Decimal, error) {
	hourly, err := p.HourlyRate(baseSalary)
	if err != nil {
		return decimal.Zero, err
	}
	return hourly.Mul(p.Multiplier), nil
}

// ComputeOvertimePay prices overtime hours at the policy's overtime rate. The
// result is not rounded.
func ComputeOvertimePay(baseSalary, overtimeHours decimal.Decimal, policy OvertimePolicy) (decimal.Decimal, error) {
	if err := NonNegative("overtimeHours", overtimeHours); err != nil {
		return decimal.Zero, err
	}
	rate, err := policy.OvertimeRate(baseSalary)
	if err != nil {
		return decimal.Zero, err
	}
	return overtimeHours.Mul(rate), nil
}

// SuppliedOvertimePay accepts an overtime amount reported directly by HR.
func SuppliedOvertimePay(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := NonNegative("overtimePay", amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
