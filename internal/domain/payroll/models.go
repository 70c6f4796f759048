package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type SalaryStructure struct {
	BaseSalary         decimal.Decimal `json:"baseSalary"`
	HousingAllowance   decimal.Decimal `json:"housingAllowance"`
	TransportAllowance decimal.Decimal `json:"transportAllowance"`
	OtherAllowances    decimal.Decimal `json:"otherAllowances"`
}

func (s SalaryStructure) Validate() error {
	return storable(
		namedAmount{"baseSalary", s.BaseSalary},
		namedAmount{"housingAllowance", s.HousingAllowance},
		namedAmount{"transportAllowance", s.TransportAllowance},
		namedAmount{"otherAllowances", s.OtherAllowances},
	)
}

// SalaryStructureVersion is one append-only entry in an employee's
// compensation history.
type SalaryStructureVersion struct {
	ID            string    `json:"id"`
	EmployeeID    string    `json:"employeeId"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	SalaryStructure
}

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether day falls within the period, both ends inclusive.
func (p Period) Contains(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

// PeriodInputs holds the per-period amounts that sit on top of a salary
// structure. When OvertimePay is set it is used as-is and OvertimeHours is
// informational only.
type PeriodInputs struct {
	Period          Period           `json:"period"`
	OvertimeHours   decimal.Decimal  `json:"overtimeHours"`
	OvertimePay     *decimal.Decimal `json:"overtimePay,omitempty"`
	OvertimePolicy  string           `json:"overtimePolicy,omitempty"`
	Bonus           decimal.Decimal  `json:"bonus"`
	Commission      decimal.Decimal  `json:"commission"`
	OtherDeductions decimal.Decimal  `json:"otherDeductions"`
}

func (in PeriodInputs) Validate() error {
	if err := in.Period.Validate(); err != nil {
		return err
	}
	fields := []namedAmount{
		{"overtimeHours", in.OvertimeHours},
		{"bonus", in.Bonus},
		{"commission", in.Commission},
		{"otherDeductions", in.OtherDeductions},
	}
	if in.OvertimePay != nil {
		fields = append(fields, namedAmount{"overtimePay", *in.OvertimePay})
	}
	return storable(fields...)
}

func (in PeriodInputs) OvertimeSource() string {
	if in.OvertimePay != nil {
		return OvertimeSourceAmount
	}
	return OvertimeSourceHours
}

type PayslipResult struct {
	Allowances     decimal.Decimal `json:"allowances"`
	OvertimePay    decimal.Decimal `json:"overtimePay"`
	GrossPay       decimal.Decimal `json:"grossPay"`
	SocialSecurity decimal.Decimal `json:"socialSecurity"`
	TaxDeduction   decimal.Decimal `json:"taxDeduction"`
	NetPay         decimal.Decimal `json:"netPay"`
}

// StoredInputs is what HR or accounting entered for an employee and period.
type StoredInputs struct {
	EmployeeID      string
	Period          Period
	OvertimePay     *decimal.Decimal
	OvertimePolicy  string
	Bonus           decimal.Decimal
	Commission      decimal.Decimal
	OtherDeductions decimal.Decimal
	UpdatedBy       string
}

type Payslip struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	PeriodStart     time.Time       `json:"periodStart"`
	PeriodEnd       time.Time       `json:"periodEnd"`
	BaseSalary      decimal.Decimal `json:"baseSalary"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
	OvertimeSource  string          `json:"overtimeSource"`
	Bonus           decimal.Decimal `json:"bonus"`
	Commission      decimal.Decimal `json:"commission"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	Status          string          `json:"status"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaidBy          string          `json:"paidBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	PayslipResult
}

func (p Payslip) Period() Period {
	return Period{Start: p.PeriodStart, End: p.PeriodEnd}
}

type PayslipFilter struct {
	EmployeeID  string
	Status      string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type Employee struct {
	ID        string
	UserID    string
	FirstName string
	LastName  string
	Email     string
}

type SkippedEmployee struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

type RunSummary struct {
	Period          Period            `json:"period"`
	EmployeeCount   int               `json:"employeeCount"`
	CalculatedCount int               `json:"calculatedCount"`
	Skipped         []SkippedEmployee `json:"skipped"`
	TotalGross      decimal.Decimal   `json:"totalGross"`
	TotalNet        decimal.Decimal   `json:"totalNet"`
}
