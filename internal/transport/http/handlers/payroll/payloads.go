package payrollhandler

import (
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/shared"
)

type calculatePayload struct {
	BaseSalary         *decimal.Decimal `json:"baseSalary" validate:"required,gte=0"`
	HousingAllowance   decimal.Decimal  `json:"housingAllowance" validate:"gte=0"`
	TransportAllowance decimal.Decimal  `json:"transportAllowance" validate:"gte=0"`
	OtherAllowances    decimal.Decimal  `json:"otherAllowances" validate:"gte=0"`
	OvertimeHours      decimal.Decimal  `json:"overtimeHours" validate:"gte=0"`
	OvertimePay        *decimal.Decimal `json:"overtimePay,omitempty" validate:"omitempty,gte=0"`
	OvertimePolicy     string           `json:"overtimePolicy,omitempty" validate:"max=64"`
	Bonus              decimal.Decimal  `json:"bonus" validate:"gte=0"`
	Commission         decimal.Decimal  `json:"commission" validate:"gte=0"`
	OtherDeductions    decimal.Decimal  `json:"otherDeductions" validate:"gte=0"`
	PayPeriodStart     string           `json:"payPeriodStart" validate:"required"`
	PayPeriodEnd       string           `json:"payPeriodEnd" validate:"required"`
}

func (p calculatePayload) structure() payroll.SalaryStructure {
	var base decimal.Decimal
	if p.BaseSalary != nil {
		base = *p.BaseSalary
	}
	return payroll.SalaryStructure{
		BaseSalary:         base,
		HousingAllowance:   p.HousingAllowance,
		TransportAllowance: p.TransportAllowance,
		OtherAllowances:    p.OtherAllowances,
	}
}

func (p calculatePayload) inputs(period payroll.Period) payroll.PeriodInputs {
	return payroll.PeriodInputs{
		Period:          period,
		OvertimeHours:   p.OvertimeHours,
		OvertimePay:     p.OvertimePay,
		OvertimePolicy:  p.OvertimePolicy,
		Bonus:           p.Bonus,
		Commission:      p.Commission,
		OtherDeductions: p.OtherDeductions,
	}
}

type calculateResponse struct {
	Period payroll.Period `json:"period"`
	payroll.PayslipResult
}

type withholdingPayload struct {
	GrossPay *decimal.Decimal `json:"grossPay" validate:"required,gte=0"`
}

type salaryStructurePayload struct {
	BaseSalary         *decimal.Decimal `json:"baseSalary" validate:"required,gte=0"`
	HousingAllowance   decimal.Decimal  `json:"housingAllowance" validate:"gte=0"`
	TransportAllowance decimal.Decimal  `json:"transportAllowance" validate:"gte=0"`
	OtherAllowances    decimal.Decimal  `json:"otherAllowances" validate:"gte=0"`
	EffectiveFrom      string           `json:"effectiveFrom" validate:"required"`
}

func (p salaryStructurePayload) structure() payroll.SalaryStructure {
	var base decimal.Decimal
	if p.BaseSalary != nil {
		base = *p.BaseSalary
	}
	return payroll.SalaryStructure{
		BaseSalary:         base,
		HousingAllowance:   p.HousingAllowance,
		TransportAllowance: p.TransportAllowance,
		OtherAllowances:    p.OtherAllowances,
	}
}

type periodInputsPayload struct {
	PeriodStart     string           `json:"periodStart" validate:"required"`
	PeriodEnd       string           `json:"periodEnd" validate:"required"`
	OvertimePay     *decimal.Decimal `json:"overtimePay,omitempty" validate:"omitempty,gte=0"`
	OvertimePolicy  string           `json:"overtimePolicy,omitempty" validate:"max=64"`
	Bonus           decimal.Decimal  `json:"bonus" validate:"gte=0"`
	Commission      decimal.Decimal  `json:"commission" validate:"gte=0"`
	OtherDeductions decimal.Decimal  `json:"otherDeductions" validate:"gte=0"`
}

type periodPayload struct {
	PeriodStart string `json:"periodStart" validate:"required"`
	PeriodEnd   string `json:"periodEnd" validate:"required"`
}

type runAccepted struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// periodFrom parses both dates and checks their order. Fields already
// reported as missing are not reported twice.
func periodFrom(v *shared.Validator, startField, rawStart, endField, rawEnd string) payroll.Period {
	var period payroll.Period
	if rawStart != "" {
		period.Start, _ = v.Date(startField, rawStart)
	}
	if rawEnd != "" {
		period.End, _ = v.Date(endField, rawEnd)
	}
	v.DateOrder(startField, period.Start, endField, period.End)
	return period
}
