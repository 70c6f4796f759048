package payroll

const (
	PayslipStatusPending = "pending"
	PayslipStatusPaid    = "paid"

	OvertimeSourceHours  = "hours"
	OvertimeSourceAmount = "amount"

	JobPayrollRun = "payroll_run"

	// DefaultMinorUnits is the number of decimal places payslip amounts are rounded to.
	DefaultMinorUnits int32 = 2
)
