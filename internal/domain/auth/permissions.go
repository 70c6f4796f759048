package auth

const (
	RoleEmployee   = "employee"
	RoleHR         = "hr"
	RoleAccountant = "accountant"
	RoleAdmin      = "admin"
)

const (
	PermPayrollCalculate   = "payroll.calculate"
	PermSalaryRead         = "payroll.salary.read"
	PermSalaryWrite        = "payroll.salary.write"
	PermPayrollInputsWrite = "payroll.inputs.write"
	PermPayrollRun         = "payroll.run"
	PermPayslipsRead       = "payroll.payslips.read"
	PermPayrollPay         = "payroll.pay"
	PermOvertimeRead       = "overtime.read"
	PermOvertimeRequest    = "overtime.request"
	PermOvertimeApprove    = "overtime.approve"
	PermAuditRead          = "audit.read"
	PermReportsRead        = "reports.read"
)

var DefaultRoles = []string{RoleEmployee, RoleHR, RoleAccountant, RoleAdmin}

var DefaultPermissions = []string{
	PermPayrollCalculate,
	PermSalaryRead,
	PermSalaryWrite,
	PermPayrollInputsWrite,
	PermPayrollRun,
	PermPayslipsRead,
	PermPayrollPay,
	PermOvertimeRead,
	PermOvertimeRequest,
	PermOvertimeApprove,
	PermAuditRead,
	PermReportsRead,
}

// RolePermissions is the built-in policy. Employees only ever see their own
// payslips and overtime requests; handlers enforce that scoping.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermPayslipsRead,
		PermOvertimeRead,
		PermOvertimeRequest,
		PermReportsRead,
	},
	RoleHR: {
		PermPayrollCalculate,
		PermSalaryRead,
		PermSalaryWrite,
		PermPayrollInputsWrite,
		PermPayslipsRead,
		PermOvertimeRead,
		PermOvertimeRequest,
		PermOvertimeApprove,
		PermReportsRead,
	},
	RoleAccountant: {
		PermPayrollCalculate,
		PermSalaryRead,
		PermPayrollInputsWrite,
		PermPayrollRun,
		PermPayslipsRead,
		PermPayrollPay,
		PermOvertimeRead,
		PermReportsRead,
	},
	RoleAdmin: DefaultPermissions,
}

// SeesOnlyOwnRecords reports whether a role is restricted to its own
// employee record when reading payslips and overtime requests.
func SeesOnlyOwnRecords(role string) bool {
	return role == RoleEmployee
}
