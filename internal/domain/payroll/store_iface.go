package payroll

import (
	"context"
	"time"
)

type StoreAPI interface {
	InsertSalaryStructure(ctx context.Context, tenantID string, version SalaryStructureVersion) (SalaryStructureVersion, error)
	ListSalaryStructures(ctx context.Context, tenantID, employeeID string) ([]SalaryStructureVersion, error)
	SalaryStructureAt(ctx context.Context, tenantID, employeeID string, at time.Time) (SalaryStructureVersion, error)
	UpsertPeriodInputs(ctx context.Context, tenantID string, inputs StoredInputs) error
	GetPeriodInputs(ctx context.Context, tenantID, employeeID string, period Period) (StoredInputs, bool, error)
	ListActiveEmployees(ctx context.Context, tenantID string) ([]Employee, error)
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
	UpsertPendingPayslip(ctx context.Context, tenantID string, slip Payslip) (Payslip, error)
	GetPayslip(ctx context.Context, tenantID, payslipID string) (Payslip, error)
	CountPayslips(ctx context.Context, tenantID string, filter PayslipFilter) (int, error)
	ListPayslips(ctx context.Context, tenantID string, filter PayslipFilter, limit, offset int) ([]Payslip, error)
	MarkPayslipPaid(ctx context.Context, tenantID, payslipID, actorID string, paidAt time.Time) (Payslip, error)
}
