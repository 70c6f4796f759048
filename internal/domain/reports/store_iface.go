package reports

import "context"

type StoreAPI interface {
	EmployeePayslipCounts(ctx context.Context, tenantID, employeeID string) (int, int, error)
	LatestPayslip(ctx context.Context, tenantID, employeeID string) (*PayslipSnapshot, error)
	PendingOvertime(ctx context.Context, tenantID, employeeID string) (int, error)
	EmployeeCoverage(ctx context.Context, tenantID string) (int, int, error)
	PayslipTotals(ctx context.Context, tenantID, status string) (StatusTotals, error)
}
