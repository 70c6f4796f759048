package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
)

type PayslipSnapshot struct {
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
	NetPay      decimal.Decimal `json:"netPay"`
	Status      string          `json:"status"`
}

type StatusTotals struct {
	Status   string          `json:"status"`
	Count    int             `json:"count"`
	GrossPay decimal.Decimal `json:"grossPay"`
	NetPay   decimal.Decimal `json:"netPay"`
}

type EmployeeDashboard struct {
	EmployeeID              string           `json:"employeeId"`
	PayslipCount            int              `json:"payslipCount"`
	PendingPayslips         int              `json:"pendingPayslips"`
	LatestPayslip           *PayslipSnapshot `json:"latestPayslip,omitempty"`
	PendingOvertimeRequests int              `json:"pendingOvertimeRequests"`
	ApprovedOvertimeHours   decimal.Decimal  `json:"approvedOvertimeHoursThisMonth"`
}

type HRDashboard struct {
	ActiveEmployees           int `json:"activeEmployees"`
	EmployeesWithoutStructure int `json:"employeesWithoutSalaryStructure"`
	PendingOvertimeApprovals  int `json:"pendingOvertimeApprovals"`
}

type PayrollDashboard struct {
	Pending StatusTotals `json:"pending"`
	Paid    StatusTotals `json:"paid"`
}

// OvertimeHours is satisfied by the overtime service.
type OvertimeHours interface {
	ApprovedHours(ctx context.Context, tenantID, employeeID string, period payroll.Period) (decimal.Decimal, error)
}

type Service struct {
	store    StoreAPI
	overtime OvertimeHours
	now      func() time.Time
}

func NewService(store StoreAPI, overtimeHours OvertimeHours) *Service {
	return &Service{store: store, overtime: overtimeHours, now: time.Now}
}

func (s *Service) EmployeeDashboard(ctx context.Context, tenantID, employeeID string) (EmployeeDashboard, error) {
	out := EmployeeDashboard{EmployeeID: employeeID}
	var err error
	if out.PayslipCount, out.PendingPayslips, err = s.store.EmployeePayslipCounts(ctx, tenantID, employeeID); err != nil {
		return EmployeeDashboard{}, fmt.Errorf("payslip counts: %w", err)
	}
	if out.LatestPayslip, err = s.store.LatestPayslip(ctx, tenantID, employeeID); err != nil {
		return EmployeeDashboard{}, fmt.Errorf("latest payslip: %w", err)
	}
	if out.PendingOvertimeRequests, err = s.store.PendingOvertime(ctx, tenantID, employeeID); err != nil {
		return EmployeeDashboard{}, fmt.Errorf("pending overtime: %w", err)
	}
	if out.ApprovedOvertimeHours, err = s.overtime.ApprovedHours(ctx, tenantID, employeeID, currentMonth(s.now())); err != nil {
		return EmployeeDashboard{}, fmt.Errorf("approved overtime: %w", err)
	}
	return out, nil
}

func (s *Service) HRDashboard(ctx context.Context, tenantID string) (HRDashboard, error) {
	var (
		out HRDashboard
		err error
	)
	if out.ActiveEmployees, out.EmployeesWithoutStructure, err = s.store.EmployeeCoverage(ctx, tenantID); err != nil {
		return HRDashboard{}, fmt.Errorf("employee coverage: %w", err)
	}
	if out.PendingOvertimeApprovals, err = s.store.PendingOvertime(ctx, tenantID, ""); err != nil {
		return HRDashboard{}, fmt.Errorf("pending overtime: %w", err)
	}
	return out, nil
}

func (s *Service) PayrollDashboard(ctx context.Context, tenantID string) (PayrollDashboard, error) {
	pending, err := s.store.PayslipTotals(ctx, tenantID, payroll.PayslipStatusPending)
	if err != nil {
		return PayrollDashboard{}, fmt.Errorf("pending totals: %w", err)
	}
	paid, err := s.store.PayslipTotals(ctx, tenantID, payroll.PayslipStatusPaid)
	if err != nil {
		return PayrollDashboard{}, fmt.Errorf("paid totals: %w", err)
	}
	return PayrollDashboard{Pending: pending, Paid: paid}, nil
}

// currentMonth is the calendar month containing now, in UTC days.
func currentMonth(now time.Time) payroll.Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return payroll.Period{Start: start, End: start.AddDate(0, 1, -1)}
}
