package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/overtime"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/db"
)

type Store struct {
	DB db.DBTX
}

func NewStore(conn db.DBTX) *Store {
	return &Store{DB: conn}
}

func (s *Store) EmployeePayslipCounts(ctx context.Context, tenantID, employeeID string) (total, pending int, err error) {
	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(1) FILTER (WHERE status = $3)
    FROM payslips
    WHERE tenant_id = $1 AND employee_id = $2
  `, tenantID, employeeID, payroll.PayslipStatusPending).Scan(&total, &pending)
	return total, pending, err
}

// LatestPayslip returns nil when the employee has no payslip yet.
func (s *Store) LatestPayslip(ctx context.Context, tenantID, employeeID string) (*PayslipSnapshot, error) {
	var (
		snap   PayslipSnapshot
		netRaw string
	)
	err := s.DB.QueryRow(ctx, `
    SELECT period_start, period_end, net_pay::text, status
    FROM payslips
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY period_end DESC
    LIMIT 1
  `, tenantID, employeeID).Scan(&snap.PeriodStart, &snap.PeriodEnd, &netRaw, &snap.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if snap.NetPay, err = decimal.NewFromString(netRaw); err != nil {
		return nil, fmt.Errorf("parse net_pay: %w", err)
	}
	return &snap, nil
}

// PendingOvertime counts pending requests, for one employee when employeeID
// is set or tenant-wide otherwise.
func (s *Store) PendingOvertime(ctx context.Context, tenantID, employeeID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM overtime_requests
    WHERE tenant_id = $1 AND status = $2 AND ($3 = '' OR employee_id::text = $3)
  `, tenantID, overtime.StatusPending, employeeID).Scan(&count)
	return count, err
}

func (s *Store) EmployeeCoverage(ctx context.Context, tenantID string) (active, withoutStructure int, err error) {
	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1),
           COUNT(1) FILTER (WHERE NOT EXISTS (
             SELECT 1 FROM salary_structures s
             WHERE s.tenant_id = e.tenant_id AND s.employee_id = e.id
           ))
    FROM employees e
    WHERE e.tenant_id = $1 AND e.status = 'active'
  `, tenantID).Scan(&active, &withoutStructure)
	return active, withoutStructure, err
}

func (s *Store) PayslipTotals(ctx context.Context, tenantID, status string) (StatusTotals, error) {
	totals := StatusTotals{Status: status}
	var grossRaw, netRaw string
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COALESCE(SUM(gross_pay), 0)::text, COALESCE(SUM(net_pay), 0)::text
    FROM payslips
    WHERE tenant_id = $1 AND status = $2
  `, tenantID, status).Scan(&totals.Count, &grossRaw, &netRaw); err != nil {
		return StatusTotals{}, err
	}
	var err error
	if totals.GrossPay, err = decimal.NewFromString(grossRaw); err != nil {
		return StatusTotals{}, fmt.Errorf("parse gross total: %w", err)
	}
	if totals.NetPay, err = decimal.NewFromString(netRaw); err != nil {
		return StatusTotals{}, fmt.Errorf("parse net total: %w", err)
	}
	return totals, nil
}
