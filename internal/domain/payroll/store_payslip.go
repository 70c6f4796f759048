package payroll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const payslipColumns = `id::text, employee_id::text, period_start, period_end,
           base_salary::text, allowances::text, overtime_hours::text, overtime_source, overtime_pay::text,
           bonus::text, commission::text, gross_pay::text, social_security::text, tax_deduction::text,
           other_deductions::text, net_pay::text, status, paid_at, COALESCE(paid_by::text, ''), created_at`

func scanPayslip(row scanner) (Payslip, error) {
	var slip Payslip
	var base, allowances, hours, overtime, bonus, commission, gross, social, tax, other, net string
	if err := row.Scan(&slip.ID, &slip.EmployeeID, &slip.PeriodStart, &slip.PeriodEnd,
		&base, &allowances, &hours, &slip.OvertimeSource, &overtime,
		&bonus, &commission, &gross, &social, &tax,
		&other, &net, &slip.Status, &slip.PaidAt, &slip.PaidBy, &slip.CreatedAt); err != nil {
		return Payslip{}, err
	}
	fields := []struct {
		column string
		raw    string
		dest   *decimal.Decimal
	}{
		{"base_salary", base, &slip.BaseSalary},
		{"allowances", allowances, &slip.Allowances},
		{"overtime_hours", hours, &slip.OvertimeHours},
		{"overtime_pay", overtime, &slip.OvertimePay},
		{"bonus", bonus, &slip.Bonus},
		{"commission", commission, &slip.Commission},
		{"gross_pay", gross, &slip.GrossPay},
		{"social_security", social, &slip.SocialSecurity},
		{"tax_deduction", tax, &slip.TaxDeduction},
		{"other_deductions", other, &slip.OtherDeductions},
		{"net_pay", net, &slip.NetPay},
	}
	for _, f := range fields {
		value, err := parseAmount(f.column, f.raw)
		if err != nil {
			return Payslip{}, err
		}
		*f.dest = value
	}
	return slip, nil
}

// UpsertPendingPayslip writes a calculated payslip. An existing pending row
// for the same period is overwritten; a paid one is left alone and
// ErrPayslipAlreadyPaid is returned.
func (s *Store) UpsertPendingPayslip(ctx context.Context, tenantID string, slip Payslip) (Payslip, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO payslips (tenant_id, employee_id, period_start, period_end,
      base_salary, allowances, overtime_hours, overtime_source, overtime_pay,
      bonus, commission, gross_pay, social_security, tax_deduction, other_deductions, net_pay, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,'pending')
    ON CONFLICT (tenant_id, employee_id, period_start, period_end) DO UPDATE SET
      base_salary = EXCLUDED.base_salary,
      allowances = EXCLUDED.allowances,
      overtime_hours = EXCLUDED.overtime_hours,
      overtime_source = EXCLUDED.overtime_source,
      overtime_pay = EXCLUDED.overtime_pay,
      bonus = EXCLUDED.bonus,
      commission = EXCLUDED.commission,
      gross_pay = EXCLUDED.gross_pay,
      social_security = EXCLUDED.social_security,
      tax_deduction = EXCLUDED.tax_deduction,
      other_deductions = EXCLUDED.other_deductions,
      net_pay = EXCLUDED.net_pay,
      updated_at = now()
    WHERE payslips.status = 'pending'
    RETURNING `+payslipColumns,
		tenantID, slip.EmployeeID, slip.PeriodStart, slip.PeriodEnd,
		slip.BaseSalary.String(), slip.Allowances.String(), slip.OvertimeHours.String(), slip.OvertimeSource, slip.OvertimePay.String(),
		slip.Bonus.String(), slip.Commission.String(), slip.GrossPay.String(), slip.SocialSecurity.String(), slip.TaxDeduction.String(),
		slip.OtherDeductions.String(), slip.NetPay.String())
	saved, err := scanPayslip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrPayslipAlreadyPaid
	}
	if err != nil {
		return Payslip{}, err
	}
	return saved, nil
}

func (s *Store) GetPayslip(ctx context.Context, tenantID, payslipID string) (Payslip, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+payslipColumns+`
    FROM payslips
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, payslipID)
	slip, err := scanPayslip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrPayslipNotFound
	}
	if err != nil {
		return Payslip{}, err
	}
	return slip, nil
}

func payslipWhere(tenantID string, filter PayslipFilter) (string, []any) {
	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, clause+" $"+itoa(len(args)))
	}
	if filter.EmployeeID != "" {
		add("employee_id =", filter.EmployeeID)
	}
	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if !filter.PeriodStart.IsZero() {
		add("period_start >=", filter.PeriodStart)
	}
	if !filter.PeriodEnd.IsZero() {
		add("period_end <=", filter.PeriodEnd)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) CountPayslips(ctx context.Context, tenantID string, filter PayslipFilter) (int, error) {
	where, args := payslipWhere(tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPayslips(ctx context.Context, tenantID string, filter PayslipFilter, limit, offset int) ([]Payslip, error) {
	where, args := payslipWhere(tenantID, filter)
	args = append(args, limit, offset)
	query := "SELECT " + payslipColumns + " FROM payslips" + where +
		" ORDER BY period_start DESC, employee_id LIMIT $" + itoa(len(args)-1) + " OFFSET $" + itoa(len(args))
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slips []Payslip
	for rows.Next() {
		slip, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		slips = append(slips, slip)
	}
	return slips, rows.Err()
}

// MarkPayslipPaid flips a pending payslip to paid. A payslip that is already
// paid yields ErrPayslipAlreadyPaid; a missing one ErrPayslipNotFound.
func (s *Store) MarkPayslipPaid(ctx context.Context, tenantID, payslipID, actorID string, paidAt time.Time) (Payslip, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE payslips
    SET status = 'paid', paid_at = $3, paid_by = $4, updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND status = 'pending'
    RETURNING `+payslipColumns,
		tenantID, payslipID, paidAt, nullIfEmpty(actorID))
	slip, err := scanPayslip(row)
	if err == nil {
		return slip, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, err
	}
	if _, err := s.GetPayslip(ctx, tenantID, payslipID); err != nil {
		return Payslip{}, err
	}
	return Payslip{}, ErrPayslipAlreadyPaid
}
