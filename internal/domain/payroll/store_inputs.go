package payroll

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) UpsertPeriodInputs(ctx context.Context, tenantID string, inputs StoredInputs) error {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO payroll_period_inputs (tenant_id, employee_id, period_start, period_end,
      overtime_pay, overtime_policy, bonus, commission, other_deductions, updated_by)
    SELECT $1::uuid, $2::uuid, $3::date, $4::date, $5::numeric, $6::text, $7::numeric, $8::numeric, $9::numeric, $10::uuid
    WHERE EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1 AND id = $2)
    ON CONFLICT (tenant_id, employee_id, period_start, period_end) DO UPDATE SET
      overtime_pay = EXCLUDED.overtime_pay,
      overtime_policy = EXCLUDED.overtime_policy,
      bonus = EXCLUDED.bonus,
      commission = EXCLUDED.commission,
      other_deductions = EXCLUDED.other_deductions,
      updated_by = EXCLUDED.updated_by,
      updated_at = now()
  `, tenantID, inputs.EmployeeID, inputs.Period.Start, inputs.Period.End,
		optionalAmountArg(inputs.OvertimePay), inputs.OvertimePolicy,
		inputs.Bonus.String(), inputs.Commission.String(), inputs.OtherDeductions.String(),
		nullIfEmpty(inputs.UpdatedBy))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// GetPeriodInputs reports false when nothing was entered for the period.
func (s *Store) GetPeriodInputs(ctx context.Context, tenantID, employeeID string, period Period) (StoredInputs, bool, error) {
	inputs := StoredInputs{EmployeeID: employeeID, Period: period}
	var overtimePay *string
	var bonus, commission, other string
	err := s.DB.QueryRow(ctx, `
    SELECT overtime_pay::text, overtime_policy, bonus::text, commission::text, other_deductions::text,
           COALESCE(updated_by::text, '')
    FROM payroll_period_inputs
    WHERE tenant_id = $1 AND employee_id = $2 AND period_start = $3 AND period_end = $4
  `, tenantID, employeeID, period.Start, period.End).Scan(&overtimePay, &inputs.OvertimePolicy, &bonus, &commission, &other, &inputs.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredInputs{}, false, nil
	}
	if err != nil {
		return StoredInputs{}, false, err
	}
	if inputs.OvertimePay, err = parseOptionalAmount("overtime_pay", overtimePay); err != nil {
		return StoredInputs{}, false, err
	}
	if inputs.Bonus, err = parseAmount("bonus", bonus); err != nil {
		return StoredInputs{}, false, err
	}
	if inputs.Commission, err = parseAmount("commission", commission); err != nil {
		return StoredInputs{}, false, err
	}
	if inputs.OtherDeductions, err = parseAmount("other_deductions", other); err != nil {
		return StoredInputs{}, false, err
	}
	return inputs, true, nil
}
