package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var salaryColumnNames = []string{
	"id", "employee_id", "effective_from", "created_by", "created_at",
	"base_salary", "housing_allowance", "transport_allowance", "other_allowances",
}

var payslipColumnNames = []string{
	"id", "employee_id", "period_start", "period_end",
	"base_salary", "allowances", "overtime_hours", "overtime_source", "overtime_pay",
	"bonus", "commission", "gross_pay", "social_security", "tax_deduction",
	"other_deductions", "net_pay", "status", "paid_at", "paid_by", "created_at",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func pendingPayslipRow(rows *pgxmock.Rows, id string, paidAt *time.Time, status string) *pgxmock.Rows {
	period := january()
	return rows.AddRow(id, "emp-1", period.Start, period.End,
		"20000.00", "0.00", "0.00", OvertimeSourceHours, "0.00",
		"0.00", "0.00", "20000.00", "750.00", "375.00",
		"0.00", "18875.00", status, paidAt, "", time.Now())
}

func TestStoreInsertSalaryStructure(t *testing.T) {
	store, mock := newMockStore(t)
	effective := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO salary_structures").
		WithArgs(testTenant, "emp-1", effective, "hr-1", "5000", "600", "0", "0").
		WillReturnRows(pgxmock.NewRows(salaryColumnNames).
			AddRow("ss-1", "emp-1", effective, "hr-1", time.Now(), "5000.00", "600.00", "0.00", "0.00"))

	created, err := store.InsertSalaryStructure(context.Background(), testTenant, SalaryStructureVersion{
		EmployeeID:    "emp-1",
		EffectiveFrom: effective,
		CreatedBy:     "hr-1",
		SalaryStructure: SalaryStructure{
			BaseSalary:       dec("5000"),
			HousingAllowance: dec("600"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ss-1", created.ID)
	assertAmount(t, "5000", created.BaseSalary)
	assertAmount(t, "600", created.HousingAllowance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInsertSalaryStructureDuplicateDate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO salary_structures").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	_, err := store.InsertSalaryStructure(context.Background(), testTenant, SalaryStructureVersion{
		EmployeeID:    "emp-1",
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrDuplicateEffectiveDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSalaryStructureAtNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	at := january().End

	mock.ExpectQuery("FROM salary_structures").
		WithArgs(testTenant, "emp-1", at).
		WillReturnRows(pgxmock.NewRows(salaryColumnNames))

	_, err := store.SalaryStructureAt(context.Background(), testTenant, "emp-1", at)
	assert.ErrorIs(t, err, ErrSalaryStructureNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInsertSalaryStructureForeignEmployee(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO salary_structures .* WHERE EXISTS \(SELECT 1 FROM employees WHERE tenant_id = \$1 AND id = \$2\)`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(salaryColumnNames))

	_, err := store.InsertSalaryStructure(context.Background(), testTenant, SalaryStructureVersion{
		EmployeeID:      "emp-other-tenant",
		EffectiveFrom:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SalaryStructure: SalaryStructure{BaseSalary: dec("5000")},
	})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertPeriodInputsScopedToTenant(t *testing.T) {
	store, mock := newMockStore(t)
	inputs := StoredInputs{EmployeeID: "emp-1", Period: january(), Bonus: dec("250"), UpdatedBy: "hr-1"}
	args := []any{testTenant, "emp-1", inputs.Period.Start, inputs.Period.End,
		pgxmock.AnyArg(), "", "250", "0", "0", pgxmock.AnyArg()}

	mock.ExpectExec(`INSERT INTO payroll_period_inputs .* WHERE EXISTS`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO payroll_period_inputs .* WHERE EXISTS`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, store.UpsertPeriodInputs(context.Background(), testTenant, inputs))
	assert.ErrorIs(t, store.UpsertPeriodInputs(context.Background(), testTenant, inputs), ErrEmployeeNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetPeriodInputsAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	period := january()

	mock.ExpectQuery("FROM payroll_period_inputs").
		WithArgs(testTenant, "emp-1", period.Start, period.End).
		WillReturnRows(pgxmock.NewRows([]string{"overtime_pay", "overtime_policy", "bonus", "commission", "other_deductions", "updated_by"}))

	_, ok, err := store.GetPeriodInputs(context.Background(), testTenant, "emp-1", period)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetPeriodInputsWithSuppliedOvertime(t *testing.T) {
	store, mock := newMockStore(t)
	period := january()
	overtime := "800.00"

	mock.ExpectQuery("FROM payroll_period_inputs").
		WithArgs(testTenant, "emp-1", period.Start, period.End).
		WillReturnRows(pgxmock.NewRows([]string{"overtime_pay", "overtime_policy", "bonus", "commission", "other_deductions", "updated_by"}).
			AddRow(&overtime, PolicyWorkingDays, "250.00", "0.00", "100.00", "hr-1"))

	inputs, ok, err := store.GetPeriodInputs(context.Background(), testTenant, "emp-1", period)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, inputs.OvertimePay)
	assertAmount(t, "800", *inputs.OvertimePay)
	assert.Equal(t, PolicyWorkingDays, inputs.OvertimePolicy)
	assertAmount(t, "250", inputs.Bonus)
	assertAmount(t, "100", inputs.OtherDeductions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertPendingPayslipRefusesPaid(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO payslips").
		WillReturnRows(pgxmock.NewRows(payslipColumnNames))

	period := january()
	_, err := store.UpsertPendingPayslip(context.Background(), testTenant, Payslip{
		EmployeeID:  "emp-1",
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	})
	assert.ErrorIs(t, err, ErrPayslipAlreadyPaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListPayslipsWithFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM payslips WHERE tenant_id = \$1 AND employee_id = \$2 AND status = \$3 ORDER BY period_start DESC, employee_id LIMIT \$4 OFFSET \$5`).
		WithArgs(testTenant, "emp-1", PayslipStatusPending, 20, 40).
		WillReturnRows(pendingPayslipRow(pgxmock.NewRows(payslipColumnNames), "ps-1", (*time.Time)(nil), PayslipStatusPending))

	slips, err := store.ListPayslips(context.Background(), testTenant, PayslipFilter{EmployeeID: "emp-1", Status: PayslipStatusPending}, 20, 40)
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.Equal(t, "ps-1", slips[0].ID)
	assert.Nil(t, slips[0].PaidAt)
	assertAmount(t, "18875", slips[0].NetPay)
	assertAmount(t, "375", slips[0].TaxDeduction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkPayslipPaidTwice(t *testing.T) {
	store, mock := newMockStore(t)
	paidAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE payslips").
		WithArgs(testTenant, "ps-1", paidAt, "acct-1").
		WillReturnRows(pgxmock.NewRows(payslipColumnNames))
	mock.ExpectQuery("FROM payslips").
		WithArgs(testTenant, "ps-1").
		WillReturnRows(pendingPayslipRow(pgxmock.NewRows(payslipColumnNames), "ps-1", &paidAt, PayslipStatusPaid))

	_, err := store.MarkPayslipPaid(context.Background(), testTenant, "ps-1", "acct-1", paidAt)
	assert.ErrorIs(t, err, ErrPayslipAlreadyPaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkPayslipPaidMissing(t *testing.T) {
	store, mock := newMockStore(t)
	paidAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE payslips").
		WithArgs(testTenant, "ps-9", paidAt, "acct-1").
		WillReturnRows(pgxmock.NewRows(payslipColumnNames))
	mock.ExpectQuery("FROM payslips").
		WithArgs(testTenant, "ps-9").
		WillReturnRows(pgxmock.NewRows(payslipColumnNames))

	_, err := store.MarkPayslipPaid(context.Background(), testTenant, "ps-9", "acct-1", paidAt)
	assert.ErrorIs(t, err, ErrPayslipNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayslipWhere(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := payslipWhere(testTenant, PayslipFilter{Status: PayslipStatusPaid, PeriodStart: start})
	assert.Equal(t, " WHERE tenant_id = $1 AND status = $2 AND period_start >= $3", where)
	assert.Equal(t, []any{testTenant, PayslipStatusPaid, start}, args)
}
