package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const salaryColumns = `id::text, employee_id::text, effective_from, COALESCE(created_by::text, ''), created_at,
           base_salary::text, housing_allowance::text, transport_allowance::text, other_allowances::text`

func scanSalaryStructure(row scanner) (SalaryStructureVersion, error) {
	var version SalaryStructureVersion
	var base, housing, transport, other string
	if err := row.Scan(&version.ID, &version.EmployeeID, &version.EffectiveFrom, &version.CreatedBy, &version.CreatedAt,
		&base, &housing, &transport, &other); err != nil {
		return SalaryStructureVersion{}, err
	}
	var err error
	if version.BaseSalary, err = parseAmount("base_salary", base); err != nil {
		return SalaryStructureVersion{}, err
	}
	if version.HousingAllowance, err = parseAmount("housing_allowance", housing); err != nil {
		return SalaryStructureVersion{}, err
	}
	if version.TransportAllowance, err = parseAmount("transport_allowance", transport); err != nil {
		return SalaryStructureVersion{}, err
	}
	if version.OtherAllowances, err = parseAmount("other_allowances", other); err != nil {
		return SalaryStructureVersion{}, err
	}
	return version, nil
}

func (s *Store) InsertSalaryStructure(ctx context.Context, tenantID string, version SalaryStructureVersion) (SalaryStructureVersion, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO salary_structures (tenant_id, employee_id, effective_from, created_by,
      base_salary, housing_allowance, transport_allowance, other_allowances)
    SELECT $1::uuid, $2::uuid, $3::date, $4::uuid, $5::numeric, $6::numeric, $7::numeric, $8::numeric
    WHERE EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1 AND id = $2)
    RETURNING `+salaryColumns,
		tenantID, version.EmployeeID, version.EffectiveFrom, nullIfEmpty(version.CreatedBy),
		version.BaseSalary.String(), version.HousingAllowance.String(), version.TransportAllowance.String(), version.OtherAllowances.String())
	created, err := scanSalaryStructure(row)
	if err != nil {
		if isUniqueViolation(err) {
			return SalaryStructureVersion{}, ErrDuplicateEffectiveDate
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return SalaryStructureVersion{}, ErrEmployeeNotFound
		}
		return SalaryStructureVersion{}, err
	}
	return created, nil
}

func (s *Store) ListSalaryStructures(ctx context.Context, tenantID, employeeID string) ([]SalaryStructureVersion, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+salaryColumns+`
    FROM salary_structures
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY effective_from DESC
  `, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []SalaryStructureVersion
	for rows.Next() {
		version, err := scanSalaryStructure(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

// SalaryStructureAt returns the latest version effective on or before at.
func (s *Store) SalaryStructureAt(ctx context.Context, tenantID, employeeID string, at time.Time) (SalaryStructureVersion, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+salaryColumns+`
    FROM salary_structures
    WHERE tenant_id = $1 AND employee_id = $2 AND effective_from <= $3
    ORDER BY effective_from DESC
    LIMIT 1
  `, tenantID, employeeID, at)
	version, err := scanSalaryStructure(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalaryStructureVersion{}, ErrSalaryStructureNotFound
		}
		return SalaryStructureVersion{}, err
	}
	return version, nil
}

func (s *Store) ListActiveEmployees(ctx context.Context, tenantID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, COALESCE(user_id::text, ''), first_name, last_name, email
    FROM employees
    WHERE tenant_id = $1 AND status = 'active'
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var employee Employee
		if err := rows.Scan(&employee.ID, &employee.UserID, &employee.FirstName, &employee.LastName, &employee.Email); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

// EmployeeIDByUserID returns "" when the user has no employee record.
func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id::text FROM employees WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
