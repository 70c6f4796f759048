package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput            = errors.New("invalid payroll input")
	ErrEmployeeNotFound        = errors.New("employee not found")
	ErrSalaryStructureNotFound = errors.New("no salary structure effective for employee")
	ErrDuplicateEffectiveDate  = errors.New("salary structure already exists for effective date")
	ErrPayslipNotFound         = errors.New("payslip not found")
	ErrPayslipAlreadyPaid      = errors.New("payslip already paid")
)

// ErrInvalidPeriod is also an ErrInvalidInput.
var ErrInvalidPeriod = fmt.Errorf("%w: pay period needs a start and an end on or after it", ErrInvalidInput)
