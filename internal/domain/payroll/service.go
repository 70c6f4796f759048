package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OvertimeSource reports approved overtime hours for an employee within a period.
type OvertimeSource interface {
	ApprovedHours(ctx context.Context, tenantID, employeeID string, period Period) (decimal.Decimal, error)
}

type Service struct {
	store    StoreAPI
	calc     *Calculator
	overtime OvertimeSource
	workers  int
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store StoreAPI, calc *Calculator, overtime OvertimeSource, workers int, logger *zap.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		calc:     calc,
		overtime: overtime,
		workers:  workers,
		logger:   logger.Named("payroll"),
		now:      time.Now,
	}
}

func (s *Service) RecordSalaryStructure(ctx context.Context, tenantID, actorID, employeeID string, structure SalaryStructure, effectiveFrom time.Time) (SalaryStructureVersion, error) {
	if employeeID == "" {
		return SalaryStructureVersion{}, fmt.Errorf("%w: employee is required", ErrInvalidInput)
	}
	if effectiveFrom.IsZero() {
		return SalaryStructureVersion{}, fmt.Errorf("%w: effective date is required", ErrInvalidInput)
	}
	if err := structure.Validate(); err != nil {
		return SalaryStructureVersion{}, err
	}
	return s.store.InsertSalaryStructure(ctx, tenantID, SalaryStructureVersion{
		EmployeeID:      employeeID,
		EffectiveFrom:   effectiveFrom,
		CreatedBy:       actorID,
		SalaryStructure: structure,
	})
}

func (s *Service) SalaryHistory(ctx context.Context, tenantID, employeeID string) ([]SalaryStructureVersion, error) {
	return s.store.ListSalaryStructures(ctx, tenantID, employeeID)
}

func (s *Service) StructureAt(ctx context.Context, tenantID, employeeID string, at time.Time) (SalaryStructureVersion, error) {
	return s.store.SalaryStructureAt(ctx, tenantID, employeeID, at)
}

func (s *Service) SavePeriodInputs(ctx context.Context, tenantID string, inputs StoredInputs) error {
	if inputs.EmployeeID == "" {
		return fmt.Errorf("%w: employee is required", ErrInvalidInput)
	}
	candidate := PeriodInputs{
		Period:          inputs.Period,
		OvertimePay:     inputs.OvertimePay,
		OvertimePolicy:  inputs.OvertimePolicy,
		Bonus:           inputs.Bonus,
		Commission:      inputs.Commission,
		OtherDeductions: inputs.OtherDeductions,
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	if inputs.OvertimePolicy != "" {
		if _, err := s.calc.OvertimePolicy(inputs.OvertimePolicy); err != nil {
			return err
		}
	}
	return s.store.UpsertPeriodInputs(ctx, tenantID, inputs)
}

// Preview runs the engine without touching storage.
func (s *Service) Preview(structure SalaryStructure, inputs PeriodInputs) (PayslipResult, error) {
	return s.calc.Calculate(structure, inputs)
}

func (s *Service) EstimateWithholding(grossPay decimal.Decimal) (WithholdingEstimate, error) {
	return s.calc.EstimateWithholding(grossPay)
}

// snapshot gathers everything one payslip depends on before any computation.
func (s *Service) snapshot(ctx context.Context, tenantID, employeeID string, period Period) (SalaryStructure, PeriodInputs, error) {
	version, err := s.store.SalaryStructureAt(ctx, tenantID, employeeID, period.End)
	if err != nil {
		return SalaryStructure{}, PeriodInputs{}, err
	}
	in := PeriodInputs{Period: period}
	stored, ok, err := s.store.GetPeriodInputs(ctx, tenantID, employeeID, period)
	if err != nil {
		return SalaryStructure{}, PeriodInputs{}, err
	}
	if ok {
		in.OvertimePay = stored.OvertimePay
		in.OvertimePolicy = stored.OvertimePolicy
		in.Bonus = stored.Bonus
		in.Commission = stored.Commission
		in.OtherDeductions = stored.OtherDeductions
	}
	if s.overtime != nil {
		hours, err := s.overtime.ApprovedHours(ctx, tenantID, employeeID, period)
		if err != nil {
			return SalaryStructure{}, PeriodInputs{}, fmt.Errorf("approved overtime: %w", err)
		}
		in.OvertimeHours = hours
	}
	return version.SalaryStructure, in, nil
}

// CalculatePayslip computes and stores the pending payslip for one employee
// and period. Recalculating replaces an earlier pending result.
func (s *Service) CalculatePayslip(ctx context.Context, tenantID, employeeID string, period Period) (Payslip, error) {
	if err := period.Validate(); err != nil {
		return Payslip{}, err
	}
	structure, in, err := s.snapshot(ctx, tenantID, employeeID, period)
	if err != nil {
		return Payslip{}, err
	}
	result, err := s.calc.Calculate(structure, in)
	if err != nil {
		return Payslip{}, err
	}
	return s.store.UpsertPendingPayslip(ctx, tenantID, Payslip{
		EmployeeID:      employeeID,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		BaseSalary:      structure.BaseSalary,
		OvertimeHours:   in.OvertimeHours,
		OvertimeSource:  in.OvertimeSource(),
		Bonus:           in.Bonus,
		Commission:      in.Commission,
		OtherDeductions: in.OtherDeductions,
		Status:          PayslipStatusPending,
		PayslipResult:   result,
	})
}

func skipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrSalaryStructureNotFound):
		return "no salary structure effective for period", true
	case errors.Is(err, ErrPayslipAlreadyPaid):
		return "payslip already paid", true
	case errors.Is(err, ErrInvalidInput):
		return err.Error(), true
	}
	return "", false
}

// RunPeriod calculates payslips for every active employee. Employees that
// cannot be paid for this period are listed in the summary; storage failures
// abort the run.
func (s *Service) RunPeriod(ctx context.Context, tenantID string, period Period) (RunSummary, error) {
	if err := period.Validate(); err != nil {
		return RunSummary{}, err
	}
	employees, err := s.store.ListActiveEmployees(ctx, tenantID)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		Period:        period,
		EmployeeCount: len(employees),
		Skipped:       []SkippedEmployee{},
		TotalGross:    decimal.Zero,
		TotalNet:      decimal.Zero,
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, employee := range employees {
		g.Go(func() error {
			slip, err := s.CalculatePayslip(gctx, tenantID, employee.ID, period)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason, skip := skipReason(err)
				if !skip {
					return fmt.Errorf("employee %s: %w", employee.ID, err)
				}
				summary.Skipped = append(summary.Skipped, SkippedEmployee{EmployeeID: employee.ID, Reason: reason})
				return nil
			}
			summary.CalculatedCount++
			summary.TotalGross = summary.TotalGross.Add(slip.GrossPay)
			summary.TotalNet = summary.TotalNet.Add(slip.NetPay)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("payroll run failed", zap.String("tenantId", tenantID), zap.Error(err))
		return RunSummary{}, err
	}

	sort.Slice(summary.Skipped, func(i, j int) bool {
		return summary.Skipped[i].EmployeeID < summary.Skipped[j].EmployeeID
	})
	s.logger.Info("payroll run completed",
		zap.String("tenantId", tenantID),
		zap.Time("periodStart", period.Start),
		zap.Time("periodEnd", period.End),
		zap.Int("employees", summary.EmployeeCount),
		zap.Int("calculated", summary.CalculatedCount),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return summary, nil
}

func (s *Service) ListPayslips(ctx context.Context, tenantID string, filter PayslipFilter, limit, offset int) ([]Payslip, int, error) {
	total, err := s.store.CountPayslips(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	slips, err := s.store.ListPayslips(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return slips, total, nil
}

func (s *Service) GetPayslip(ctx context.Context, tenantID, payslipID string) (Payslip, error) {
	return s.store.GetPayslip(ctx, tenantID, payslipID)
}

// MarkPaid moves a pending payslip to paid. Paid payslips are final.
func (s *Service) MarkPaid(ctx context.Context, tenantID, actorID, payslipID string) (Payslip, error) {
	return s.store.MarkPayslipPaid(ctx, tenantID, payslipID, actorID, s.now().UTC())
}

func (s *Service) EmployeeIDForUser(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, tenantID, userID)
}
