package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hrpay/internal/domain/payroll"
)

type Service struct {
	store  StoreAPI
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("overtime"), now: time.Now}
}

func ValidateHours(hours decimal.Decimal) error {
	if !hours.IsPositive() || hours.GreaterThan(maxHoursPerDay) || payroll.WithinScale("hours", hours) != nil {
		return ErrInvalidHours
	}
	return nil
}

func (s *Service) Submit(ctx context.Context, tenantID, employeeID string, workDate time.Time, hours decimal.Decimal, reason string) (Request, error) {
	if workDate.IsZero() {
		return Request{}, ErrInvalidWorkDate
	}
	if err := ValidateHours(hours); err != nil {
		return Request{}, err
	}
	return s.store.CreateRequest(ctx, tenantID, Request{
		EmployeeID: employeeID,
		WorkDate:   workDate,
		Hours:      hours,
		Reason:     reason,
	})
}

func (s *Service) Get(ctx context.Context, tenantID, requestID string) (Request, error) {
	return s.store.GetRequest(ctx, tenantID, requestID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter, limit, offset int) (ListResult, error) {
	return s.store.ListRequests(ctx, tenantID, filter, limit, offset)
}

// Decide approves or rejects a pending request. Decisions are final.
func (s *Service) Decide(ctx context.Context, tenantID, requestID, actorID string, decision Decision) (Request, error) {
	req, err := s.store.DecideRequest(ctx, tenantID, requestID, actorID, decision, s.now().UTC())
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("overtime request decided",
		zap.String("tenantId", tenantID),
		zap.String("requestId", requestID),
		zap.String("status", req.Status),
	)
	return req, nil
}

// ApprovedHours sums approved hours whose work date falls within the period.
func (s *Service) ApprovedHours(ctx context.Context, tenantID, employeeID string, period payroll.Period) (decimal.Decimal, error) {
	return s.store.SumApprovedHours(ctx, tenantID, employeeID, period.Start, period.End)
}
