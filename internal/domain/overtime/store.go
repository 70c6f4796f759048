package overtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrpay/internal/platform/db"
)

const requestColumns = `id::text, employee_id::text, work_date, hours::text, reason, status,
           COALESCE(decided_by::text, ''), decided_at, decision_note, created_at`

type Store struct {
	DB db.DBTX
}

func NewStore(conn db.DBTX) *Store {
	return &Store{DB: conn}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (Request, error) {
	var req Request
	var hours string
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.WorkDate, &hours, &req.Reason, &req.Status,
		&req.DecidedBy, &req.DecidedAt, &req.DecisionNote, &req.CreatedAt); err != nil {
		return Request{}, err
	}
	parsed, err := decimal.NewFromString(hours)
	if err != nil {
		return Request{}, fmt.Errorf("parse hours: %w", err)
	}
	req.Hours = parsed
	return req, nil
}

func (s *Store) CreateRequest(ctx context.Context, tenantID string, req Request) (Request, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO overtime_requests (tenant_id, employee_id, work_date, hours, reason, status)
    VALUES ($1,$2,$3,$4,$5,'pending')
    RETURNING `+requestColumns,
		tenantID, req.EmployeeID, req.WorkDate, req.Hours.String(), req.Reason)
	return scanRequest(row)
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (Request, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM overtime_requests
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, tenantID string, filter ListFilter, limit, offset int) (ListResult, error) {
	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM overtime_requests"+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, "SELECT "+requestColumns+" FROM overtime_requests"+where+
		" ORDER BY work_date DESC, created_at DESC LIMIT $"+strconv.Itoa(len(args)-1)+" OFFSET $"+strconv.Itoa(len(args)), args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	result := ListResult{Data: []Request{}, Total: total}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return ListResult{}, err
		}
		result.Data = append(result.Data, req)
	}
	return result, rows.Err()
}

// DecideRequest only touches pending requests; it returns ErrRequestNotPending
// for decided ones and ErrRequestNotFound for unknown ids.
func (s *Store) DecideRequest(ctx context.Context, tenantID, requestID, actorID string, decision Decision, decidedAt time.Time) (Request, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE overtime_requests
    SET status = $3, decided_by = $4, decided_at = $5, decision_note = $6
    WHERE tenant_id = $1 AND id = $2 AND status = 'pending'
    RETURNING `+requestColumns,
		tenantID, requestID, decision.Status(), actorID, decidedAt, decision.Note)
	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Request{}, err
	}
	if _, err := s.GetRequest(ctx, tenantID, requestID); err != nil {
		return Request{}, err
	}
	return Request{}, ErrRequestNotPending
}

func (s *Store) SumApprovedHours(ctx context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	var total string
	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(hours), 0)::text
    FROM overtime_requests
    WHERE tenant_id = $1 AND employee_id = $2 AND status = 'approved'
      AND work_date >= $3 AND work_date <= $4
  `, tenantID, employeeID, from, to).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}
