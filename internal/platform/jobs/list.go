package jobs

import (
	"context"
	"strconv"
	"strings"
	"time"
)

type Filter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Run, error) {
	query, args := buildRunsQuery(tenantID, filter)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &run.Details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := buildRunsQuery(tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM ("+query+") runs", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func buildRunsQuery(tenantID string, filter Filter) (string, []any) {
	query := `
    SELECT id::text, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE tenant_id = $1`
	args := []any{tenantID}

	if value := strings.TrimSpace(filter.JobType); value != "" {
		args = append(args, value)
		query += " AND job_type = $" + strconv.Itoa(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.StartedFrom != nil && !filter.StartedFrom.IsZero() {
		args = append(args, *filter.StartedFrom)
		query += " AND started_at >= $" + strconv.Itoa(len(args))
	}
	if filter.StartedTo != nil && !filter.StartedTo.IsZero() {
		args = append(args, *filter.StartedTo)
		query += " AND started_at <= $" + strconv.Itoa(len(args))
	}
	return query, args
}
