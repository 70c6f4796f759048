package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hrpay/internal/platform/db"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// finishTimeout bounds the final status write, which outlives the job context.
const finishTimeout = 5 * time.Second

var (
	ErrQueueFull   = errors.New("job queue full")
	ErrRunNotFound = errors.New("job run not found")
	ErrShutdown    = errors.New("job abandoned at shutdown")
)

type RunFunc func(context.Context) (any, error)

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Service struct {
	DB     db.DBTX
	logger *zap.Logger
	queue  chan job
	wg     sync.WaitGroup
}

type job struct {
	ID       string
	Type     string
	TenantID string
	Run      RunFunc
}

func New(conn db.DBTX, logger *zap.Logger, queueSize int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Service{
		DB:     conn,
		logger: logger.Named("jobs"),
		queue:  make(chan job, queueSize),
	}
}

// Start runs the single queue worker until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue records a queued run and hands it to the worker. The returned id
// can be polled with Get.
func (s *Service) Enqueue(ctx context.Context, jobType, tenantID string, run RunFunc) (string, error) {
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, tenantID, jobType, StatusQueued).Scan(&runID); err != nil {
		return "", err
	}
	select {
	case s.queue <- job{ID: runID, Type: jobType, TenantID: tenantID, Run: run}:
		return runID, nil
	default:
		s.finish(ctx, runID, StatusFailed, map[string]string{"error": ErrQueueFull.Error()})
		s.logger.Warn("job queue full", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
		return "", ErrQueueFull
	}
}

// RunNow executes run synchronously while still recording it in job_runs.
func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run RunFunc) (any, error) {
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, tenantID, jobType, StatusRunning).Scan(&runID); err != nil {
		s.logger.Warn("job run insert failed", zap.String("jobType", jobType), zap.Error(err))
	}
	return s.execute(ctx, job{ID: runID, Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) Get(ctx context.Context, tenantID, runID string) (Run, error) {
	var run Run
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, runID).Scan(&run.ID, &run.JobType, &run.Status, &run.Details, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// worker runs queued jobs until ctx is cancelled, then marks whatever is
// still buffered as failed.
func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain(ctx)
			return
		case j := <-s.queue:
			if ctx.Err() != nil {
				s.abandon(ctx, j)
				continue
			}
			if _, err := s.DB.Exec(ctx, `UPDATE job_runs SET status = $1 WHERE id = $2`, StatusRunning, j.ID); err != nil {
				s.logger.Warn("job run update failed", zap.String("runId", j.ID), zap.Error(err))
			}
			if _, err := s.execute(ctx, j); err != nil {
				s.logger.Warn("job run failed", zap.String("jobType", j.Type), zap.String("tenantId", j.TenantID), zap.Error(err))
			}
		}
	}
}

func (s *Service) drain(ctx context.Context) {
	for {
		select {
		case j := <-s.queue:
			s.abandon(ctx, j)
		default:
			return
		}
	}
}

func (s *Service) abandon(ctx context.Context, j job) {
	s.logger.Warn("job abandoned", zap.String("runId", j.ID), zap.String("jobType", j.Type), zap.String("tenantId", j.TenantID))
	s.finish(ctx, j.ID, StatusFailed, map[string]string{"error": ErrShutdown.Error()})
}

func (s *Service) execute(ctx context.Context, j job) (any, error) {
	details, err := j.Run(ctx)
	status := StatusCompleted
	recorded := details
	if err != nil {
		status = StatusFailed
		recorded = map[string]string{"error": err.Error()}
	}
	if j.ID != "" {
		s.finish(ctx, j.ID, status, recorded)
	}
	return details, err
}

func (s *Service) finish(ctx context.Context, runID, status string, details any) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.logger.Warn("job details marshal failed", zap.Error(err))
		detailsJSON = []byte("{}")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		s.logger.Warn("job run update failed", zap.String("runId", runID), zap.Error(err))
	}
}
