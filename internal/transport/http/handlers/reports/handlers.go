package reportshandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/reports"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type DashboardService interface {
	EmployeeDashboard(ctx context.Context, tenantID, employeeID string) (reports.EmployeeDashboard, error)
	HRDashboard(ctx context.Context, tenantID string) (reports.HRDashboard, error)
	PayrollDashboard(ctx context.Context, tenantID string) (reports.PayrollDashboard, error)
}

type JobRunReader interface {
	List(ctx context.Context, tenantID string, filter jobs.Filter, limit, offset int) ([]jobs.Run, error)
	Count(ctx context.Context, tenantID string, filter jobs.Filter) (int, error)
}

type EmployeeResolver interface {
	EmployeeIDForUser(ctx context.Context, tenantID, userID string) (string, error)
}

type Handler struct {
	Service   DashboardService
	Runs      JobRunReader
	Employees EmployeeResolver
	Perms     middleware.PermissionStore
}

func NewHandler(service DashboardService, runs JobRunReader, employees EmployeeResolver, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Runs: runs, Employees: employees, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/dashboard/employee", h.handleEmployeeDashboard)
		r.Get("/dashboard/hr", h.handleHRDashboard)
		r.Get("/dashboard/payroll", h.handlePayrollDashboard)
		r.Get("/job-runs", h.handleJobRuns)
	})
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	employeeID := user.EmployeeID
	if employeeID == "" && h.Employees != nil {
		var err error
		employeeID, err = h.Employees.EmployeeIDForUser(r.Context(), user.TenantID, user.UserID)
		if err != nil {
			requestctx.Logger(r.Context()).Error("employee lookup failed", zap.Error(err))
			api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", requestID)
			return
		}
	}
	if employeeID == "" {
		api.Fail(w, http.StatusUnprocessableEntity, "employee_missing", "no employee record is linked to this user", requestID)
		return
	}

	out, err := h.Service.EmployeeDashboard(r.Context(), user.TenantID, employeeID)
	if err != nil {
		requestctx.Logger(r.Context()).Error("employee dashboard failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleHRDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	if user.RoleName != auth.RoleHR && user.RoleName != auth.RoleAdmin {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", requestID)
		return
	}

	out, err := h.Service.HRDashboard(r.Context(), user.TenantID)
	if err != nil {
		requestctx.Logger(r.Context()).Error("hr dashboard failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handlePayrollDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	if !canSeePayroll(user.RoleName) {
		api.Fail(w, http.StatusForbidden, "forbidden", "accountant role required", requestID)
		return
	}

	out, err := h.Service.PayrollDashboard(r.Context(), user.TenantID)
	if err != nil {
		requestctx.Logger(r.Context()).Error("payroll dashboard failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	if !canSeePayroll(user.RoleName) {
		api.Fail(w, http.StatusForbidden, "forbidden", "accountant role required", requestID)
		return
	}

	query := r.URL.Query()
	filter := jobs.Filter{
		JobType: query.Get("jobType"),
		Status:  query.Get("status"),
	}
	validator := shared.NewValidator()
	validator.Enum("status", filter.Status, []string{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed}, "must be one of: queued, running, completed, failed")
	filter.StartedFrom = optionalDate(validator, "startedFrom", query.Get("startedFrom"))
	filter.StartedTo = optionalDate(validator, "startedTo", query.Get("startedTo"))
	if filter.StartedFrom != nil && filter.StartedTo != nil {
		validator.DateOrder("startedFrom", *filter.StartedFrom, "startedTo", *filter.StartedTo)
	}
	if validator.Reject(w, requestID) {
		return
	}
	if filter.StartedTo != nil {
		// startedTo is inclusive of the whole day.
		end := filter.StartedTo.Add(24*time.Hour - time.Nanosecond)
		filter.StartedTo = &end
	}

	page := shared.ParsePagination(r, 50, 200)
	total, err := h.Runs.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		requestctx.Logger(r.Context()).Error("job run count failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", requestID)
		return
	}
	runs, err := h.Runs.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		requestctx.Logger(r.Context()).Error("job run list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", requestID)
		return
	}
	api.Success(w, shared.NewPage(runs, total, page), requestID)
}

func canSeePayroll(role string) bool {
	return role == auth.RoleAccountant || role == auth.RoleAdmin
}

func optionalDate(v *shared.Validator, field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	day, ok := v.Date(field, raw)
	if !ok {
		return nil
	}
	return &day
}
