package payrollhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type PayrollService interface {
	Preview(structure payroll.SalaryStructure, inputs payroll.PeriodInputs) (payroll.PayslipResult, error)
	EstimateWithholding(grossPay decimal.Decimal) (payroll.WithholdingEstimate, error)
	RecordSalaryStructure(ctx context.Context, tenantID, actorID, employeeID string, structure payroll.SalaryStructure, effectiveFrom time.Time) (payroll.SalaryStructureVersion, error)
	SalaryHistory(ctx context.Context, tenantID, employeeID string) ([]payroll.SalaryStructureVersion, error)
	StructureAt(ctx context.Context, tenantID, employeeID string, at time.Time) (payroll.SalaryStructureVersion, error)
	SavePeriodInputs(ctx context.Context, tenantID string, inputs payroll.StoredInputs) error
	CalculatePayslip(ctx context.Context, tenantID, employeeID string, period payroll.Period) (payroll.Payslip, error)
	RunPeriod(ctx context.Context, tenantID string, period payroll.Period) (payroll.RunSummary, error)
	ListPayslips(ctx context.Context, tenantID string, filter payroll.PayslipFilter, limit, offset int) ([]payroll.Payslip, int, error)
	GetPayslip(ctx context.Context, tenantID, payslipID string) (payroll.Payslip, error)
	MarkPaid(ctx context.Context, tenantID, actorID, payslipID string) (payroll.Payslip, error)
	EmployeeIDForUser(ctx context.Context, tenantID, userID string) (string, error)
}

type JobRunner interface {
	Enqueue(ctx context.Context, jobType, tenantID string, run jobs.RunFunc) (string, error)
	RunNow(ctx context.Context, jobType, tenantID string, run jobs.RunFunc) (any, error)
	Get(ctx context.Context, tenantID, runID string) (jobs.Run, error)
}

type AuditLogger interface {
	Log(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any)
}

type IdempotencyStore interface {
	Check(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, tenantID, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

// Notifier delivers in-app notices to the employee a payslip belongs to.
type Notifier interface {
	NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body, entityID string)
}

type Handler struct {
	Service     PayrollService
	Jobs        JobRunner
	Audit       AuditLogger
	Idempotency IdempotencyStore
	Metrics     *metrics.Collector
	Perms       middleware.PermissionStore
	Notify      Notifier
}

func NewHandler(service PayrollService, jobRunner JobRunner, auditLog AuditLogger, idem IdempotencyStore, collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	if collector == nil {
		collector = metrics.New()
	}
	return &Handler{
		Service:     service,
		Jobs:        jobRunner,
		Audit:       auditLog,
		Idempotency: idem,
		Metrics:     collector,
		Perms:       perms,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollCalculate, h.Perms)).Post("/calculate", h.handleCalculate)
		r.With(middleware.RequirePermission(auth.PermPayrollCalculate, h.Perms)).Post("/withholding-estimate", h.handleWithholdingEstimate)
		r.With(middleware.RequirePermission(auth.PermSalaryRead, h.Perms)).Get("/employees/{employeeID}/salary-structures", h.handleListSalaryStructures)
		r.With(middleware.RequirePermission(auth.PermSalaryRead, h.Perms)).Get("/employees/{employeeID}/salary-structures/effective", h.handleEffectiveSalaryStructure)
		r.With(middleware.RequirePermission(auth.PermSalaryWrite, h.Perms)).Post("/employees/{employeeID}/salary-structures", h.handleCreateSalaryStructure)
		r.With(middleware.RequirePermission(auth.PermPayrollInputsWrite, h.Perms)).Put("/employees/{employeeID}/inputs", h.handleSaveInputs)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/employees/{employeeID}/payslips", h.handleCalculatePayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/runs", h.handleRunPayroll)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Get("/runs/{runID}", h.handleGetRun)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/payslips/{payslipID}", h.handleGetPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollPay, h.Perms)).Post("/payslips/{payslipID}/pay", h.handlePay)
	})
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload calculatePayload
	if !decodePayload(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	period := periodFrom(validator, "payPeriodStart", payload.PayPeriodStart, "payPeriodEnd", payload.PayPeriodEnd)
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Preview(payload.structure(), payload.inputs(period))
	if err != nil {
		h.writeError(w, r, err, "payroll_calculate_failed", "failed to calculate payroll")
		return
	}
	api.Success(w, calculateResponse{Period: period, PayslipResult: result}, requestID)
}

func (h *Handler) handleWithholdingEstimate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload withholdingPayload
	if !decodePayload(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}

	estimate, err := h.Service.EstimateWithholding(*payload.GrossPay)
	if err != nil {
		h.writeError(w, r, err, "withholding_estimate_failed", "failed to estimate withholding")
		return
	}
	api.Success(w, estimate, requestID)
}

func (h *Handler) handleListSalaryStructures(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	history, err := h.Service.SalaryHistory(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, r, err, "salary_structures_failed", "failed to list salary structures")
		return
	}
	if history == nil {
		history = []payroll.SalaryStructureVersion{}
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

// handleEffectiveSalaryStructure returns the version in force on ?date=,
// defaulting to today.
func (h *Handler) handleEffectiveSalaryStructure(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	at := shared.StartOfDay(time.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		validator := shared.NewValidator()
		parsed, valid := validator.Date("date", raw)
		if !valid {
			validator.Reject(w, requestID)
			return
		}
		at = parsed
	}
	version, err := h.Service.StructureAt(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), at)
	if err != nil {
		h.writeError(w, r, err, "salary_structures_failed", "failed to load salary structure")
		return
	}
	api.Success(w, version, requestID)
}

func (h *Handler) handleCreateSalaryStructure(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload salaryStructurePayload
	if !decodePayload(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	effectiveFrom, _ := validator.Date("effectiveFrom", payload.EffectiveFrom)
	if validator.Reject(w, requestID) {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	version, err := h.Service.RecordSalaryStructure(r.Context(), user.TenantID, user.UserID, employeeID, payload.structure(), effectiveFrom)
	if err != nil {
		h.writeError(w, r, err, "salary_structure_create_failed", "failed to record salary structure")
		return
	}
	h.Audit.Log(r.Context(), user.TenantID, user.UserID, audit.ActionSalaryStructureCreate, "salary_structure", version.ID, requestID, shared.ClientIP(r), nil, version)
	api.Created(w, version, requestID)
}

func (h *Handler) handleSaveInputs(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload periodInputsPayload
	if !decodePayload(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	period := periodFrom(validator, "periodStart", payload.PeriodStart, "periodEnd", payload.PeriodEnd)
	if validator.Reject(w, requestID) {
		return
	}

	inputs := payroll.StoredInputs{
		EmployeeID:      chi.URLParam(r, "employeeID"),
		Period:          period,
		OvertimePay:     payload.OvertimePay,
		OvertimePolicy:  payload.OvertimePolicy,
		Bonus:           payload.Bonus,
		Commission:      payload.Commission,
		OtherDeductions: payload.OtherDeductions,
		UpdatedBy:       user.UserID,
	}
	if err := h.Service.SavePeriodInputs(r.Context(), user.TenantID, inputs); err != nil {
		h.writeError(w, r, err, "payroll_inputs_failed", "failed to save period inputs")
		return
	}
	h.Audit.Log(r.Context(), user.TenantID, user.UserID, audit.ActionPeriodInputsSave, "payroll_period_inputs", inputs.EmployeeID, requestID, shared.ClientIP(r), nil, payload)
	api.Success(w, payload, requestID)
}

func (h *Handler) handleCalculatePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload periodPayload
	if !decodePayload(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	period := periodFrom(validator, "periodStart", payload.PeriodStart, "periodEnd", payload.PeriodEnd)
	if validator.Reject(w, requestID) {
		return
	}

	slip, err := h.Service.CalculatePayslip(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), period)
	if err != nil {
		h.writeError(w, r, err, "payslip_calculate_failed", "failed to calculate payslip")
		return
	}
	h.Metrics.PayslipsComputed(1)
	h.Audit.Log(r.Context(), user.TenantID, user.UserID, audit.ActionPayslipCalculate, "payslip", slip.ID, requestID, shared.ClientIP(r), nil, slip)
	api.Success(w, slip, requestID)
}

func (h *Handler) handleRunPayroll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	var payload periodPayload
	if !decodeBytes(w, r, raw, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	period := periodFrom(validator, "periodStart", payload.PeriodStart, "periodEnd", payload.PeriodEnd)
	if validator.Reject(w, requestID) {
		return
	}

	async := r.URL.Query().Get("async") == "true"
	endpoint := "payroll.run"
	if async {
		endpoint = "payroll.run.async"
	}
	key, requestHash, replayed := h.replayIdempotent(w, r, user, endpoint, raw)
	if replayed {
		return
	}

	tenantID := user.TenantID
	run := func(ctx context.Context) (any, error) {
		summary, err := h.Service.RunPeriod(ctx, tenantID, period)
		h.Metrics.PayrollRun(err != nil)
		if err != nil {
			return nil, err
		}
		h.Metrics.PayslipsComputed(summary.CalculatedCount)
		return summary, nil
	}

	if async {
		runID, err := h.Jobs.Enqueue(r.Context(), payroll.JobPayrollRun, tenantID, run)
		if err != nil {
			if errors.Is(err, jobs.ErrQueueFull) {
				api.Fail(w, http.StatusServiceUnavailable, "queue_full", "payroll run queue is full, retry later", requestID)
				return
			}
			h.writeError(w, r, err, "payroll_run_failed", "failed to queue payroll run")
			return
		}
		queued := runAccepted{RunID: runID, Status: jobs.StatusQueued}
		h.Audit.Log(r.Context(), tenantID, user.UserID, audit.ActionPayrollRun, "job_run", runID, requestID, shared.ClientIP(r), nil, payload)
		h.rememberIdempotent(r, user, endpoint, key, requestHash, queued)
		api.Accepted(w, queued, requestID)
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), payroll.JobPayrollRun, tenantID, run)
	if err != nil {
		h.writeError(w, r, err, "payroll_run_failed", "payroll run failed")
		return
	}
	summary, _ := result.(payroll.RunSummary)
	h.Audit.Log(r.Context(), tenantID, user.UserID, audit.ActionPayrollRun, "payroll_period", period.Start.Format(shared.DateLayout), requestID, shared.ClientIP(r), nil, summary)
	h.rememberIdempotent(r, user, endpoint, key, requestHash, summary)
	api.Success(w, summary, requestID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	run, err := h.Jobs.Get(r.Context(), user.TenantID, chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "payroll run not found", middleware.GetRequestID(r.Context()))
			return
		}
		h.writeError(w, r, err, "payroll_run_lookup_failed", "failed to load payroll run")
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	validator := shared.NewValidator()
	filter := payroll.PayslipFilter{
		EmployeeID: query.Get("employeeId"),
		Status:     query.Get("status"),
	}
	validator.Enum("status", filter.Status, []string{payroll.PayslipStatusPending, payroll.PayslipStatusPaid}, "must be pending or paid")
	if raw := query.Get("periodStart"); raw != "" {
		filter.PeriodStart, _ = validator.Date("periodStart", raw)
	}
	if raw := query.Get("periodEnd"); raw != "" {
		filter.PeriodEnd, _ = validator.Date("periodEnd", raw)
	}
	validator.DateOrder("periodStart", filter.PeriodStart, "periodEnd", filter.PeriodEnd)
	if validator.Reject(w, requestID) {
		return
	}
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)

	if auth.SeesOnlyOwnRecords(user.RoleName) {
		own, err := h.ownEmployeeID(r.Context(), user)
		if err != nil {
			h.writeError(w, r, err, "payslips_failed", "failed to list payslips")
			return
		}
		if own == "" || (filter.EmployeeID != "" && filter.EmployeeID != own) {
			api.Success(w, shared.NewPage([]payroll.Payslip{}, 0, page), requestID)
			return
		}
		filter.EmployeeID = own
	}

	slips, total, err := h.Service.ListPayslips(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, r, err, "payslips_failed", "failed to list payslips")
		return
	}
	if slips == nil {
		slips = []payroll.Payslip{}
	}
	api.Success(w, shared.NewPage(slips, total, page), requestID)
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	slip, err := h.Service.GetPayslip(r.Context(), user.TenantID, chi.URLParam(r, "payslipID"))
	if err != nil {
		h.writeError(w, r, err, "payslip_failed", "failed to load payslip")
		return
	}
	if auth.SeesOnlyOwnRecords(user.RoleName) {
		own, err := h.ownEmployeeID(r.Context(), user)
		if err != nil {
			h.writeError(w, r, err, "payslip_failed", "failed to load payslip")
			return
		}
		if own == "" || slip.EmployeeID != own {
			h.writeError(w, r, payroll.ErrPayslipNotFound, "", "")
			return
		}
	}
	api.Success(w, slip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	payslipID := chi.URLParam(r, "payslipID")

	key, requestHash, replayed := h.replayIdempotent(w, r, user, "payroll.pay", []byte(payslipID))
	if replayed {
		return
	}

	before, err := h.Service.GetPayslip(r.Context(), user.TenantID, payslipID)
	if err != nil {
		h.writeError(w, r, err, "payslip_pay_failed", "failed to pay payslip")
		return
	}
	slip, err := h.Service.MarkPaid(r.Context(), user.TenantID, user.UserID, payslipID)
	if err != nil {
		h.writeError(w, r, err, "payslip_pay_failed", "failed to pay payslip")
		return
	}
	h.Metrics.PayslipPaid()
	h.Audit.Log(r.Context(), user.TenantID, user.UserID, audit.ActionPayslipPay, "payslip", payslipID, requestID, shared.ClientIP(r),
		map[string]string{"status": before.Status},
		map[string]any{"status": slip.Status, "paidAt": slip.PaidAt},
	)
	if h.Notify != nil {
		h.Notify.NotifyEmployee(r.Context(), user.TenantID, slip.EmployeeID, notifications.TypePayslipPaid,
			"Payslip paid",
			fmt.Sprintf("Your payslip for %s to %s was paid. Net pay: %s.",
				slip.PeriodStart.Format(shared.DateLayout), slip.PeriodEnd.Format(shared.DateLayout), slip.NetPay.StringFixed(2)),
			slip.ID,
		)
	}
	h.rememberIdempotent(r, user, "payroll.pay", key, requestHash, slip)
	api.Success(w, slip, requestID)
}

// ownEmployeeID prefers the employee id carried in the token and falls back
// to the employee linked to the user account.
func (h *Handler) ownEmployeeID(ctx context.Context, user auth.UserContext) (string, error) {
	if user.EmployeeID != "" {
		return user.EmployeeID, nil
	}
	return h.Service.EmployeeIDForUser(ctx, user.TenantID, user.UserID)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_input", err.Error(), requestID)
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", err.Error(), requestID)
	case errors.Is(err, payroll.ErrSalaryStructureNotFound):
		api.Fail(w, http.StatusUnprocessableEntity, "salary_structure_missing", err.Error(), requestID)
	case errors.Is(err, payroll.ErrDuplicateEffectiveDate):
		api.Fail(w, http.StatusConflict, "duplicate_effective_date", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPayslipAlreadyPaid):
		api.Fail(w, http.StatusConflict, "payslip_paid", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPayslipNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", requestID)
	default:
		requestctx.Logger(r.Context()).Error(message, zap.String("code", code), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
}
