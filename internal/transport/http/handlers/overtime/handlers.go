package overtimehandler

import (
	"context"
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
	"hrpay/internal/domain/overtime"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type OvertimeService interface {
	Submit(ctx context.Context, tenantID, employeeID string, workDate time.Time, hours decimal.Decimal, reason string) (overtime.Request, error)
	Get(ctx context.Context, tenantID, requestID string) (overtime.Request, error)
	List(ctx context.Context, tenantID string, filter overtime.ListFilter, limit, offset int) (overtime.ListResult, error)
	Decide(ctx context.Context, tenantID, requestID, actorID string, decision overtime.Decision) (overtime.Request, error)
}

// EmployeeResolver maps a user account to its employee record.
type EmployeeResolver interface {
	EmployeeIDForUser(ctx context.Context, tenantID, userID string) (string, error)
}

type AuditLogger interface {
	Log(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any)
}

type Notifier interface {
	NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body, entityID string)
}

type Handler struct {
	Service   OvertimeService
	Employees EmployeeResolver
	Audit     AuditLogger
	Perms     middleware.PermissionStore
	Notify    Notifier
}

func NewHandler(service OvertimeService, employees EmployeeResolver, auditLog AuditLogger, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Employees: employees, Audit: auditLog, Perms: perms}
}

type submitPayload struct {
	EmployeeID string          `json:"employeeId,omitempty"`
	WorkDate   string          `json:"workDate" validate:"required"`
	Hours      decimal.Decimal `json:"hours" validate:"gt=0,lte=24"`
	Reason     string          `json:"reason" validate:"max=500"`
}

type decisionPayload struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=500"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overtime", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)).Get("/requests", h.handleList)
		r.With(middleware.RequirePermission(auth.PermOvertimeRequest, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermOvertimeApprove, h.Perms)).Post("/requests/{requestID}/decision", h.handleDecide)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	filter := overtime.ListFilter{
		EmployeeID: query.Get("employeeId"),
		Status:     query.Get("status"),
	}
	validator := shared.NewValidator()
	validator.Enum("status", filter.Status, []string{overtime.StatusPending, overtime.StatusApproved, overtime.StatusRejected}, "must be pending, approved or rejected")
	if validator.Reject(w, requestID) {
		return
	}
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)

	if auth.SeesOnlyOwnRecords(user.RoleName) {
		own, err := h.ownEmployeeID(r.Context(), user)
		if err != nil {
			h.writeError(w, r, err, "overtime_list_failed", "failed to list overtime requests")
			return
		}
		if own == "" || (filter.EmployeeID != "" && filter.EmployeeID != own) {
			api.Success(w, shared.NewPage([]overtime.Request{}, 0, page), requestID)
			return
		}
		filter.EmployeeID = own
	}

	result, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, r, err, "overtime_list_failed", "failed to list overtime requests")
		return
	}
	api.Success(w, shared.NewPage(result.Data, result.Total, page), requestID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload submitPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	var workDate time.Time
	if payload.WorkDate != "" {
		workDate, _ = validator.Date("workDate", payload.WorkDate)
	}
	if validator.Reject(w, requestID) {
		return
	}

	own, err := h.ownEmployeeID(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err, "overtime_submit_failed", "failed to submit overtime request")
		return
	}
	employeeID := payload.EmployeeID
	switch {
	case employeeID == "":
		employeeID = own
	case employeeID != own && auth.SeesOnlyOwnRecords(user.RoleName):
		api.Fail(w, http.StatusForbidden, "forbidden", "employees can only request overtime for themselves", requestID)
		return
	}
	if employeeID == "" {
		api.Fail(w, http.StatusUnprocessableEntity, "employee_missing", "no employee record is linked to this account", requestID)
		return
	}

	req, err := h.Service.Submit(r.Context(), user.TenantID, employeeID, workDate, payload.Hours, payload.Reason)
	if err != nil {
		h.writeError(w, r, err, "overtime_submit_failed", "failed to submit overtime request")
		return
	}
	api.Created(w, req, requestID)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload decisionPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}

	overtimeID := chi.URLParam(r, "requestID")
	before, err := h.Service.Get(r.Context(), user.TenantID, overtimeID)
	if err != nil {
		h.writeError(w, r, err, "overtime_decide_failed", "failed to decide overtime request")
		return
	}
	own, err := h.ownEmployeeID(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err, "overtime_decide_failed", "failed to decide overtime request")
		return
	}
	if own != "" && own == before.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot decide your own overtime request", requestID)
		return
	}

	decision := overtime.Decision{Approve: payload.Decision == "approve", Note: payload.Note}
	after, err := h.Service.Decide(r.Context(), user.TenantID, overtimeID, user.UserID, decision)
	if err != nil {
		h.writeError(w, r, err, "overtime_decide_failed", "failed to decide overtime request")
		return
	}
	h.Audit.Log(r.Context(), user.TenantID, user.UserID, audit.ActionOvertimeDecide, "overtime_request", overtimeID, requestID, shared.ClientIP(r),
		map[string]string{"status": before.Status},
		map[string]string{"status": after.Status, "note": after.DecisionNote},
	)
	if h.Notify != nil {
		h.Notify.NotifyEmployee(r.Context(), user.TenantID, after.EmployeeID, notifications.TypeOvertimeDecided,
			"Overtime request "+after.Status,
			fmt.Sprintf("Your request for %s hours on %s was %s.", after.Hours.String(), after.WorkDate.Format(shared.DateLayout), after.Status),
			after.ID,
		)
	}
	api.Success(w, after, requestID)
}

func (h *Handler) ownEmployeeID(ctx context.Context, user auth.UserContext) (string, error) {
	if user.EmployeeID != "" || h.Employees == nil {
		return user.EmployeeID, nil
	}
	return h.Employees.EmployeeIDForUser(ctx, user.TenantID, user.UserID)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, overtime.ErrInvalidHours), errors.Is(err, overtime.ErrInvalidWorkDate):
		api.Fail(w, http.StatusBadRequest, "invalid_input", err.Error(), requestID)
	case errors.Is(err, overtime.ErrRequestNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, overtime.ErrRequestNotPending):
		api.Fail(w, http.StatusConflict, "already_decided", err.Error(), requestID)
	default:
		requestctx.Logger(r.Context()).Error(message, zap.String("code", code), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
}
