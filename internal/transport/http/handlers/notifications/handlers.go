package notificationshandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrpay/internal/domain/notifications"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type NotificationService interface {
	List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]notifications.Notification, int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) error
}

type Handler struct {
	Service NotificationService
}

func NewHandler(service NotificationService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	items, total, err := h.Service.List(r.Context(), user.TenantID, user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		requestctx.Logger(r.Context()).Error("notification list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, shared.NewPage(items, total, page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
			return
		}
		requestctx.Logger(r.Context()).Error("notification update failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}
