package notifications

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	EntityID  string     `json:"entityId"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Service struct {
	store  StoreAPI
	logger *zap.Logger
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("notifications")}
}

// NotifyEmployee stores an in-app notification for the employee's account.
// Delivery is best effort: failures are logged and never returned.
func (s *Service) NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body, entityID string) {
	delivered, err := s.store.CreateForEmployee(ctx, tenantID, employeeID, Notification{
		Type:     ntype,
		Title:    title,
		Body:     body,
		EntityID: entityID,
	})
	if err != nil {
		s.logger.Warn("notification create failed",
			zap.String("type", ntype),
			zap.String("employeeId", employeeID),
			zap.Error(err),
		)
		return
	}
	if !delivered {
		s.logger.Debug("employee has no user account", zap.String("employeeId", employeeID))
	}
}

func (s *Service) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	total, err := s.store.CountNotifications(ctx, tenantID, userID, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListNotifications(ctx, tenantID, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	found, err := s.store.MarkRead(ctx, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}
