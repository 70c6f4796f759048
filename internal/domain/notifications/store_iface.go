package notifications

import "context"

type StoreAPI interface {
	CreateForEmployee(ctx context.Context, tenantID, employeeID string, n Notification) (bool, error)
	ListNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error)
}
