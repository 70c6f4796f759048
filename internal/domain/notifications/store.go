package notifications

import (
	"context"

	"hrpay/internal/platform/db"
)

type Store struct {
	DB db.DBTX
}

func NewStore(conn db.DBTX) *Store {
	return &Store{DB: conn}
}

// CreateForEmployee addresses the notification to the user account linked to
// the employee. It reports false when the employee has no account.
func (s *Store) CreateForEmployee(ctx context.Context, tenantID, employeeID string, n Notification) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (tenant_id, user_id, type, title, body, entity_id)
    SELECT tenant_id, user_id, $3, $4, $5, $6
    FROM employees
    WHERE tenant_id = $1 AND id = $2 AND user_id IS NOT NULL
  `, tenantID, employeeID, n.Type, n.Title, n.Body, n.EntityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, type, title, body, entity_id, read_at, created_at
    FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND ($3 = false OR read_at IS NULL)
    ORDER BY created_at DESC
    LIMIT $4 OFFSET $5
  `, tenantID, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.EntityID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND ($3 = false OR read_at IS NULL)
  `, tenantID, userID, unreadOnly).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE tenant_id = $1 AND user_id = $2 AND id = $3
  `, tenantID, userID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
