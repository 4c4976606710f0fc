package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillhub/marketplace-api/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type pgNotificationRepo struct{ pool *pgxpool.Pool }

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepo{pool: pool}
}

func (r *pgNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, recipient_id, type, title, message, order_id, service_id,
			 review_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message, n.OrderID, n.ServiceID, n.ReviewID,
	).Scan(&n.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create notification: %w", ErrDuplicate)
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *pgNotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	query := `SELECT id, recipient_id, type, title, message, order_id, service_id, review_id,
				  is_read, read_at, created_at
			  FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message,
			&n.OrderID, &n.ServiceID, &n.ReviewID, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func (r *pgNotificationRepo) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

// MarkRead is scoped to the recipient so one user cannot touch another's
// notifications. Returns false when no row matched.
func (r *pgNotificationRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE`,
		id, recipientID,
	)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgNotificationRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW()
		 WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return ct.RowsAffected(), nil
}
