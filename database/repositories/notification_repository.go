package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/uptrace/bun"
)

type NotificationRepository interface {
	Create(ctx context.Context, tx bun.IDB, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationRepository struct {
	db *bun.DB
}

func NewNotificationRepository(db *bun.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, tx bun.IDB, notification *models.Notification) error {
	notification.CreatedAt = time.Now()

	_, err := tx.NewInsert().Model(notification).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error) {
	var notifications []*models.Notification

	q := r.db.NewSelect().
		Model(&notifications).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if unreadOnly {
		q = q.Where("NOT is_read")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead reports whether a row belonging to the user was updated.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = true").
		Where("id = ?", notificationID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = true").
		Where("user_id = ?", userID).
		Where("NOT is_read").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
