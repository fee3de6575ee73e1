package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, userID int64, message, redirectLink string) (*domain.Notification, error) {
	const query = `
		INSERT INTO notifications (user_id, message, redirect_link)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, message, redirect_link, is_read, created_at
	`
	var n domain.Notification
	if err := r.db.GetContext(ctx, &n, query, userID, message, redirectLink); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	const query = `
		SELECT id, user_id, message, redirect_link, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	items := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, userID, unreadOnly, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	return count, err
}

// MarkAsRead is idempotent: an already read row still counts as a match.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id int64) error {
	const query = `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id
	`
	var updated int64
	return r.db.GetContext(ctx, &updated, query, id, userID)
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, `DELETE FROM notifications WHERE id = $1`, id)
}
