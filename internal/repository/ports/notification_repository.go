package ports

import (
	"context"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, userID int64, message, redirectLink string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID, id int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}
