package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationPublisher interface {
	Publish(ctx context.Context, event domain.NotificationEvent) error
}

// Notifier is what domain actions use to tell users something happened.
// Delivery is best effort: failures are logged, never returned.
type Notifier interface {
	SendEvent(ctx context.Context, event domain.NotificationEvent) bool
	NotifyUsers(ctx context.Context, userIDs []int64, message, redirectLink string) int
}

type NotificationPage struct {
	Items  []domain.Notification `json:"items"`
	Unread int64                 `json:"unread"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type NotificationService struct {
	publisher     NotificationPublisher
	notifications ports.NotificationRepository
	log           zerolog.Logger
}

var _ Notifier = (*NotificationService)(nil)

func NewNotificationService(publisher NotificationPublisher, notifications ports.NotificationRepository, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		publisher:     publisher,
		notifications: notifications,
		log:           log.With().Str("component", "notifications").Logger(),
	}
}

func (s *NotificationService) SendEvent(ctx context.Context, event domain.NotificationEvent) bool {
	event.Message = strings.TrimSpace(event.Message)
	if event.UserID <= 0 || event.Message == "" {
		s.log.Warn().Int64("user_id", event.UserID).Msg("skipping malformed notification event")
		return false
	}
	if s.publisher == nil {
		s.log.Warn().Int64("user_id", event.UserID).Msg("notification publisher not configured")
		return false
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error().Err(err).Int64("user_id", event.UserID).Str("redirect_link", event.RedirectLink).Msg("publish notification event failed")
		return false
	}
	return true
}

// NotifyUsers publishes one event per recipient, in order. A failed publish
// does not stop the remaining ones; the count of accepted events is returned.
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []int64, message, redirectLink string) int {
	sent := 0
	for _, id := range userIDs {
		if s.SendEvent(ctx, domain.NotificationEvent{UserID: id, Message: message, RedirectLink: redirectLink}) {
			sent++
		}
	}
	if sent < len(userIDs) {
		s.log.Warn().Int("recipients", len(userIDs)).Int("published", sent).Msg("notification fan-out incomplete")
	}
	return sent
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) (*NotificationPage, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.notifications.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, Unread: unread, Limit: limit, Offset: offset}, nil
}

// MarkAsRead succeeds for rows that are already read.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id int64) error {
	err := s.notifications.MarkAsRead(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id int64) error {
	err := s.notifications.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
