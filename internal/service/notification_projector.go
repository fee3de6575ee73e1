package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

type userLookup interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// NotificationProjector turns queued events into notification rows. Events
// for unknown users are dropped; transient failures are retried until the
// delivery budget is spent.
type NotificationProjector struct {
	users         userLookup
	notifications ports.NotificationRepository
	maxDeliver    uint64
	log           zerolog.Logger
}

func NewNotificationProjector(users userLookup, notifications ports.NotificationRepository, maxDeliver int, log zerolog.Logger) *NotificationProjector {
	if maxDeliver <= 0 {
		maxDeliver = 5
	}
	return &NotificationProjector{
		users:         users,
		notifications: notifications,
		maxDeliver:    uint64(maxDeliver),
		log:           log.With().Str("component", "notification-projector").Logger(),
	}
}

func (p *NotificationProjector) Handle(ctx context.Context, data []byte, attempt uint64) domain.Disposition {
	var event domain.NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		p.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping undecodable notification event")
		return domain.DispositionDrop
	}
	if event.UserID <= 0 {
		p.log.Warn().Int64("user_id", event.UserID).Msg("dropping notification event without user")
		return domain.DispositionDrop
	}

	if _, err := p.users.FindByID(ctx, event.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p.log.Info().Int64("user_id", event.UserID).Msg("dropping notification for unknown user")
			return domain.DispositionDrop
		}
		return p.failed(err, event, attempt, "user lookup failed")
	}

	n, err := p.notifications.Create(ctx, event.UserID, event.Message, event.RedirectLink)
	if err != nil {
		if isForeignKeyViolation(err) {
			p.log.Info().Int64("user_id", event.UserID).Msg("user removed before notification was stored")
			return domain.DispositionDrop
		}
		return p.failed(err, event, attempt, "store notification failed")
	}
	p.log.Debug().Int64("notification_id", n.ID).Int64("user_id", n.UserID).Msg("notification stored")
	return domain.DispositionAck
}

func (p *NotificationProjector) failed(err error, event domain.NotificationEvent, attempt uint64, msg string) domain.Disposition {
	if attempt < p.maxDeliver {
		p.log.Warn().Err(err).Int64("user_id", event.UserID).Uint64("attempt", attempt).Msg(msg + ", will retry")
		return domain.DispositionRetry
	}
	p.log.Error().Err(err).Int64("user_id", event.UserID).Uint64("attempt", attempt).
		Str("message", event.Message).Msg(msg + ", giving up")
	return domain.DispositionDrop
}
