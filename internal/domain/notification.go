package domain

import "time"

type Notification struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Message      string    `db:"message" json:"message"`
	RedirectLink string    `db:"redirect_link" json:"redirect_link"`
	Read         bool      `db:"is_read" json:"read"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NotificationEvent is the message carried on the notifications queue. It has
// no identity of its own; the consumer turns it into a Notification row.
type NotificationEvent struct {
	UserID       int64  `json:"userId"`
	Message      string `json:"message"`
	RedirectLink string `json:"redirectLink"`
}

// Disposition tells the queue consumer what to do with a delivered event.
type Disposition int

const (
	DispositionAck Disposition = iota
	DispositionRetry
	DispositionDrop
)

func (d Disposition) String() string {
	switch d {
	case DispositionAck:
		return "stored"
	case DispositionRetry:
		return "retried"
	case DispositionDrop:
		return "dropped"
	}
	return "unknown"
}
