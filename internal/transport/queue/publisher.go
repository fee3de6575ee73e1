package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

const DefaultPublishTimeout = 5 * time.Second

var ErrNotConnected = errors.New("queue: not connected to broker")

type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher sends notification events over one long-lived connection. Each
// message carries a fresh Nats-Msg-Id so a retried publish is deduplicated by
// the stream.
type Publisher struct {
	js        jetStreamPublisher
	subject   string
	timeout   time.Duration
	connected func() bool
}

type PublisherOption func(*Publisher)

// WithConnection makes Publish fail fast while nc is disconnected instead of
// waiting out the ack timeout for every event.
func WithConnection(nc *nats.Conn) PublisherOption {
	return func(p *Publisher) {
		if nc != nil {
			p.connected = nc.IsConnected
		}
	}
}

func NewPublisher(js jetStreamPublisher, subject string, timeout time.Duration, opts ...PublisherOption) *Publisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	p := &Publisher{js: js, subject: subject, timeout: timeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	if p == nil || p.js == nil {
		publishFailuresTotal.Inc()
		return errors.New("queue: publisher not configured")
	}
	if p.connected != nil && !p.connected() {
		publishFailuresTotal.Inc()
		return ErrNotConnected
	}
	data, err := json.Marshal(event)
	if err != nil {
		publishFailuresTotal.Inc()
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.js.Publish(p.subject, data, nats.Context(ctx), nats.MsgId(uuid.NewString())); err != nil {
		publishFailuresTotal.Inc()
		return err
	}
	publishedTotal.Inc()
	return nil
}
