package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

const (
	DefaultFetchWait  = 5 * time.Second
	DefaultRetryDelay = 10 * time.Second
	DefaultMaxDeliver = 5
	fetchErrorBackoff = time.Second
)

// Delivery is the subset of a JetStream message the consumer acts on.
type Delivery interface {
	Data() []byte
	Ack() error
	Nak(delay time.Duration) error
	NumDelivered() uint64
}

type HandlerFunc func(ctx context.Context, data []byte, attempt uint64) domain.Disposition

type ConsumerConfig struct {
	Stream     string
	Subject    string
	Durable    string
	MaxDeliver int
	RetryDelay time.Duration
	FetchWait  time.Duration
}

type fetchFunc func(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)

// Consumer pulls one message at a time from a durable pull consumer and
// settles it according to the handler's disposition.
type Consumer struct {
	fetch      fetchFunc
	handler    HandlerFunc
	retryDelay time.Duration
	fetchWait  time.Duration
	maxDeliver uint64
	log        zerolog.Logger
}

func NewConsumer(js nats.JetStreamContext, cfg ConsumerConfig, handler HandlerFunc, log zerolog.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("queue: nil handler")
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = DefaultMaxDeliver
	}
	if err := EnsureStream(js, cfg.Stream, cfg.Subject); err != nil {
		return nil, err
	}
	sub, err := js.PullSubscribe(cfg.Subject, cfg.Durable,
		nats.BindStream(cfg.Stream),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.MaxAckPending(1),
	)
	if err != nil {
		return nil, fmt.Errorf("pull subscribe %s: %w", cfg.Durable, err)
	}
	return newConsumer(sub.Fetch, cfg, handler, log), nil
}

func newConsumer(fetch fetchFunc, cfg ConsumerConfig, handler HandlerFunc, log zerolog.Logger) *Consumer {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.FetchWait <= 0 {
		cfg.FetchWait = DefaultFetchWait
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = DefaultMaxDeliver
	}
	return &Consumer{
		fetch:      fetch,
		handler:    handler,
		retryDelay: cfg.RetryDelay,
		fetchWait:  cfg.FetchWait,
		maxDeliver: uint64(cfg.MaxDeliver),
		log:        log.With().Str("component", "notification-consumer").Str("durable", cfg.Durable).Logger(),
	}
}

// Run blocks until ctx is cancelled. Fetch timeouts and handler failures are
// logged and never stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().Msg("consumer started")
	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("consumer stopped")
			return nil
		}
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchWait)
		msgs, err := c.fetch(1, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.log.Warn().Err(err).Msg("fetch failed")
			sleep(ctx, fetchErrorBackoff)
			continue
		}
		for _, msg := range msgs {
			c.Dispatch(ctx, natsDelivery{msg: msg})
		}
	}
}

// Dispatch runs the handler for one delivery and settles it.
func (c *Consumer) Dispatch(ctx context.Context, d Delivery) {
	attempt := d.NumDelivered()
	disposition := c.handle(ctx, d.Data(), attempt)
	consumedTotal.WithLabelValues(disposition.String()).Inc()

	var err error
	switch disposition {
	case domain.DispositionRetry:
		err = d.Nak(c.retryDelay)
	default:
		err = d.Ack()
	}
	if err != nil {
		c.log.Error().Err(err).Str("outcome", disposition.String()).Uint64("attempt", attempt).Msg("settle message failed")
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte, attempt uint64) (disposition domain.Disposition) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Uint64("attempt", attempt).Msg("handler panicked")
			// The server will not redeliver past MaxDeliver; a nak there would
			// leave the message pending in the work queue.
			disposition = domain.DispositionRetry
			if attempt >= c.maxDeliver {
				disposition = domain.DispositionDrop
			}
		}
	}()
	return c.handler(ctx, data, attempt)
}

type natsDelivery struct {
	msg *nats.Msg
}

func (d natsDelivery) Data() []byte { return d.msg.Data }

func (d natsDelivery) Ack() error { return d.msg.Ack() }

func (d natsDelivery) Nak(delay time.Duration) error { return d.msg.NakWithDelay(delay) }

func (d natsDelivery) NumDelivered() uint64 {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return meta.NumDelivered
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
