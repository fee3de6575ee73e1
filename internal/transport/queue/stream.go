package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	duplicateWindow = 2 * time.Minute
	maxRetryBackoff = 30 * time.Second
)

// Connect opens a NATS connection with its JetStream context. A broker that
// is down at startup is not an error: the connection keeps retrying in the
// background and reconnects forever. Callers close it with Close.
func Connect(url, name string, opts ...nats.Option) (*nats.Conn, nats.JetStreamContext, error) {
	opts = append([]nats.Option{
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

func Close(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
	}
}

// EnsureStream declares the durable work-queue stream. Both producers and the
// consumer call it so startup order does not matter.
func EnsureStream(js nats.JetStreamManager, name, subject string) error {
	info, err := js.StreamInfo(name)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       name,
			Subjects:   []string{subject},
			Storage:    nats.FileStorage,
			Retention:  nats.WorkQueuePolicy,
			Duplicates: duplicateWindow,
		})
		if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("add stream %s: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stream info %s: %w", name, err)
	}
	if slices.Contains(info.Config.Subjects, subject) {
		return nil
	}
	cfg := info.Config
	cfg.Subjects = append(cfg.Subjects, subject)
	if _, err := js.UpdateStream(&cfg); err != nil {
		return fmt.Errorf("update stream %s: %w", name, err)
	}
	return nil
}

// Retry runs op until it succeeds or ctx ends, doubling the wait between
// attempts up to maxRetryBackoff. onErr sees every failure with the wait that
// follows it.
func Retry(ctx context.Context, initial time.Duration, op func() error, onErr func(err error, wait time.Duration)) error {
	wait := initial
	if wait <= 0 {
		wait = fetchErrorBackoff
	}
	for {
		err := op()
		if err == nil {
			return nil
		}
		if onErr != nil {
			onErr(err, wait)
		}
		sleep(ctx, wait)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}
