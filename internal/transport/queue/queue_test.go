package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type fakeJetStream struct {
	subjects []string
	payloads [][]byte
	optCount []int
	errs     []error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, append([]byte(nil), data...))
	f.optCount = append(f.optCount, len(opts))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &nats.PubAck{Stream: "notifications"}, nil
}

func TestPublisherPublish(t *testing.T) {
	js := &fakeJetStream{errs: []error{errors.New("no responders"), nil}}
	p := NewPublisher(js, "notifications", 0)
	require.Equal(t, DefaultPublishTimeout, p.timeout)

	failuresBefore := testutil.ToFloat64(publishFailuresTotal)
	publishedBefore := testutil.ToFloat64(publishedTotal)

	err := p.Publish(context.Background(), domain.NotificationEvent{UserID: 1, Message: "msg", RedirectLink: "/x"})
	require.Error(t, err)
	err = p.Publish(context.Background(), domain.NotificationEvent{UserID: 2, Message: "msg", RedirectLink: "/x"})
	require.NoError(t, err)

	require.Equal(t, []string{"notifications", "notifications"}, js.subjects)
	require.Equal(t, []int{2, 2}, js.optCount)
	var event domain.NotificationEvent
	require.NoError(t, json.Unmarshal(js.payloads[1], &event))
	require.Equal(t, domain.NotificationEvent{UserID: 2, Message: "msg", RedirectLink: "/x"}, event)
	require.JSONEq(t, `{"userId":2,"message":"msg","redirectLink":"/x"}`, string(js.payloads[1]))

	require.Equal(t, failuresBefore+1, testutil.ToFloat64(publishFailuresTotal))
	require.Equal(t, publishedBefore+1, testutil.ToFloat64(publishedTotal))
}

func TestPublisherFailsFastWhileDisconnected(t *testing.T) {
	js := &fakeJetStream{}
	p := NewPublisher(js, "notifications.events", time.Minute)
	p.connected = func() bool { return false }
	failuresBefore := testutil.ToFloat64(publishFailuresTotal)

	err := p.Publish(context.Background(), domain.NotificationEvent{UserID: 1, Message: "hi"})
	require.ErrorIs(t, err, ErrNotConnected)
	require.Empty(t, js.subjects)
	require.Equal(t, failuresBefore+1, testutil.ToFloat64(publishFailuresTotal))
}

func TestConnectToleratesDownBroker(t *testing.T) {
	nc, js, err := Connect("nats://127.0.0.1:1", "school-api-test", nats.ReconnectWait(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, nc)
	require.NotNil(t, js)
	defer nc.Close()
	require.False(t, nc.IsConnected())

	p := NewPublisher(js, "notifications.events", time.Minute, WithConnection(nc))
	start := time.Now()
	require.ErrorIs(t, p.Publish(context.Background(), domain.NotificationEvent{UserID: 1, Message: "hi"}), ErrNotConnected)
	require.Less(t, time.Since(start), time.Second)
}

func TestRetryBacksOffUntilSuccess(t *testing.T) {
	calls := 0
	var waits []time.Duration
	err := Retry(context.Background(), time.Millisecond, func() error {
		calls++
		if calls < 4 {
			return errors.New("nats: no responders available for request")
		}
		return nil
	}, func(_ error, wait time.Duration) {
		waits = append(waits, wait)
	})
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, waits)
}

func TestRetryStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	}, func(error, time.Duration) { cancel() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestNilPublisher(t *testing.T) {
	var p *Publisher
	require.Error(t, p.Publish(context.Background(), domain.NotificationEvent{UserID: 1}))
}

type fakeDelivery struct {
	data      []byte
	attempt   uint64
	acked     int
	naked     []time.Duration
	settleErr error
}

func (f *fakeDelivery) Data() []byte         { return f.data }
func (f *fakeDelivery) NumDelivered() uint64 { return f.attempt }
func (f *fakeDelivery) Ack() error {
	f.acked++
	return f.settleErr
}
func (f *fakeDelivery) Nak(delay time.Duration) error {
	f.naked = append(f.naked, delay)
	return f.settleErr
}

func TestConsumerDispatchSettles(t *testing.T) {
	cases := []struct {
		name        string
		disposition domain.Disposition
		wantAck     int
		wantNak     int
	}{
		{"stored", domain.DispositionAck, 1, 0},
		{"dropped", domain.DispositionDrop, 1, 0},
		{"retried", domain.DispositionRetry, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotAttempt uint64
			handler := func(_ context.Context, data []byte, attempt uint64) domain.Disposition {
				gotAttempt = attempt
				return tc.disposition
			}
			c := newConsumer(nil, ConsumerConfig{RetryDelay: 3 * time.Second}, handler, zerolog.Nop())
			before := testutil.ToFloat64(consumedTotal.WithLabelValues(tc.name))

			d := &fakeDelivery{data: []byte(`{}`), attempt: 4}
			c.Dispatch(context.Background(), d)

			require.Equal(t, uint64(4), gotAttempt)
			require.Equal(t, tc.wantAck, d.acked)
			require.Len(t, d.naked, tc.wantNak)
			if tc.wantNak > 0 {
				require.Equal(t, 3*time.Second, d.naked[0])
			}
			require.Equal(t, before+1, testutil.ToFloat64(consumedTotal.WithLabelValues(tc.name)))
		})
	}
}

func TestConsumerDispatchRecoversPanics(t *testing.T) {
	c := newConsumer(nil, ConsumerConfig{MaxDeliver: 3}, func(context.Context, []byte, uint64) domain.Disposition {
		panic("boom")
	}, zerolog.Nop())
	d := &fakeDelivery{attempt: 1, settleErr: errors.New("connection closed")}
	require.NotPanics(t, func() { c.Dispatch(context.Background(), d) })
	require.Equal(t, []time.Duration{DefaultRetryDelay}, d.naked)
	require.Zero(t, d.acked)
}

func TestConsumerPanicOnLastDeliveryAcks(t *testing.T) {
	c := newConsumer(nil, ConsumerConfig{MaxDeliver: 3}, func(context.Context, []byte, uint64) domain.Disposition {
		panic("boom")
	}, zerolog.Nop())
	for _, attempt := range []uint64{3, 4} {
		d := &fakeDelivery{attempt: attempt}
		c.Dispatch(context.Background(), d)
		require.Equal(t, 1, d.acked, "attempt %d", attempt)
		require.Empty(t, d.naked, "attempt %d", attempt)
	}
}

func TestConsumerRunLoopsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	fetch := func(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error) {
		calls++
		require.Equal(t, 1, batch)
		switch calls {
		case 1:
			return nil, nats.ErrTimeout
		case 2:
			return []*nats.Msg{{Subject: "notifications", Data: []byte(`{"userId":1}`)}}, nil
		default:
			cancel()
			return nil, context.Canceled
		}
	}
	var handled [][]byte
	handler := func(_ context.Context, data []byte, attempt uint64) domain.Disposition {
		handled = append(handled, data)
		require.Equal(t, uint64(1), attempt)
		return domain.DispositionAck
	}

	c := newConsumer(fetch, ConsumerConfig{FetchWait: 10 * time.Millisecond}, handler, zerolog.Nop())
	require.NoError(t, c.Run(ctx))
	require.Equal(t, 3, calls)
	require.Equal(t, [][]byte{[]byte(`{"userId":1}`)}, handled)
}

type fakeStreamManager struct {
	nats.JetStreamManager
	info    *nats.StreamInfo
	infoErr error
	added   []*nats.StreamConfig
	updated []*nats.StreamConfig
}

func (f *fakeStreamManager) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeStreamManager) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = append(f.added, cfg)
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeStreamManager) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updated = append(f.updated, cfg)
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestEnsureStream(t *testing.T) {
	t.Run("creates durable stream", func(t *testing.T) {
		m := &fakeStreamManager{infoErr: nats.ErrStreamNotFound}
		require.NoError(t, EnsureStream(m, "notifications", "notifications"))
		require.Len(t, m.added, 1)
		require.Equal(t, nats.FileStorage, m.added[0].Storage)
		require.Equal(t, nats.WorkQueuePolicy, m.added[0].Retention)
		require.Equal(t, []string{"notifications"}, m.added[0].Subjects)
	})

	t.Run("existing stream untouched", func(t *testing.T) {
		m := &fakeStreamManager{info: &nats.StreamInfo{Config: nats.StreamConfig{Name: "notifications", Subjects: []string{"notifications"}}}}
		require.NoError(t, EnsureStream(m, "notifications", "notifications"))
		require.Empty(t, m.added)
		require.Empty(t, m.updated)
	})

	t.Run("adds missing subject", func(t *testing.T) {
		m := &fakeStreamManager{info: &nats.StreamInfo{Config: nats.StreamConfig{Name: "notifications", Subjects: []string{"other"}}}}
		require.NoError(t, EnsureStream(m, "notifications", "notifications"))
		require.Len(t, m.updated, 1)
		require.Equal(t, []string{"other", "notifications"}, m.updated[0].Subjects)
	})

	t.Run("propagates lookup failure", func(t *testing.T) {
		m := &fakeStreamManager{infoErr: errors.New("jetstream not enabled")}
		require.Error(t, EnsureStream(m, "notifications", "notifications"))
	})
}
