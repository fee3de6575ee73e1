package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogstashWriter ships JSON log lines to a Logstash TCP input from a
// background goroutine. Writes only enqueue; lines are dropped when the buffer
// is full or Logstash is unreachable.
type LogstashWriter struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration
	dial          func(network, addr string, timeout time.Duration) (net.Conn, error)

	lines   chan []byte
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64

	conn      net.Conn
	nextRetry time.Time
}

type Option func(*LogstashWriter)

// WithDialTimeout overrides the TCP dial timeout. Defaults to 2 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) {
		w.dialTimeout = d
	}
}

// WithWriteTimeout overrides the TCP write timeout. Defaults to 1 second.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) {
		w.writeTimeout = d
	}
}

// WithRetryInterval overrides the cool-down after a failed connect or write.
// Defaults to 5 seconds.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) {
		w.retryInterval = d
	}
}

// WithBuffer sets how many lines may wait for the network. Defaults to 1024.
func WithBuffer(n int) Option {
	return func(w *LogstashWriter) {
		if n > 0 {
			w.lines = make(chan []byte, n)
		}
	}
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}

	w := &LogstashWriter{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		dial:          net.DialTimeout,
		lines:         make(chan []byte, 1024),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w, nil
}

// Write implements io.Writer and never blocks on the network.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	data := make([]byte, len(p), len(p)+1)
	copy(data, p)
	if data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case w.lines <- data:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped reports how many lines never reached Logstash.
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close flushes queued lines and tears down the connection.
func (w *LogstashWriter) Close() error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.lines)
		w.mu.Unlock()
	})
	<-w.done
	return nil
}

func (w *LogstashWriter) run() {
	defer close(w.done)
	for line := range w.lines {
		w.send(line)
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

func (w *LogstashWriter) send(line []byte) {
	if err := w.ensureConn(); err != nil {
		w.dropped.Add(1)
		return
	}
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	if _, err := w.conn.Write(line); err != nil {
		_ = w.conn.Close()
		w.conn = nil
		w.scheduleRetry()
		w.dropped.Add(1)
	}
}

func (w *LogstashWriter) ensureConn() error {
	if w.conn != nil {
		return nil
	}
	if !w.nextRetry.IsZero() && time.Now().Before(w.nextRetry) {
		return errRetryCooldown
	}
	conn, err := w.dial("tcp", w.addr, w.dialTimeout)
	if err != nil {
		w.scheduleRetry()
		return err
	}
	w.conn = conn
	w.nextRetry = time.Time{}
	return nil
}

func (w *LogstashWriter) scheduleRetry() {
	if w.retryInterval <= 0 {
		w.nextRetry = time.Time{}
		return
	}
	w.nextRetry = time.Now().Add(w.retryInterval)
}

var errRetryCooldown = errors.New("logstash: retry cooldown in effect")
