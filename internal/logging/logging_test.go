package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWithWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLogstashWriterForwardsLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 2)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			received <- scanner.Text()
		}
	}()

	w, err := NewLogstashWriter(ln.Addr().String())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := w.Write([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("{\"b\":2}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, want := range []string{`{"a":1}`, `{"b":2}`} {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for log line")
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.Write([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
}

func TestLogstashWriterDropsWhileUnreachable(t *testing.T) {
	dials := 0
	w, err := NewLogstashWriter("logstash:5000", WithRetryInterval(time.Hour))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.dial = func(string, string, time.Duration) (net.Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}
	for i := 0; i < 3; i++ {
		if n, err := w.Write([]byte("line")); err != nil || n != 4 {
			t.Fatalf("write should never fail: n=%d err=%v", n, err)
		}
	}
	_ = w.Close()
	if dials != 1 {
		t.Fatalf("expected one dial inside the cooldown window, got %d", dials)
	}
	if w.Dropped() != 3 {
		t.Fatalf("expected 3 dropped lines, got %d", w.Dropped())
	}
}

func TestNewLogstashWriterRequiresAddress(t *testing.T) {
	if _, err := NewLogstashWriter("  "); err == nil {
		t.Fatal("expected error for empty address")
	}
}
