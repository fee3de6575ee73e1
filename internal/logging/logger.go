package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger writing JSON to stderr, plus a closer for
// the optional Logstash sink. A bad Logstash address is reported on the
// returned logger and otherwise ignored.
func New(level, logstashAddr, service string) (zerolog.Logger, io.Closer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	writers := []io.Writer{os.Stderr}
	var closer io.Closer = nopCloser{}
	var sinkErr error
	if strings.TrimSpace(logstashAddr) != "" {
		w, err := NewLogstashWriter(logstashAddr)
		if err != nil {
			sinkErr = err
		} else {
			writers = append(writers, w)
			closer = w
		}
	}

	logger := NewWithWriter(zerolog.MultiLevelWriter(writers...), level).
		With().Str("service", service).Logger()
	if sinkErr != nil {
		logger.Warn().Err(sinkErr).Msg("logstash sink disabled")
	}
	return logger, closer
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
