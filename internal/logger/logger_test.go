package logger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/CyberAshu/Chatwave-backend/internal/logger"
)

// TestParseLevel maps configuration strings to slog levels.
func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := logger.ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestLoggerWritesMessageAndAttrs checks the rendered line carries the
// message and its key=value attributes.
func TestLoggerWritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, slog.LevelInfo)

	log.Info("session attached", "user_id", 7)

	line := buf.String()
	if !strings.Contains(line, "session attached") {
		t.Errorf("output %q missing the message", line)
	}
	if !strings.Contains(line, "user_id=7") {
		t.Errorf("output %q missing the attribute", line)
	}
}

// TestLoggerRespectsLevel verifies records below the configured level are
// dropped.
func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, slog.LevelWarn)

	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked through a warn-level logger: %q", buf.String())
	}

	log.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn record missing from output %q", buf.String())
	}
}

// TestLoggerWithCarriesAttrs verifies attrs bound via With appear on every
// subsequent record.
func TestLoggerWithCarriesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, slog.LevelInfo).With("conn_id", "abc")

	log.Info("frame received")

	if !strings.Contains(buf.String(), "conn_id=abc") {
		t.Errorf("output %q missing bound attribute", buf.String())
	}
}
