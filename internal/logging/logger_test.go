package logging

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestPoolHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(NewPoolHandler(&buf, lvl))

	logger.Info("New block found", Int64(FieldHeight, 200123))

	line := strings.TrimRight(buf.String(), "\n")
	parts := strings.SplitN(line, "\t", 2)
	if len(parts) != 2 {
		t.Fatalf("expected timestamp<TAB>message, got %q", line)
	}

	matched, err := regexp.MatchString(`^\d{2}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}$`, parts[0])
	if err != nil || !matched {
		t.Fatalf("timestamp %q does not match YY-MM-DD_HH-MM-SS", parts[0])
	}
	if _, err := time.Parse(poolTimeLayout, parts[0]); err != nil {
		t.Fatalf("timestamp %q not parseable: %v", parts[0], err)
	}
	if !strings.HasPrefix(parts[1], "New block found") {
		t.Fatalf("unexpected message %q", parts[1])
	}
	if !strings.Contains(parts[1], "height=200123") {
		t.Fatalf("expected height attribute in %q", parts[1])
	}
}

func TestPoolHandlerMarksWarnings(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(NewPoolHandler(&buf, lvl))

	logger.Warn("rpc unreachable")
	if !strings.Contains(buf.String(), "\tWARN: rpc unreachable") {
		t.Fatalf("expected WARN prefix, got %q", buf.String())
	}
}

func TestPoolHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(NewPoolHandler(&buf, lvl))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
}
