package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// poolTimeLayout matches the stakepool.log line format used by existing pool
// deployments: a timestamp, a tab, and the message.
const poolTimeLayout = "06-01-02_15-04-05"

// PoolHandler emits flat "<timestamp>\t<message>" lines. Attributes are
// appended to the message as "key=value" pairs so structured fields survive
// in the flat file.
type PoolHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
}

// NewPoolHandler constructs a handler writing the legacy stakepool.log format.
func NewPoolHandler(w io.Writer, lvl *slog.LevelVar) *PoolHandler {
	return &PoolHandler{writer: w, level: lvl}
}

func (h *PoolHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PoolHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var buf bytes.Buffer
	buf.Grow(64 + len(record.Message) + len(kvs)*16)

	buf.WriteString(timestamp.UTC().Format(poolTimeLayout))
	buf.WriteByte('\t')
	if record.Level >= slog.LevelWarn {
		buf.WriteString(levelLabel(record.Level))
		buf.WriteString(": ")
	}
	buf.WriteString(strings.TrimSpace(record.Message))

	for _, kv := range kvs {
		if kv.key == "" || kv.key == FieldComponent {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(kv.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(kv.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *PoolHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *PoolHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *PoolHandler) clone() *PoolHandler {
	clone := &PoolHandler{writer: h.writer, level: h.level}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}
