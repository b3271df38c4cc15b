package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// textLineHandler renders "[<timestamp>] <LEVEL>: <JSON of masked data>"
// per §4.8's text format, as an alternative to the JSON-per-line default.
type textLineHandler struct {
	out   io.Writer
	opts  *slog.HandlerOptions
	mu    sync.Mutex
	attrs []slog.Attr
	group string
}

func (h *textLineHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts != nil && h.opts.Level != nil {
		return level >= h.opts.Level.Level()
	}
	return true
}

func (h *textLineHandler) Handle(_ context.Context, record slog.Record) error {
	data := make(map[string]any, record.NumAttrs()+len(h.attrs)+1)
	data["msg"] = record.Message

	put := func(key string, value any) {
		if h.group != "" {
			key = h.group + "." + key
		}
		data[key] = value
	}
	for _, a := range h.attrs {
		put(a.Key, a.Value.Any())
	}
	record.Attrs(func(a slog.Attr) bool {
		put(a.Key, a.Value.Any())
		return true
	})

	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = fmt.Fprintf(h.out, "[%s] %s: %s\n", record.Time.Format("2006-01-02T15:04:05.000Z07:00"), record.Level.String(), encoded)
	return err
}

func (h *textLineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &textLineHandler{out: h.out, opts: h.opts, group: h.group}
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return next
}

func (h *textLineHandler) WithGroup(name string) slog.Handler {
	next := &textLineHandler{out: h.out, opts: h.opts, attrs: h.attrs}
	if h.group == "" {
		next.group = name
	} else {
		next.group = h.group + "." + name
	}
	return next
}
