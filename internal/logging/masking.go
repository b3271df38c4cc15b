package logging

import (
	"context"
	"log/slog"
	"strings"
)

// maskingHandler gates records by strict level equality and masks
// sensitive attribute values before delegating to inner.
//
// §4.8 describes masking as applying to "the payload" prior to
// serialization, with configured customFields additionally copied through
// from that payload. Call sites in this codebase pass attributes
// individually rather than as one payload map, so customFields has no
// effect here beyond documenting which extra attribute names a caller is
// expected to attach — the masking rule itself (mask exactly
// password/auth/token/key, case-insensitive) applies uniformly regardless
// of customFields.
type maskingHandler struct {
	inner        slog.Handler
	level        slog.Level
	customFields []string
}

// Enabled implements the strict equality filter: debug logs everything,
// every other configured level logs only records emitted at that exact
// level. This intentionally is not the usual "at or above" floor.
func (h *maskingHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == slog.LevelDebug {
		return true
	}
	return level == h.level
}

func (h *maskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.inner.Handle(ctx, masked)
}

func maskAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "********")
	}
	if group := a.Value.Resolve(); group.Kind() == slog.KindGroup {
		attrs := group.Group()
		masked := make([]any, 0, len(attrs))
		for _, ga := range attrs {
			masked = append(masked, maskAttr(ga))
		}
		return slog.Group(a.Key, masked...)
	}
	return a
}

func isSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

func (h *maskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &maskingHandler{inner: h.inner.WithAttrs(masked), level: h.level, customFields: h.customFields}
}

func (h *maskingHandler) WithGroup(name string) slog.Handler {
	return &maskingHandler{inner: h.inner.WithGroup(name), level: h.level, customFields: h.customFields}
}
