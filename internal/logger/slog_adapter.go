package logger

import (
	"context"
	"log/slog"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to the provided Logger.
// Attributes become logger fields; groups are flattened into dotted keys.
// If logger is nil, it returns nil.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogAdapter{log: l}
}

type slogAdapter struct {
	log    *Logger
	groups []string
}

func (h *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	current := h.log.GetLevel()
	return current != LevelNone && fromSlogLevel(level) >= current
}

func (h *slogAdapter) Handle(_ context.Context, record slog.Record) error {
	kv := make([]interface{}, 0, record.NumAttrs()*2)
	record.Attrs(func(attr slog.Attr) bool {
		kv = appendAttr(kv, h.groups, attr)
		return true
	})

	target := h.log.WithFields(kv...)
	switch fromSlogLevel(record.Level) {
	case LevelError:
		target.Error("%s", record.Message)
	case LevelWarn:
		target.Warn("%s", record.Message)
	case LevelInfo:
		target.Info("%s", record.Message)
	default:
		target.Debug("%s", record.Message)
	}
	return nil
}

func (h *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	kv := make([]interface{}, 0, len(attrs)*2)
	for _, attr := range attrs {
		kv = appendAttr(kv, h.groups, attr)
	}
	return &slogAdapter{log: h.log.WithFields(kv...), groups: h.groups}
}

func (h *slogAdapter) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return &slogAdapter{log: h.log, groups: groups}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func appendAttr(kv []interface{}, groups []string, attr slog.Attr) []interface{} {
	if attr.Equal(slog.Attr{}) {
		return kv
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, a := range attr.Value.Group() {
			kv = appendAttr(kv, nested, a)
		}
		return kv
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(kv, key, attr.Value.Resolve().String())
}
