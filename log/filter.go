package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

const redacted = "[redacted]"

// RedactCore replaces the value of every field whose key matches one of keys,
// case insensitively, before the entry reaches core.
func RedactCore(core zapcore.Core, keys ...string) zapcore.Core {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key = strings.ToLower(strings.TrimSpace(key)); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return core
	}
	return redactCore{Core: core, keys: set}
}

type redactCore struct {
	zapcore.Core
	keys map[string]struct{}
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{Core: c.Core.With(c.redact(fields)), keys: c.keys}
}

func (c redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.redact(fields))
}

func (c redactCore) redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if _, ok := c.keys[strings.ToLower(f.Key)]; !ok {
			continue
		}
		if out == nil {
			out = append(make([]zapcore.Field, 0, len(fields)), fields...)
		}
		out[i] = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: redacted}
	}
	if out == nil {
		return fields
	}
	return out
}
