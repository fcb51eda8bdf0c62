package logger

import (
	"apex-dashboard/internal/metrics"

	"go.uber.org/zap/zapcore"
)

// MetricsCore wraps another core, counting every entry by level and
// copying warnings and errors into the recent-log buffer.
type MetricsCore struct {
	zapcore.Core
	buffer *LogBuffer
}

func NewMetricsCore(baseCore zapcore.Core, buffer *LogBuffer) zapcore.Core {
	return &MetricsCore{
		Core:   baseCore,
		buffer: buffer,
	}
}

func (c *MetricsCore) With(fields []zapcore.Field) zapcore.Core {
	return &MetricsCore{Core: c.Core.With(fields), buffer: c.buffer}
}

// Write is called for every log entry
func (c *MetricsCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	metrics.LogEntries.WithLabelValues(entry.Level.String()).Inc()

	if c.buffer != nil && entry.Level >= zapcore.WarnLevel {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		c.buffer.Add(LogEntry{
			Time:    entry.Time,
			Level:   entry.Level.String(),
			Logger:  entry.LoggerName,
			Message: entry.Message,
			Caller:  entry.Caller.Function,
			Fields:  enc.Fields,
		})
	}

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *MetricsCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
