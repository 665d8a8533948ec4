package logging

import (
	"math"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter is a zapcore.Core that forwards entries to a Logger, so
// packages written against zap share the service's sink and level.
type ZapAdapter struct {
	logger *Logger
}

// NewZapAdapter creates a new zapcore.Core that forwards logs to logger.
func NewZapAdapter(logger *Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger}
}

// NewZapLogger creates a *zap.Logger that forwards logs to logger.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(NewZapAdapter(logger), zap.AddCaller())
}

func levelOf(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

// fieldValue extracts a loggable value from a zap field.
func fieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return field.Integer
	case zapcore.Float64Type:
		return math.Float64frombits(uint64(field.Integer))
	case zapcore.Float32Type:
		return math.Float32frombits(uint32(field.Integer))
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
		return field.Interface
	default:
		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		return enc.Fields[field.Key]
	}
}

func toFields(fields []zapcore.Field, extra int) map[string]interface{} {
	f := make(map[string]interface{}, len(fields)+extra)
	for _, field := range fields {
		f[field.Key] = fieldValue(field)
	}
	return f
}

// Enabled implements zapcore.Core.
func (a *ZapAdapter) Enabled(level zapcore.Level) bool {
	return a.logger.shouldLog(levelOf(level))
}

// With implements zapcore.Core.
func (a *ZapAdapter) With(fields []zapcore.Field) zapcore.Core {
	return &ZapAdapter{logger: a.logger.WithFields(toFields(fields, 0))}
}

// Check implements zapcore.Core.
func (a *ZapAdapter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write implements zapcore.Core. Fatal entries are logged at ERROR; zap
// itself terminates the process afterwards.
func (a *ZapAdapter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := toFields(fields, 1)
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.TrimmedPath()
	}
	a.logger.log(levelOf(ent.Level), ent.Message, f, 0)
	return nil
}

// Sync implements zapcore.Core.
func (a *ZapAdapter) Sync() error {
	return nil
}
