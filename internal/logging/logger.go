// Package logging provides structured logging for the class-refactoring
// state service.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel logs are high-priority.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel LogLevel = "FATAL"
)

var severity = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
	FatalLevel: 4,
}

// Format selects how entries are encoded.
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// sink is shared by a logger and all loggers derived from it.
type sink struct {
	mu     sync.Mutex
	output io.Writer
	format Format
}

// Logger represents an active logging object.
type Logger struct {
	level  LogLevel
	sink   *sink
	fields map[string]interface{}
}

// New creates a JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return newLogger(level, output, JSONFormat)
}

func newLogger(level LogLevel, output io.Writer, format Format) *Logger {
	return &Logger{
		level:  level,
		sink:   &sink{output: output, format: format},
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a new Logger with the specified fields added.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, sink: l.sink, fields: merged}
}

// WithField returns a new Logger with the specified key-value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// log writes one entry. skip is the number of frames between log and the
// caller to report.
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}, skip int) {
	if !l.shouldLog(level) {
		return
	}

	entry := make(map[string]interface{}, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["message"] = msg
	if _, ok := entry["caller"]; !ok {
		entry["caller"] = caller(skip + 1)
	}

	var line []byte
	if l.sink.format == TextFormat {
		line = encodeText(entry)
	} else {
		var err error
		if line, err = json.Marshal(entry); err != nil {
			line = []byte(fmt.Sprintf("%s [%s] %s: %+v", entry["timestamp"], level, msg, fields))
		}
	}
	line = append(line, '\n')

	l.sink.mu.Lock()
	_, _ = l.sink.output.Write(line)
	l.sink.mu.Unlock()

	if level == FatalLevel {
		os.Exit(1)
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "???:0"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// encodeText renders "timestamp LEVEL message k=v ..." with keys sorted.
func encodeText(entry map[string]interface{}) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", entry["timestamp"], entry["level"], entry["message"])

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "timestamp", "level", "message":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	return []byte(b.String())
}

// shouldLog returns true if the given level should be logged.
func (l *Logger) shouldLog(level LogLevel) bool {
	want, ok := severity[level]
	if !ok {
		return false
	}
	current, ok := severity[l.level]
	if !ok {
		return false
	}
	return want >= current
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields), 1)
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields), 1)
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields), 1)
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields), 1)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields), 1)
}

// CtxLogger is a logger carried in a context.
type CtxLogger struct {
	*Logger
}

// FromContext returns the logger stored in ctx, or a default INFO logger
// writing to stderr.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context carrying the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
