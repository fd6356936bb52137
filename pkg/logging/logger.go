package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// NewJSONLogger creates a JSON logger writing to writer at the given level
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	l := &JSONLogger{writer: writer, mu: &sync.Mutex{}}
	l.level.Store(int32(level))
	return l
}

// log renders the line without holding the writer lock; only the write
// itself is serialized.
func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	line := make([]byte, 0, 128+len(l.prefix))
	line = append(line, `{"time":"`...)
	line = time.Now().AppendFormat(line, time.RFC3339Nano)
	line = append(line, `","level":"`...)
	line = append(line, level.String()...)
	line = append(line, `","msg":`...)
	line = appendJSON(line, msg)

	if len(l.prefix) > 0 || len(fields) > 0 {
		line = append(line, `,"fields":{`...)
		line = append(line, l.prefix...)
		for i, f := range fields {
			if i > 0 || len(l.prefix) > 0 {
				line = append(line, ',')
			}
			line = appendField(line, f)
		}
		line = append(line, '}')
	}
	line = append(line, "}\n"...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(line)
}

// appendField renders `"key":value`. A value that cannot be encoded is
// written as its fmt representation.
func appendField(buf []byte, f Field) []byte {
	buf = appendJSON(buf, f.Key)
	buf = append(buf, ':')
	value, err := json.Marshal(f.Value)
	if err != nil {
		return appendJSON(buf, fmt.Sprintf("%v", f.Value))
	}
	return append(buf, value...)
}

func appendJSON(buf []byte, s string) []byte {
	quoted, _ := json.Marshal(s)
	return append(buf, quoted...)
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With returns a child logger whose lines carry fields ahead of their own.
// The fields are rendered once here. A key logged again later wins when the
// line is decoded. The child shares the parent's writer lock.
func (l *JSONLogger) With(fields ...Field) Logger {
	prefix := append([]byte(nil), l.prefix...)
	for _, f := range fields {
		if len(prefix) > 0 {
			prefix = append(prefix, ',')
		}
		prefix = appendField(prefix, f)
	}

	child := &JSONLogger{writer: l.writer, prefix: prefix, mu: l.mu}
	child.level.Store(l.level.Load())
	return child
}

// SetLevel sets the minimum log level of this logger only
func (l *JSONLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	return Level(l.level.Load())
}

var defaultLogger atomic.Pointer[Logger]

// DefaultLogger returns the process-wide logger. Until SetDefaultLogger is
// called it writes to stderr at the level named by LOG_LEVEL.
func DefaultLogger() Logger {
	if p := defaultLogger.Load(); p != nil {
		return *p
	}

	var logger Logger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
	if defaultLogger.CompareAndSwap(nil, &logger) {
		return logger
	}
	return *defaultLogger.Load()
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(&logger)
}

// OrDefault returns logger, or the process-wide logger when logger is nil
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger()
	}
	return logger
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the timer started
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation at info level with its duration
func (t *TimedOperation) End(fields ...Field) {
	all := append(append([]Field{}, t.fields...), fields...)
	t.logger.Info(t.msg, append(all, Latency(t.Elapsed()))...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) {
	all := append([]Field{}, t.fields...)
	t.logger.Error(t.msg, append(all, Latency(t.Elapsed()), Error(err))...)
}
