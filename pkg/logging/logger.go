// Package logging writes structured JSON log lines. Each line carries time,
// level and msg at the top level and every field under "fields".
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the structured logger every package accepts.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child that adds fields to every entry
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// LogEntry is the shape of one output line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// sink serialises writes from a logger and all of its children.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
}

// JSONLogger is the Logger used outside tests. Children made with With
// share the parent's writer and level, so SetLevel on the root (a config
// reload) reaches every component logger.
type JSONLogger struct {
	out    *sink
	level  *atomic.Int32
	fields []Field
}

func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	l := &JSONLogger{out: &sink{w: w}, level: new(atomic.Int32)}
	l.level.Store(int32(level))
	return l
}

// New returns a stdout logger at the named level.
func New(level string) *JSONLogger {
	return NewJSONLogger(os.Stdout, ParseLevel(level))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *JSONLogger) SetLevel(level Level) { l.level.Store(int32(level)) }
func (l *JSONLogger) GetLevel() Level      { return Level(l.level.Load()) }

func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{out: l.out, level: l.level, fields: merged}
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	entry := LogEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		// call-site fields win over inherited ones
		entry.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(entry); err != nil {
		buf.Reset()
		fmt.Fprintf(&buf, `{"time":%q,"level":"ERROR","msg":"unencodable log entry","fields":{"error":%q,"dropped_msg":%q}}`+"\n",
			entry.Time, err.Error(), msg)
	}
	l.out.write(buf.Bytes())
}

// NopLogger drops everything.
type NopLogger struct{}

func NewNopLogger() Logger { return NopLogger{} }

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level)         {}
func (NopLogger) GetLevel() Level        { return InfoLevel }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// DefaultLogger is the process-wide logger. Until SetDefaultLogger is
// called it writes to stdout at the LOG_LEVEL environment level.
func DefaultLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

func SetDefaultLogger(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
