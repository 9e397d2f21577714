// Package logging provides the structured logger used across luatutor.
//
// It wraps log/slog behind a small Logger interface so packages can log
// with a context, an optional error, and key/value fields without caring
// whether the output is text or JSON. Fields attached to a context with
// NewContext, such as a request id, are added to every line logged with
// that context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is the minimum severity a logger writes.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string onto a LogLevel. Unknown values fall back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		// Above error: nothing is written.
		return slog.LevelError + 4
	}
}

// Logger is the logging interface every package depends on.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig logs text at info level to stderr.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{Level: LevelInfo, Format: "text", Output: os.Stderr}
}

// SlogLogger implements Logger on a slog.Handler. Fields are kept in the
// order they were added; the component is kept apart so that
// WithComponent replaces it instead of stacking a second one.
type SlogLogger struct {
	handler   slog.Handler
	level     slog.Level
	component string
	fields    []any
}

// NewLogger creates a logger from config. A nil config means DefaultConfig.
func NewLogger(config *LoggerConfig) *SlogLogger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	level := config.Level.slogLevel()
	opts := &slog.HandlerOptions{Level: level, AddSource: config.AddSource}

	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &SlogLogger{handler: handler, level: level, component: config.Component}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewLogger(&LoggerConfig{Level: LevelError + 1, Output: io.Discard})
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields)
}

func (l *SlogLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelWarn, err, msg, fields)
}

func (l *SlogLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelError, err, msg, fields)
}

// With returns a child logger that adds fields to every line.
func (l *SlogLogger) With(fields ...any) Logger {
	child := *l
	child.fields = append(append(make([]any, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

// WithComponent returns a child logger tagged with component.
func (l *SlogLogger) WithComponent(component string) Logger {
	child := *l
	child.component = component
	return &child
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields []any) {
	if level < l.level {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	if l.component != "" {
		record.AddAttrs(slog.String("component", l.component))
	}
	if err != nil {
		record.AddAttrs(slog.String("error", err.Error()))
	}
	record.Add(fieldsFrom(ctx)...)
	record.Add(l.fields...)
	record.Add(fields...)
	_ = l.handler.Handle(ctx, record)
}

type ctxFieldsKey struct{}

// NewContext returns a copy of ctx carrying fields. Loggers add them to
// every line logged with the returned context.
func NewContext(ctx context.Context, fields ...any) context.Context {
	merged := append(append([]any{}, fieldsFrom(ctx)...), fields...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

func fieldsFrom(ctx context.Context) []any {
	fields, _ := ctx.Value(ctxFieldsKey{}).([]any)
	return fields
}

// SanitizeForLog strips control characters from user supplied text and caps
// its length so editor contents and search queries can be logged safely.
func SanitizeForLog(data string) string {
	const maxLen = 200
	var b strings.Builder
	for _, r := range data {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if runes := []rune(s); len(runes) > maxLen {
		return string(runes[:maxLen]) + "...[truncated]"
	}
	return s
}

// Timed starts timing operation. The returned func logs the elapsed time at
// debug level, with any extra fields, and returns it.
func Timed(ctx context.Context, logger Logger, operation string) func(fields ...any) time.Duration {
	start := time.Now()
	return func(fields ...any) time.Duration {
		d := time.Since(start)
		logger.Debug(ctx, "Operation completed",
			append([]any{"operation", operation, "duration", d}, fields...)...)
		return d
	}
}
