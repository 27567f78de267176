package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Logger wraps zerolog.Logger with convenience methods
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger for the environment: console output in development, JSON otherwise
func New(env string) *Logger {
	if env == "development" {
		return NewWithWriter(env, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(env string, w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if env == "development" {
		level = zerolog.DebugLevel
	}

	l := zerolog.New(w).Level(level).With().Timestamp().Str("env", env).Logger()
	if env == "development" {
		l = l.With().Caller().Logger()
	}

	return &Logger{logger: l}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(err error, format string, v ...interface{}) {
	l.logger.Error().Err(err).Msgf(format, v...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, err error) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// With returns a new logger with an additional context field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithFields returns a new logger with multiple context fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{logger: l.logger.With().Fields(fields).Logger()}
}

// WithContext returns a logger carrying the trace and span ids of the active span in ctx.
// Without a recording span the logger is returned unchanged.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return &Logger{
		logger: l.logger.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger(),
	}
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(l *Logger) {
	log.Logger = l.logger
}
