package core

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

type DefaultLogger struct {
	level   LogLevel
	handler *slog.Logger
	output  io.Writer
	console bool
}

// NewDefaultLogger writes pterm console lines and slog text records to output.
func NewDefaultLogger(output io.Writer, level LogLevel) *DefaultLogger {
	return NewFormattedLogger(output, level, "text", true)
}

// NewFormattedLogger builds a logger with the given slog format (text or json).
// When console is false only the structured records are written.
func NewFormattedLogger(output io.Writer, level LogLevel, format string, console bool) *DefaultLogger {
	var slogLevel slog.Level
	switch level {
	case LevelTrace, LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var handler *slog.Logger
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		handler = slog.New(slog.NewTextHandler(output, opts))
	}

	return &DefaultLogger{
		level:   level,
		handler: handler,
		output:  output,
		console: console,
	}
}

// Slog exposes the underlying structured logger.
func (l *DefaultLogger) Slog() *slog.Logger {
	return l.handler
}

func (l *DefaultLogger) Trace(msg string, args ...any) {
	if l.level <= LevelTrace {
		if l.console {
			pterm.Debug.WithWriter(l.output).Println("TRACE: " + msg)
		}
		l.handler.Debug(msg, args...)
	}
}

func (l *DefaultLogger) Debug(msg string, args ...any) {
	if l.level <= LevelDebug {
		if l.console {
			pterm.Debug.WithWriter(l.output).Println(msg)
		}
		l.handler.Debug(msg, args...)
	}
}

func (l *DefaultLogger) Info(msg string, args ...any) {
	if l.level <= LevelInfo {
		if l.console {
			pterm.Info.WithWriter(l.output).Println(msg)
		}
		l.handler.Info(msg, args...)
	}
}

func (l *DefaultLogger) Warn(msg string, args ...any) {
	if l.level <= LevelWarn {
		if l.console {
			pterm.Warning.WithWriter(l.output).Println(msg)
		}
		l.handler.Warn(msg, args...)
	}
}

func (l *DefaultLogger) Error(msg string, args ...any) {
	if l.level <= LevelError {
		if l.console {
			pterm.Error.WithWriter(l.output).Println(msg)
		}
		l.handler.Error(msg, args...)
	}
}

func (l *DefaultLogger) With(args ...any) Logger {
	return &DefaultLogger{
		level:   l.level,
		handler: l.handler.With(args...),
		output:  l.output,
		console: l.console,
	}
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
}
