package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// sink is shared by a logger and every child created with Named, so
// SetOutput and SetLogLevel affect the whole tree.
type sink struct {
	mu    sync.RWMutex
	out   *log.Logger
	err   *log.Logger
	level LogLevel
}

type Logger struct {
	sink      *sink
	component string
}

var defaultLogger *Logger

func init() {
	levelStr := os.Getenv("MEET_LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = "INFO"
	}
	defaultLogger = NewLoggerWithLevel(ParseLogLevel(levelStr))
	defaultLogger.Debug("Logger initialized with level: %s", defaultLogger.sink.level.String())
}

// NewLogger creates a new logger instance with INFO level
func NewLogger() *Logger {
	return NewLoggerWithLevel(InfoLevel)
}

// NewLoggerWithLevel creates a new logger instance with specified level
func NewLoggerWithLevel(level LogLevel) *Logger {
	return &Logger{
		sink: &sink{
			out:   log.New(os.Stdout, "", 0),
			err:   log.New(os.Stderr, "", 0),
			level: level,
		},
	}
}

// Named returns a child logger that prefixes every line with the component name.
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.component != "" {
		name = l.component + "." + component
	}
	return &Logger{sink: l.sink, component: name}
}

// SetOutput redirects both info and error output. Used by tests to capture diagnostics.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = log.New(w, "", 0)
	l.sink.err = log.New(w, "", 0)
}

func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

func (l *Logger) Level() LogLevel {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	return l.sink.level
}

// formatMessage adds UTC timestamp prefix to the message
func (l *Logger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	if l.component != "" {
		return fmt.Sprintf("[%s] %s: [%s] %s", timestamp, level.String(), l.component, message)
	}
	return fmt.Sprintf("[%s] %s: %s", timestamp, level.String(), message)
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	if level < l.sink.level {
		return
	}
	line := l.formatMessage(level, fmt.Sprintf(format, args...))
	if level >= ErrorLevel {
		l.sink.err.Println(line)
		return
	}
	l.sink.out.Println(line)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WarnLevel, format, args...)
}

// Package-level convenience functions using the default logger

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// Named returns a component logger derived from the default logger.
func Named(component string) *Logger {
	return defaultLogger.Named(component)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// SetLogLevel sets the log level for the default logger
func SetLogLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
	defaultLogger.Info("Log level changed to: %s", level.String())
}

// SetLogLevelFromString sets the log level from a string (convenience function)
func SetLogLevelFromString(level string) {
	SetLogLevel(ParseLogLevel(level))
}
