package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// Logger wraps standard log with level-based output
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	debug *log.Logger

	debugEnabled atomic.Bool
}

// NewLogger creates a new leveled logger writing to stdout/stderr
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr)
}

// NewLoggerTo creates a logger with explicit destinations, used for log files and tests
func NewLoggerTo(out, errOut io.Writer) *Logger {
	flags := log.Lmsgprefix
	return &Logger{
		info:  log.New(out, "[INFO]  ", flags),
		warn:  log.New(out, "[WARN]  ", flags),
		error: log.New(errOut, "[ERROR] ", flags),
		debug: log.New(out, "[DEBUG] ", flags),
	}
}

// NewFileLogger mirrors every line into the file at path as well as the terminal
func NewFileLogger(path string) (*Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLoggerTo(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f)), f, nil
}

// SetDebug toggles Debug output
func (l *Logger) SetDebug(enabled bool) {
	l.debugEnabled.Store(enabled)
}

// DebugEnabled reports whether Debug lines are printed
func (l *Logger) DebugEnabled() bool {
	return l.debugEnabled.Load()
}

func (l *Logger) prefix() string {
	return fmt.Sprintf(" %s ", time.Now().Format("15:04:05"))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.info.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.warn.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.error.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !l.debugEnabled.Load() {
		return
	}
	l.debug.Printf(l.prefix()+msg, args...)
}

// Discard returns a logger that drops everything, handy in tests
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard)
}
