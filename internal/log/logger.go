// Package log provides diagnostic logging to stderr and a log file,
// kept separate from the scan report itself (which is the program's
// actual stdout output and must stay parseable in --json mode).
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"
)

// Logger writes diagnostic output to both stderr and a log file.
type Logger struct {
	file   *os.File
	writer io.Writer
}

// New creates a logger writing into logDir/aegis.log.
func New(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "aegis.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		file:   file,
		writer: io.MultiWriter(os.Stderr, file),
	}, nil
}

// Printf writes a formatted diagnostic message to stderr and the log file.
func (l *Logger) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

// Errorf writes a timestamped error message to stderr and the log file.
func (l *Logger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(l.writer, "[%s] %s\n", timestamp, msg)
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

var globalLogger *Logger

// Init initializes the global logger and redirects the standard log
// package's output to the same file, so any stray log.Printf from a
// dependency lands in one place.
func Init(logDir string) error {
	logger, err := New(logDir)
	if err != nil {
		return err
	}
	globalLogger = logger
	stdlog.SetOutput(logger.file)
	stdlog.SetFlags(stdlog.Ldate | stdlog.Ltime)
	return nil
}

// Printf uses the global logger, falling back to stderr if Init was
// never called (e.g. in tests).
func Printf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Printf(format, args...)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Errorf uses the global logger's error formatting.
func Errorf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Errorf(format, args...)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Close closes the global logger, if initialized.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
