package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log levels
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
	// SILENT disables all output, FATAL included
	SILENT
)

// Logger is a levelled logger writing one line per message.
// A nil *Logger is valid and discards everything.
type Logger struct {
	level     LogLevel
	logger    *log.Logger
	file      *os.File
	useColors bool
	component string
	exit      func(int)
}

// levelColors maps log levels to ANSI color codes
var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
	FATAL: "\033[35m", // Magenta
}

// levelPrefixes maps log levels to text prefixes
var levelPrefixes = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// ParseLevel converts a level name to a LogLevel.
func ParseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	case "silent", "off":
		return SILENT, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", levelStr)
}

// NewLogger creates a console logger with the specified log level.
// Unknown level names fall back to INFO.
func NewLogger(levelStr string) *Logger {
	level, _ := ParseLevel(levelStr)

	l := New(os.Stdout, level)
	l.useColors = true

	// Disable colors if not in a terminal
	if fileInfo, err := os.Stdout.Stat(); err != nil || (fileInfo.Mode()&os.ModeCharDevice) == 0 {
		l.useColors = false
	}

	return l
}

// New creates an uncolored logger writing to w.
func New(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", 0), // prefix is formatted per message
		exit:   os.Exit,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return New(io.Discard, SILENT)
}

// NewMultiLogger creates a logger that writes to both console and file
func NewMultiLogger(levelStr, filePath string) (*Logger, error) {
	file, err := openLogFile(filePath)
	if err != nil {
		return nil, err
	}

	l := NewLogger(levelStr)
	l.logger.SetOutput(io.MultiWriter(os.Stdout, file))
	l.file = file
	l.useColors = false

	return l, nil
}

func openLogFile(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// With returns a logger that tags every message with component.
// The returned logger shares its output with l.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	if child.component != "" {
		component = child.component + "." + component
	}
	child.component = component
	return &child
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && level >= l.level && l.level != SILENT
}

// output writes msg with the standard prefix. It must be called directly
// from an exported method so that Caller(2) lands on the user's call site.
func (l *Logger) output(level LogLevel, msg string) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	now := time.Now().Format("2006/01/02 15:04:05")
	prefix := fmt.Sprintf("%s [%s] %s:%d:", now, levelPrefixes[level], filepath.Base(file), line)

	if l.useColors {
		prefix = levelColors[level] + prefix + "\033[0m"
	}
	if l.component != "" {
		prefix += " [" + l.component + "]"
	}

	l.logger.Println(prefix, msg)
}

// exitFatal ends the program whether or not the message was written.
func (l *Logger) exitFatal() {
	if l == nil {
		os.Exit(1)
	}
	l.Close()
	l.exit(1)
}

// Debug logs a debug message
func (l *Logger) Debug(v ...interface{}) {
	if l.Enabled(DEBUG) {
		l.output(DEBUG, fmt.Sprint(v...))
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.Enabled(DEBUG) {
		l.output(DEBUG, fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func (l *Logger) Info(v ...interface{}) {
	if l.Enabled(INFO) {
		l.output(INFO, fmt.Sprint(v...))
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.Enabled(INFO) {
		l.output(INFO, fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(v ...interface{}) {
	if l.Enabled(WARN) {
		l.output(WARN, fmt.Sprint(v...))
	}
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.Enabled(WARN) {
		l.output(WARN, fmt.Sprintf(format, v...))
	}
}

// Error logs an error message
func (l *Logger) Error(v ...interface{}) {
	if l.Enabled(ERROR) {
		l.output(ERROR, fmt.Sprint(v...))
	}
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.Enabled(ERROR) {
		l.output(ERROR, fmt.Sprintf(format, v...))
	}
}

// Fatal logs a fatal message and exits the program. It exits even when
// the level suppresses the message.
func (l *Logger) Fatal(v ...interface{}) {
	if l.Enabled(FATAL) {
		l.output(FATAL, fmt.Sprint(v...))
	}
	l.exitFatal()
}

// Fatalf logs a formatted fatal message and exits the program
func (l *Logger) Fatalf(format string, v ...interface{}) {
	if l.Enabled(FATAL) {
		l.output(FATAL, fmt.Sprintf(format, v...))
	}
	l.exitFatal()
}

// Close closes the logger's file if it exists
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
