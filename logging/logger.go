package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var levelColors = [...]string{
	"\033[36m",       // Cyan
	"\033[38;5;195m", // Pale Blue
	"\033[33m",       // Yellow
	"\033[31m",       // Red
	"\033[35m",       // Magenta
}

const colorReset = "\033[0m"

// String returns the string representation of the log level
func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Color returns ANSI color codes for terminal output
func (l LogLevel) Color() string {
	if l < DEBUG || l > FATAL {
		return colorReset
	}
	return levelColors[l]
}

// ParseLevel converts a string level to LogLevel, defaulting to INFO
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Config holds logger configuration options
type Config struct {
	Level       string // "debug", "info", "warn", "error", "fatal"
	Output      io.Writer
	Prefix      string
	EnableColor bool
	// LogFile, when set, receives an uncolored copy of every line
	LogFile string
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Output:      os.Stdout,
		EnableColor: true,
	}
}

// Logger is a leveled logger with an optional prefix.
// Loggers derived with WithPrefix share the parent's level and sinks.
type Logger struct {
	core   *core
	prefix string
}

type core struct {
	mu          sync.RWMutex
	level       LogLevel
	enableColor bool
	console     *log.Logger
	file        *log.Logger
	exit        func(int)
}

// New creates a new Logger instance. A log file that cannot be opened is
// reported on the console and skipped.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	c := &core{
		level:       ParseLevel(config.Level),
		enableColor: config.EnableColor,
		console:     log.New(config.Output, "", 0),
		exit:        os.Exit,
	}

	if config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err == nil {
			f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				c.file = log.New(f, "", 0)
			} else {
				c.console.Printf("logging: cannot open %s: %v", config.LogFile, err)
			}
		}
	}

	return &Logger{core: c, prefix: config.Prefix}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

// SetOutput sets the console destination
func (l *Logger) SetOutput(w io.Writer) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.console.SetOutput(w)
}

// IsLevelEnabled checks if the given level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	l.core.mu.RLock()
	defer l.core.mu.RUnlock()
	return level >= l.core.level
}

// WithPrefix returns a logger that prepends prefix, nested as parent:child
func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := prefix
	if l.prefix != "" {
		newPrefix = l.prefix + ":" + prefix
	}
	return &Logger{core: l.core, prefix: newPrefix}
}

func (l *Logger) format(level LogLevel, message string, color bool) string {
	prefix := ""
	if l.prefix != "" {
		prefix = "[" + l.prefix + "] "
	}
	line := fmt.Sprintf("%-5s %s %-30s%s",
		level.String(),
		time.Now().Format("2006-01-02 15:04:05.000"),
		prefix,
		message,
	)
	if color {
		return level.Color() + line + colorReset
	}
	return line
}

func (l *Logger) write(level LogLevel, message string) {
	if !l.IsLevelEnabled(level) {
		return
	}

	l.core.mu.RLock()
	l.core.console.Print(l.format(level, message, l.core.enableColor))
	if l.core.file != nil {
		l.core.file.Print(l.format(level, message, false))
	}
	exit := l.core.exit
	l.core.mu.RUnlock()

	if level == FATAL {
		exit(1)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(args ...interface{}) { l.write(DEBUG, fmt.Sprint(args...)) }

// Debugf logs a formatted message at DEBUG level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(DEBUG, fmt.Sprintf(format, args...))
}

// Info logs a message at INFO level
func (l *Logger) Info(args ...interface{}) { l.write(INFO, fmt.Sprint(args...)) }

// Infof logs a formatted message at INFO level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(INFO, fmt.Sprintf(format, args...))
}

// Warn logs a message at WARN level
func (l *Logger) Warn(args ...interface{}) { l.write(WARN, fmt.Sprint(args...)) }

// Warnf logs a formatted message at WARN level
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(WARN, fmt.Sprintf(format, args...))
}

// Error logs a message at ERROR level
func (l *Logger) Error(args ...interface{}) { l.write(ERROR, fmt.Sprint(args...)) }

// Errorf logs a formatted message at ERROR level
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(ERROR, fmt.Sprintf(format, args...))
}

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(args ...interface{}) { l.write(FATAL, fmt.Sprint(args...)) }

// Fatalf logs a formatted message at FATAL level and exits the program
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.write(FATAL, fmt.Sprintf(format, args...))
}
