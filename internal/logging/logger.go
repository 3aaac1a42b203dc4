// Package logging provides the leveled, colored logger used by every examgen
// service, plus helpers for tracing inter-agent traffic and LLM calls.
// Verbosity and the per-concern toggles are read from the A2A_LOG_*
// environment variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for each level.
func (l Level) Color() string {
	switch l {
	case LevelDebug:
		return "\033[36m"
	case LevelInfo:
		return "\033[32m"
	case LevelWarn:
		return "\033[33m"
	case LevelError:
		return "\033[31m"
	case LevelFatal:
		return "\033[35m"
	default:
		return "\033[0m"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Logger is a mutex-guarded leveled logger with an optional component tag
// and structured fields appended to each line.
type Logger struct {
	mu        sync.Mutex
	level     Level
	output    io.Writer
	colored   bool
	showTime  bool
	component string
	fields    map[string]interface{}
}

// Config configures the logger behavior.
type Config struct {
	Level     Level
	Colored   bool
	ShowTime  bool
	Component string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:    LevelInfo,
		Colored:  true,
		ShowTime: true,
	}
}

// New creates a new Logger instance.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Logger{
		level:     cfg.Level,
		output:    os.Stderr,
		colored:   cfg.Colored,
		showTime:  cfg.ShowTime,
		component: cfg.Component,
		fields:    make(map[string]interface{}),
	}
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

func init() {
	cfg := DefaultConfig()
	if lvl := os.Getenv("A2A_LOG_LEVEL"); lvl != "" {
		cfg.Level = ParseLevel(lvl)
	}
	globalLogger = New(cfg)
}

// SetGlobal sets the global logger instance.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Global returns the global logger instance.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLevel sets the global log level.
func SetLevel(level Level) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger.level = level
}

// SetOutput redirects the logger's output. Used by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// WithComponent returns a new logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	nl := &Logger{
		level:     l.level,
		output:    l.output,
		colored:   l.colored,
		showTime:  l.showTime,
		component: name,
		fields:    make(map[string]interface{}),
	}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	return nl
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	nl := &Logger{
		level:     l.level,
		output:    l.output,
		colored:   l.colored,
		showTime:  l.showTime,
		component: l.component,
		fields:    make(map[string]interface{}),
	}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	nl.fields[key] = value
	return nl
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	reset := "\033[0m"

	if l.showTime {
		ts := time.Now().Format("15:04:05.000")
		if l.colored {
			sb.WriteString("\033[90m" + ts + reset + " ")
		} else {
			sb.WriteString(ts + " ")
		}
	}

	if l.colored {
		sb.WriteString(level.Color())
		sb.WriteString(fmt.Sprintf("%-5s", level.String()))
		sb.WriteString(reset + " ")
	} else {
		sb.WriteString(fmt.Sprintf("%-5s ", level.String()))
	}

	if l.component != "" {
		if l.colored {
			sb.WriteString(agentColor(l.component) + "[" + l.component + "]" + reset + " ")
		} else {
			sb.WriteString("[" + l.component + "] ")
		}
	}

	sb.WriteString(fmt.Sprintf(format, args...))

	if len(l.fields) > 0 {
		sb.WriteString(" ")
		if l.colored {
			sb.WriteString("\033[90m")
		}
		sb.WriteString("{")
		first := true
		for k, v := range l.fields {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString("}")
		if l.colored {
			sb.WriteString(reset)
		}
	}

	sb.WriteString("\n")
	l.output.Write([]byte(sb.String()))
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
	os.Exit(1)
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes color escape sequences from a string.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// agentColor maps an agent/component name onto a stable terminal color so
// interleaved multi-service output stays readable.
func agentColor(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "orchestrator"):
		return "\033[95m"
	case strings.Contains(n, "concept"):
		return "\033[94m"
	case strings.Contains(n, "generator") || strings.Contains(n, "question"):
		return "\033[92m"
	case strings.Contains(n, "quality") || strings.Contains(n, "checker"):
		return "\033[93m"
	case strings.Contains(n, "correctness") || strings.Contains(n, "verifier"):
		return "\033[96m"
	default:
		return "\033[94m"
	}
}
