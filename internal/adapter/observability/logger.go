// Package observability provides the structured logger the pipeline
// reports through.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
)

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// Logger provides structured logging for the audit pipeline.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// DefaultLogger writes structured logs via the standard logger.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
}

// NewDefaultLogger creates a logger with the specified level and format.
func NewDefaultLogger(level LogLevel, format LogFormat) *DefaultLogger {
	return &DefaultLogger{level: level, format: format}
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.write("info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelWarning {
		return
	}
	l.write("warning", message, fields)
}

// LogError logs an error message with structured fields.
func (l *DefaultLogger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.write("error", message, fields)
}

func (l *DefaultLogger) write(level, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		entry := map[string]interface{}{
			"level":   level,
			"message": message,
		}
		for k, v := range fields {
			entry[k] = v
		}
		if encoded, err := json.Marshal(entry); err == nil {
			log.Print(string(encoded))
			return
		}
	}

	// Human-readable format with stable field ordering.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := fmt.Sprintf("[%s] %s", levelTag(level), message)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	log.Print(line)
}

func levelTag(level string) string {
	switch level {
	case "info":
		return "INFO"
	case "warning":
		return "WARN"
	default:
		return "ERROR"
	}
}
