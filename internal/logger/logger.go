// Package logger provides logging wrappers
//
// This package is implemented on top of the sirupsen/logrus package:
//
//	https://github.com/sirupsen/logrus
//
// A Logger is an explicit value created from configuration and passed to the
// components that log; there is no package-level logger. Every entry carries
// the package that logged it, and callers may add further fields.
package logger

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Level is the verbosity threshold. Lower levels are more verbose.
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	CriticalLevel
	OffLevel
)

var levelNames = []string{"trace", "debug", "info", "warn", "error", "critical", "off"}

func (l Level) String() string {
	if l < TraceLevel || l > OffLevel {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive
// and accepts "warning" as an alias of "warn".
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

func (l Level) logrusLevel() log.Level {
	switch l {
	case TraceLevel:
		return log.TraceLevel
	case DebugLevel:
		return log.DebugLevel
	case InfoLevel:
		return log.InfoLevel
	case WarnLevel:
		return log.WarnLevel
	case ErrorLevel, CriticalLevel:
		return log.ErrorLevel
	default:
		return log.PanicLevel
	}
}

// Logger is a leveled, field-carrying logger.
type Logger struct {
	entry *log.Entry
	level Level
}

// New creates a Logger writing text-formatted entries to out.
func New(out io.Writer, level Level) *Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return FromLogrus(l, out, level)
}

// FromLogrus wraps an existing logrus logger. The logger's output and level
// are overwritten; a nil out keeps the current output.
func FromLogrus(l *log.Logger, out io.Writer, level Level) *Logger {
	if out != nil {
		l.SetOutput(out)
	}
	if level >= OffLevel {
		l.SetOutput(io.Discard)
	}
	l.SetLevel(level.logrusLevel())
	return &Logger{entry: log.NewEntry(l), level: level}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, OffLevel)
}

// Level returns the configured threshold.
func (l *Logger) Level() Level {
	return l.level
}

// Enabled reports whether messages at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level && l.level < OffLevel
}

// ForPackage returns a child logger tagged with the package name.
func (l *Logger) ForPackage(pkg string) *Logger {
	return l.WithField("package", pkg)
}

// WithField returns a child logger carrying an extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{entry: l.entry.WithField(key, value), level: l.level}
}

// WithFields returns a child logger carrying extra fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{entry: l.entry.WithFields(log.Fields(fields)), level: l.level}
}

// WithError returns a child logger carrying err under the "error" field.
func (l *Logger) WithError(err error) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{entry: l.entry.WithError(err), level: l.level}
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	if l.Enabled(TraceLevel) {
		l.entry.Tracef(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.Enabled(DebugLevel) {
		l.entry.Debugf(format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.Enabled(InfoLevel) {
		l.entry.Infof(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.Enabled(WarnLevel) {
		l.entry.Warnf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.Enabled(ErrorLevel) {
		l.entry.Errorf(format, args...)
	}
}

// Criticalf logs at error severity with a critical marker; it never exits.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	if l.Enabled(CriticalLevel) {
		l.entry.WithField("critical", true).Errorf(format, args...)
	}
}
