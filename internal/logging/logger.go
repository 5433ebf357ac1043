// Package logging provides the component-tagged logger used across the
// daemon: a thin wrapper over the standard library's log package that
// prefixes every line with a colorized component name.
package logging

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

// LogLevel orders the severities a ComponentLogger can emit.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal logging contract every component depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ComponentLoggerConfig configures a ComponentLogger.
type ComponentLoggerConfig struct {
	ComponentName string
	Color         color.Attribute
	EnabledLevels []LogLevel
	Output        *log.Logger
}

// ComponentLogger tags every line with "[Name]" colorized with the
// configured attribute, and only emits levels present in EnabledLevels
// (all four when EnabledLevels is empty).
type ComponentLogger struct {
	name    string
	color   *color.Color
	enabled map[LogLevel]bool
	out     *log.Logger
}

// NewComponentLogger constructs a logger for one component.
func NewComponentLogger(name string) *ComponentLogger {
	return NewComponentLoggerWithConfig(ComponentLoggerConfig{
		ComponentName: name,
		Color:         color.FgCyan,
	})
}

// NewComponentLoggerWithConfig constructs a logger with explicit options.
func NewComponentLoggerWithConfig(cfg ComponentLoggerConfig) *ComponentLogger {
	enabled := map[LogLevel]bool{DEBUG: true, INFO: true, WARN: true, ERROR: true}
	if len(cfg.EnabledLevels) > 0 {
		enabled = make(map[LogLevel]bool, len(cfg.EnabledLevels))
		for _, lvl := range cfg.EnabledLevels {
			enabled[lvl] = true
		}
	}
	attr := cfg.Color
	if attr == 0 {
		attr = color.FgCyan
	}
	out := cfg.Output
	if out == nil {
		out = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &ComponentLogger{
		name:    cfg.ComponentName,
		color:   color.New(attr),
		enabled: enabled,
		out:     out,
	}
}

func (c *ComponentLogger) log(level LogLevel, format string, args ...any) {
	if c == nil || !c.enabled[level] {
		return
	}
	tag := c.color.Sprintf("[%s]", c.name)
	msg := fmt.Sprintf(format, args...)
	c.out.Printf("%s %s: %s", tag, level, msg)
}

func (c *ComponentLogger) Debug(format string, args ...any) { c.log(DEBUG, format, args...) }
func (c *ComponentLogger) Info(format string, args ...any)  { c.log(INFO, format, args...) }
func (c *ComponentLogger) Warn(format string, args ...any)  { c.log(WARN, format, args...) }
func (c *ComponentLogger) Error(format string, args ...any) { c.log(ERROR, format, args...) }

// nopLogger discards everything; returned by OrNop when given nil.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// OrNop returns l, or a no-op Logger when l is nil, so constructors never
// need to nil-check before logging.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// IsNil reports whether l is nil or a nop logger.
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	_, ok := l.(nopLogger)
	return ok
}
