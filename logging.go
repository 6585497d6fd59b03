package light2d

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// LogLevel is the lowest severity a DefaultLogger writes. The zero value is LevelInfo.
type LogLevel int32

const (
	LevelDebug LogLevel = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

func (lv LogLevel) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LogLevel(%d)", int32(lv))
	}
}

// ParseLogLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// DefaultLogger writes "[prefix] LEVEL: message" lines: debug and info to one
// writer, warnings and errors to another. Safe for concurrent use.
type DefaultLogger struct {
	level  atomic.Int32
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewDefaultLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func NewDefaultLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
	l.SetDebug(debug)
	return l
}

func (l *DefaultLogger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *DefaultLogger) DebugEnabled() bool {
	return l.Level() <= LevelDebug
}

// SetDebug switches between LevelDebug and LevelInfo.
func (l *DefaultLogger) SetDebug(enabled bool) {
	if enabled {
		l.SetLevel(LevelDebug)
	} else {
		l.SetLevel(LevelInfo)
	}
}

func (l *DefaultLogger) logf(level LogLevel, format string, args ...any) {
	if level < l.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s: %s", l.prefix, level, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", level, msg)
	}
	if level >= LevelWarn {
		l.err.Print(msg)
		return
	}
	l.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// LoggingModule installs a DefaultLogger as a resource. Debug overrides Level.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Level  LogLevel
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	logger := NewDefaultLogger(m.Prefix, false)
	logger.SetLevel(m.Level)
	if m.Debug {
		logger.SetLevel(LevelDebug)
	}
	cmd.AddResources(logger)
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Logger returns the installed *DefaultLogger, else any other Logger resource,
// else a no-op logger. Never nil.
func (app *App) Logger() Logger {
	if app == nil || app.resources == nil {
		return NewNopLogger()
	}
	if l := Resource[DefaultLogger](app); l != nil {
		return l
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}
