package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging levels
type LogLevel int32

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// String returns the upper-case level name
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel converts a level name such as "debug" or "TRACE" to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if levelName == upper {
			return level, true
		}
	}
	return LevelInfo, false
}

// Logger provides leveled, prefixed logging on top of zap.
// Loggers derived with WithPrefix share the level of their parent.
type Logger struct {
	level  *atomic.Int32
	prefix string
	sugar  *zap.SugaredLogger
	out    *output // nil when the core was supplied by the caller
}

// output is the sink shared by a logger and every logger derived from it
type output struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *output) Sync() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.w.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("LIBFS")

		// Set initial log level from environment
		if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			defaultLogger.SetLevel(level)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given prefix writing to stderr.
// Stdout is left to command output.
func NewLogger(prefix string) *Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006/01/02 15:04:05.000000"))
	}
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if os.Getenv("LOG_LONGFILE") != "" {
		encoderCfg.EncodeCaller = zapcore.FullCallerEncoder
	}

	out := &output{w: os.Stderr}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		out,
		zapcore.DebugLevel,
	)
	logger := NewLoggerWithCore(prefix, core)
	logger.out = out
	return logger
}

// NewLoggerWithCore creates a logger that writes through the given zap core.
// The core should accept DebugLevel; filtering happens on the LogLevel.
func NewLoggerWithCore(prefix string, core zapcore.Core) *Logger {
	level := &atomic.Int32{}
	level.Store(int32(LevelInfo)) // Default to INFO level

	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	return &Logger{
		level:  level,
		prefix: prefix,
		sugar:  base.Named(prefix).Sugar(),
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// SetOutput redirects the logger and all loggers derived from it to w.
// It has no effect on loggers built with NewLoggerWithCore.
func (l *Logger) SetOutput(w io.Writer) {
	if l.out == nil {
		return
	}
	l.out.mu.Lock()
	l.out.w = w
	l.out.mu.Unlock()
}

// Level returns the current logging level
func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

// shouldLog determines if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	return level <= l.Level()
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	switch level {
	case LevelError:
		l.sugar.Errorf(format, args...)
	case LevelWarn:
		l.sugar.Warnf(format, args...)
	case LevelInfo:
		l.sugar.Infof(format, args...)
	case LevelTrace:
		// zap has no trace level
		l.sugar.Debugf("[TRACE] "+format, args...)
	default:
		l.sugar.Debugf(format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix creates a new logger with an additional prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		level:  l.level,
		prefix: l.prefix + "." + prefix,
		sugar:  l.sugar.Named(prefix),
		out:    l.out,
	}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
