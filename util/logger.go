// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// levelTags maps zerolog levels to the short bracketed tags printed
// in front of every line.  Verbose rides on zerolog's debug level and
// Debug on trace.
var levelTags = map[string]string{
	zerolog.LevelErrorValue: "[ERR]",
	zerolog.LevelWarnValue:  "[WRN]",
	zerolog.LevelInfoValue:  "[INF]",
	zerolog.LevelDebugValue: "[VRB]",
	zerolog.LevelTraceValue: "[DBG]",
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.
type Logger struct {
	level      LogLevel
	output     io.Writer
	timestamps bool

	mu sync.Mutex
	zl zerolog.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3,
	}
	l.rebuild()
	return l
}

// Nop returns a Logger that discards everything, including errors.
func Nop() *Logger {
	l := NewLogger(0)
	l.output = io.Discard
	l.zl = zerolog.Nop()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(zerolog.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(zerolog.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.emit(zerolog.DebugLevel, format, args...)
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(zerolog.TraceLevel, format, args...)
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(zerolog.ErrorLevel, format, args...)
}

// Sink adapts l into a single-argument message consumer that logs at
// error level.
func (l *Logger) Sink() func(string) {
	return func(msg string) { l.Error("%s", msg) }
}

func (l *Logger) emit(level zerolog.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.WithLevel(level).Msg(fmt.Sprintf(format, args...))
}

// rebuild recreates the zerolog pipeline; callers hold l.mu or own l.
func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{
		Out:        l.output,
		NoColor:    true,
		TimeFormat: "15:04:05.000",
		FormatLevel: func(i interface{}) string {
			s, _ := i.(string)
			if tag, ok := levelTags[s]; ok {
				return tag
			}
			return "[" + strings.ToUpper(s) + "]"
		},
	}
	if !l.timestamps {
		cw.PartsOrder = []string{zerolog.LevelFieldName, zerolog.MessageFieldName}
	}
	zl := zerolog.New(cw).Level(zerologLevel(l.level))
	if l.timestamps {
		zl = zl.With().Timestamp().Logger()
	}
	l.zl = zl
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch {
	case level >= LogDebug:
		return zerolog.TraceLevel
	case level == LogVerbose:
		return zerolog.DebugLevel
	case level == LogNormal:
		return zerolog.InfoLevel
	default:
		return zerolog.ErrorLevel
	}
}
