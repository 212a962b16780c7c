package icebox

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogLevel represents the severity level of a log entry
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var logLevelNames = map[LogLevel]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warning",
	ErrorLevel: "error",
}

var logLevelColors = map[LogLevel]*color.Color{
	DebugLevel: color.New(color.FgCyan),
	InfoLevel:  color.New(color.FgGreen),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed),
}

type logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  LogLevel
	colors bool
}

var std = &logger{
	out:    os.Stderr,
	level:  InfoLevel,
	colors: true,
}

// SetLogLevel sets the minimum level written by the package logger.
func SetLogLevel(level LogLevel) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// SetLogOutput redirects the package logger. Colors are disabled for
// non-terminal writers so log files stay free of escape codes.
func SetLogOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = w
	std.colors = w == os.Stderr || w == os.Stdout
}

func (l *logger) log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	name := logLevelNames[level]
	if l.colors {
		name = logLevelColors[level].Sprint(name)
	}

	fmt.Fprintf(l.out, "[%s] %s: %s\n", time.Now().Format("2006-01-02 15:04:05"), name, message)
}

// Debug logs a message at debug level.
func Debug(format string, args ...interface{}) {
	std.log(DebugLevel, fmt.Sprintf(format, args...))
}

// Info logs a message at info level.
func Info(format string, args ...interface{}) {
	std.log(InfoLevel, fmt.Sprintf(format, args...))
}

// Warn logs a message at warning level.
func Warn(format string, args ...interface{}) {
	std.log(WarnLevel, fmt.Sprintf(format, args...))
}

// Error logs a message at error level.
func Error(format string, args ...interface{}) {
	std.log(ErrorLevel, fmt.Sprintf(format, args...))
}
