// Package logger provides leveled logging for the cricket oracle binaries.
// It wraps the standard log package; the "json" format emits one JSON object per line,
// the "text" format prefixes messages with their level and the calling file.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel is for loader and lookup detail, disabled by default.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel is for recoverable problems such as a failed reload.
	WarnLevel
	// ErrorLevel is for failures that need attention.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	json   bool
	logger *log.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
	exit          = os.Exit
)

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(w io.Writer, level string, format string) {
	jsonFormat := strings.ToLower(format) == "json"

	flags := 0
	if !jsonFormat {
		flags = log.LstdFlags | log.Lmicroseconds | log.Lshortfile
	}

	mu.Lock()
	defaultLogger = &Logger{
		level:  ParseLevel(level),
		json:   jsonFormat,
		logger: log.New(w, "", flags),
	}
	mu.Unlock()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

type jsonLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

// output writes one line; depth is the log.Logger call depth of the original caller.
func (l *Logger) output(depth int, level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.json {
		b, err := json.Marshal(jsonLine{
			Time:    time.Now().UTC().Format(time.RFC3339Nano),
			Level:   level.String(),
			Message: msg,
		})
		if err != nil {
			b = []byte(msg)
		}
		_ = l.logger.Output(depth, string(b))
		return
	}
	_ = l.logger.Output(depth, "["+strings.ToUpper(level.String())+"] "+msg)
}

func logAt(level Level, format string, args ...interface{}) {
	l := current()
	if l != nil && l.level <= level {
		l.output(4, level, format, args...)
	}
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	logAt(DebugLevel, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	logAt(InfoLevel, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	logAt(WarnLevel, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	logAt(ErrorLevel, format, args...)
}

// Fatal logs a message regardless of level and exits with status 1.
func Fatal(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.output(3, ErrorLevel, "FATAL: "+format, args...)
	} else {
		log.Printf("[FATAL] "+format, args...)
	}
	exit(1)
}
