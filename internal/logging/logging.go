// Package logging provides the leveled key-value logger used by the
// daemon and background jobs. Lines are plain text, one per record:
// timestamp, level, message, then key=value pairs.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes leveled key-value records. Safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// New creates a logger writing to out. Debug lines are emitted only
// when WL_DEBUG=1.
func New(out io.Writer) *Logger {
	return &Logger{out: out, debug: os.Getenv("WL_DEBUG") == "1"}
}

// NewStderr creates a logger for foreground use.
func NewStderr() *Logger {
	return New(os.Stderr)
}

// NewRotating creates a logger writing through size-based rotation,
// used by the daemonized process: 10MB per file, 3 backups, 28 days.
func NewRotating(path string) *Logger {
	return New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	})
}

// Debug logs a debug record when WL_DEBUG=1.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, kv)
}

// Info logs an informational record.
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.log("INFO", msg, kv)
}

// Warn logs a warning record.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.log("WARN", msg, kv)
}

// Error logs an error record.
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.log("ERROR", msg, kv)
}

func (l *Logger) log(level, msg string, kv []interface{}) {
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 != 0 {
		fmt.Fprintf(&b, " %v=?", kv[len(kv)-1])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// Discard returns a logger that drops everything. Tests use it to keep
// output quiet.
func Discard() *Logger {
	return &Logger{out: io.Discard}
}
