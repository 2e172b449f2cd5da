// Package logger provides leveled logging for the document portal.
// The level comes from configuration; messages below it are dropped.
// Output defaults to stderr and can be redirected for tests.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	mu      sync.RWMutex
	minimum level     = levelInfo
	output  io.Writer = os.Stderr
)

// SetLevel sets the minimum level from its configuration name.
// Unknown names fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(name) {
	case "debug":
		minimum = levelDebug
	case "warn", "warning":
		minimum = levelWarn
	case "error":
		minimum = levelError
	default:
		minimum = levelInfo
	}
}

// SetOutput sets the destination writer. Defaults to os.Stderr.
// Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints pipeline detail useful when diagnosing retrieval behavior.
func Debug(format string, args ...any) { emit(levelDebug, "DEBUG", format, args...) }

// Info prints normal operational progress.
func Info(format string, args ...any) { emit(levelInfo, "INFO", format, args...) }

// Warn prints recoverable problems, such as a retried load.
func Warn(format string, args ...any) { emit(levelWarn, "WARN", format, args...) }

// Error prints failures that abort an operation.
func Error(format string, args ...any) { emit(levelError, "ERROR", format, args...) }

func emit(lv level, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if lv < minimum {
		return
	}
	fmt.Fprintf(output, "["+tag+"] "+format+"\n", args...)
}
