// Package logger provides centralized logging for the guard daemon
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

var (
	logFile  *os.File
	logMutex sync.Mutex
	logPath  string
	mirror   io.Writer
	verbose  bool
)

// Options controls where log lines go.
type Options struct {
	// Path of the log file. Empty means vpn-guard.log next to the executable.
	Path string
	// Stderr mirrors every line to standard error.
	Stderr bool
	// Verbose enables Debug lines.
	Verbose bool
}

// Init initializes the logger
func Init(opts Options) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	logPath = opts.Path
	if logPath == "" {
		logPath = filepath.Join(getLogDir(), "vpn-guard.log")
	}
	verbose = opts.Verbose
	if opts.Stderr {
		mirror = os.Stderr
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f

	// Panics go to stderr; keep them in the file when nobody watches stderr.
	if !opts.Stderr {
		redirectStderr(f)
	}

	return nil
}

// Close closes the log file
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// SetOutput mirrors log lines to w. Passing nil disables mirroring.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	mirror = w
}

// SetVerbose toggles Debug output.
func SetVerbose(v bool) {
	logMutex.Lock()
	defer logMutex.Unlock()
	verbose = v
}

// Log writes a log message
func Log(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %s\n", timestamp, message)

	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.WriteString(line)
		logFile.Sync()
	}
	if mirror != nil {
		io.WriteString(mirror, line)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	Log("INFO: "+format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	Log("ERROR: "+format, args...)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	logMutex.Lock()
	on := verbose
	logMutex.Unlock()
	if !on {
		return
	}
	Log("DEBUG: "+format, args...)
}

// Warning logs a warning message
func Warning(format string, args ...interface{}) {
	Log("WARN: "+format, args...)
}

// Transition logs a guard state transition.
func Transition(format string, args ...interface{}) {
	Log("GUARD: "+format, args...)
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	logMutex.Lock()
	defer logMutex.Unlock()
	return logPath
}

// Recover should be deferred at the top of every goroutine to catch panics.
// Usage: go func() { defer logger.Recover("myGoroutine"); ... }()
func Recover(name string) {
	if r := recover(); r != nil {
		logPanic(name, r)
	}
}

// RecoverError is like Recover but also turns the panic into an error
// stored in *errp, so the caller can run cleanup and exit non-zero.
func RecoverError(name string, errp *error) {
	if r := recover(); r != nil {
		logPanic(name, r)
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", name, r)
		}
	}
}

func logPanic(name string, r interface{}) {
	stack := string(debug.Stack())
	msg := fmt.Sprintf("PANIC in %s: %v\n%s", name, r, stack)
	Error("%s", msg)
}

// SafeGo launches a goroutine with panic recovery.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// getLogDir returns the directory holding the executable.
func getLogDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
