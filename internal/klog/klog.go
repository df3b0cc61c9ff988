// Package klog is the kernel's leveled logger over internal/console,
// consolidating the repeated uartPutsDirect/uartPutHex64Direct helpers
// mazboot/golang/main/kernel.go scatters through nearly every file into one
// small package, per SPEC_FULL.md's AMBIENT STACK.
package klog

import "github.com/bparli/rpi3kernel/internal/console"

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelFatal
)

func (l Level) prefix() string {
	switch l {
	case LevelDebug:
		return "[DEBUG] "
	case LevelInfo:
		return "[INFO]  "
	case LevelWarn:
		return "[WARN]  "
	case LevelFatal:
		return "[FATAL] "
	default:
		return "[?]     "
	}
}

// Logger writes leveled, line-oriented messages to a console.UART.
type Logger struct {
	out *console.UART
	min Level
}

// New returns a Logger writing to out, suppressing anything below min.
func New(out *console.UART, min Level) *Logger {
	return &Logger{out: out, min: min}
}

func (l *Logger) log(level Level, msg string) {
	if level < l.min {
		return
	}
	l.out.WriteString(level.prefix())
	l.out.WriteString(msg)
	l.out.WriteString("\r\n")
}

// Debugf logs at Debug level.
func (l *Logger) Debugf(msg string) { l.log(LevelDebug, msg) }

// Infof logs at Info level.
func (l *Logger) Infof(msg string) { l.log(LevelInfo, msg) }

// Warnf logs at Warn level.
func (l *Logger) Warnf(msg string) { l.log(LevelWarn, msg) }

// Fatalf logs at Fatal level and halts the core, per spec.md §7's Fatal
// class (unregistered peripheral IRQ, MMU unsupported granule, heap
// exhaustion during task creation).
func (l *Logger) Fatalf(msg string) {
	l.log(LevelFatal, msg)
	l.out.Flush()
	halt()
}
