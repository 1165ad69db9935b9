// Package testingadapter adapts a testing.TB to pgwire's Logger
// interface, so protocol-level diagnostics land in `go test -v` output.
package testingadapter

import "fmt"

// TestingLogger is the subset of testing.TB this adapter depends on.
type TestingLogger interface {
	Log(args ...interface{})
}

type Logger struct {
	l TestingLogger
}

func NewLogger(l TestingLogger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) log(level, msg string, ctx []interface{}) {
	args := make([]interface{}, 0, 2+len(ctx)/2)
	args = append(args, level, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		args = append(args, fmt.Sprintf("%v=%v", ctx[i], ctx[i+1]))
	}
	l.l.Log(args...)
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log("debug", msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log("info", msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log("warn", msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log("error", msg, ctx) }
