// Package log15adapter adapts a github.com/inconshreveable/log15 Logger
// to pgwire's Logger interface.
package log15adapter

// Log15Logger is the subset of log15.Logger this adapter depends on.
type Log15Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// Logger implements pgwire.Logger by forwarding to an underlying
// log15.Logger.
type Logger struct {
	l Log15Logger
}

func NewLogger(l Log15Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.l.Debug(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.l.Info(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.l.Warn(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.l.Error(msg, ctx...) }
