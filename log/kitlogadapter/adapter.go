// Package kitlogadapter adapts a github.com/go-kit/log Logger to
// pgwire's Logger interface.
package kitlogadapter

import (
	"github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"
)

type Logger struct {
	l log.Logger
}

func NewLogger(l log.Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) with(ctx []interface{}) log.Logger {
	logger := l.l
	for i := 0; i+1 < len(ctx); i += 2 {
		logger = log.With(logger, ctx[i], ctx[i+1])
	}
	return logger
}

func (l *Logger) Debug(msg string, ctx ...interface{}) {
	kitlevel.Debug(l.with(ctx)).Log("msg", msg)
}

func (l *Logger) Info(msg string, ctx ...interface{}) {
	kitlevel.Info(l.with(ctx)).Log("msg", msg)
}

func (l *Logger) Warn(msg string, ctx ...interface{}) {
	kitlevel.Warn(l.with(ctx)).Log("msg", msg)
}

func (l *Logger) Error(msg string, ctx ...interface{}) {
	kitlevel.Error(l.with(ctx)).Log("msg", msg)
}
