// Package zerologadapter adapts a github.com/rs/zerolog Logger to
// pgwire's Logger interface.
package zerologadapter

import "github.com/rs/zerolog"

type Logger struct {
	logger zerolog.Logger
}

// NewLogger accepts a zerolog.Logger and returns a pgwire.Logger adapter
// around it.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("module", "pgwire").Logger()}
}

func (l *Logger) with(ctx []interface{}) zerolog.Logger {
	if len(ctx) == 0 {
		return l.logger
	}
	c := l.logger.With()
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		c = c.Interface(key, ctx[i+1])
	}
	return c.Logger()
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { logger := l.with(ctx); logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string, ctx ...interface{})  { logger := l.with(ctx); logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { logger := l.with(ctx); logger.Warn().Msg(msg) }
func (l *Logger) Error(msg string, ctx ...interface{}) { logger := l.with(ctx); logger.Error().Msg(msg) }
