package pgwire

import (
	"errors"

	log "gopkg.in/inconshreveable/log15.v2"
)

// Log level constants for LogLevelFromString. The zero value is
// intentionally invalid so a missing configuration is easy to detect.
const (
	LogLevelTrace = 6
	LogLevelDebug = 5
	LogLevelInfo  = 4
	LogLevelWarn  = 3
	LogLevelError = 2
	LogLevelNone  = 1
)

// Logger is the interface pgwire uses for its own diagnostic logging. Any
// backend can be adapted to it; see the log/ subpackages for logrus,
// zerolog, go-kit/log, and log15 adapters.
type Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// LogLevelFromString converts a log level name ("trace", "debug", "info",
// "warn", "error", "none") to its constant.
func LogLevelFromString(s string) (int, error) {
	switch s {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none":
		return LogLevelNone, nil
	default:
		return 0, errors.New("pgwire: invalid log level")
	}
}

// defaultLogger returns a log15 logger with output discarded, matching the
// behavior of a Conn that was not given an explicit Logger.
func defaultLogger() Logger {
	l := log.New()
	l.SetHandler(log.DiscardHandler())
	return l
}
