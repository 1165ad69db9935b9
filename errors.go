package pgwire

import (
	"fmt"

	"github.com/pkg/errors"
)

// PgError represents an ErrorResponse ('E') decoded from the server. See
// https://www.postgresql.org/docs/current/protocol-error-fields.html for
// the field meanings. Only the fields spec'd as user-visible are
// populated; the rest (V, C, P, p, q, F, L, R) are consumed but discarded.
type PgError struct {
	Severity   string
	Message    string
	Detail     string
	Hint       string
	Where      string
	SchemaName string
	TableName  string
	ColumnName string
	DataType   string
	Constraint string
}

func (e *PgError) Error() string {
	msg := e.Severity + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// decodeErrorFields parses the (code_byte, value_c_string)* sequence
// shared by ErrorResponse and NoticeResponse bodies (spec.md §4.6).
func decodeErrorFields(body []byte) *PgError {
	buf := newMsgBuf(body)
	e := &PgError{}
	for {
		code := buf.byte()
		if code == 0 {
			return e
		}
		val, ok := buf.cstring()
		if !ok {
			return e
		}
		switch code {
		case 'S':
			e.Severity = val
		case 'M':
			e.Message = val
		case 'D':
			e.Detail = val
		case 'H':
			e.Hint = val
		case 'W':
			e.Where = val
		case 's':
			e.SchemaName = val
		case 't':
			e.TableName = val
		case 'c':
			e.ColumnName = val
		case 'd':
			e.DataType = val
		case 'n':
			e.Constraint = val
			// V, C, P, p, q, F, L, R and anything unrecognized: consumed, not surfaced.
		}
	}
}

// TransportError wraps a socket read/write failure or unexpected EOF.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "pgwire: transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError signals an unknown tag, a message unexpected for the
// current state, or a malformed length.
type ProtocolError struct{ Msg string }

func (e *ProtocolError) Error() string { return "pgwire: protocol error: " + e.Msg }

// AuthError signals an unsupported auth mechanism, a failed challenge, or
// an unexpected authentication sub-code.
type AuthError struct{ Msg string }

func (e *AuthError) Error() string { return "pgwire: auth error: " + e.Msg }

// InterfaceError signals caller misuse: parameter arity mismatch or an
// operation attempted on a closed Session.
type InterfaceError struct{ Msg string }

func (e *InterfaceError) Error() string { return "pgwire: " + e.Msg }

// ErrClosed is returned by operations attempted on a Conn after Close.
var ErrClosed = &InterfaceError{Msg: "operation on closed connection"}

// ErrDisconnected is returned when a Conn's socket is unexpectedly not
// open and the transparent reconnect attempt also failed.
var ErrDisconnected = &InterfaceError{Msg: "disconnected"}

func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

func newParamArityError(stmt string, want, got int) error {
	return &InterfaceError{Msg: fmt.Sprintf("statement %q requires %d parameters, got %d", stmt, want, got)}
}
