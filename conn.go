package pgwire

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Conn is a single, unpooled PostgreSQL session (spec.md §4.3). Every
// operation takes the mutex it holds, so concurrent calls on one Conn run
// one at a time; the mutex does not make Conn a connection pool.
type Conn struct {
	mu sync.Mutex

	cfg    Config
	nc     net.Conn
	reader *bufio.Reader
	logger Logger

	pid, secret   int32
	runtimeParams map[string]string

	stmts map[string]*Statement

	alive        bool
	closed       bool
	causeOfDeath error
}

// Connect dials the server described by cfg, performs the TLS/startup/
// authentication handshake, and returns a ready-to-use Conn.
func Connect(cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	raw, err := dial(cfg)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	nc, pid, secret, params, err := startup(raw, cfg)
	if err != nil {
		raw.Close()
		return nil, err
	}

	c := &Conn{
		cfg:           cfg,
		nc:            nc,
		reader:        bufio.NewReader(nc),
		logger:        logger,
		pid:           pid,
		secret:        secret,
		runtimeParams: params,
		stmts:         make(map[string]*Statement),
		alive:         true,
	}
	c.logger.Info("connection established", "pid", pid)
	return c, nil
}

func dial(cfg Config) (net.Conn, error) {
	if fi, err := os.Stat(cfg.Host); err == nil && fi.IsDir() {
		socket := filepath.Join(cfg.Host, ".s.PGSQL."+strconv.FormatUint(uint64(cfg.Port), 10))
		return net.Dial("unix", socket)
	}
	return net.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
}

// Close sends Terminate and releases the socket. Calling Close more than
// once is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.alive {
		return nil
	}
	fw := newFrameWriter()
	fw.startMsg('X')
	fw.closeMsg()
	_, err := c.nc.Write(fw.Bytes())
	c.die(ErrClosed)
	c.logger.Info("connection closed")
	return err
}

// IsAlive reports whether the connection believes its socket is open.
func (c *Conn) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// CauseOfDeath returns the error that caused the connection to be marked
// dead, or nil if it is still alive.
func (c *Conn) CauseOfDeath() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.causeOfDeath
}

// CancelKey returns the backend process ID and secret key needed to build
// a CancelRequest on a separate connection.
func (c *Conn) CancelKey() (pid, secret int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid, c.secret
}

// RuntimeParam returns a value reported via ParameterStatus (e.g.
// "server_version", "client_encoding"), and whether it was present.
func (c *Conn) RuntimeParam(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.runtimeParams[key]
	return v, ok
}

func (c *Conn) die(err error) {
	c.alive = false
	c.causeOfDeath = err
	c.nc.Close()
	c.stmts = make(map[string]*Statement)
}

// ensureAlive is the "check" step from spec.md §4.3: run under the guard
// before any operation. An explicitly closed Conn always fails with
// ErrClosed, never reconnects. Otherwise, if the socket dropped out from
// under the caller (an implicit drop, not a Close), it is transparently
// reconnected via the Authenticator, invalidating every statement
// previously prepared on it; if that reconnect attempt itself fails, the
// operation fails with ErrDisconnected rather than the raw dial/startup
// error.
func (c *Conn) ensureAlive() error {
	if c.closed {
		return ErrClosed
	}
	if c.alive {
		return nil
	}
	raw, err := dial(c.cfg)
	if err != nil {
		c.logger.Warn("reconnect failed", "err", err)
		return ErrDisconnected
	}
	nc, pid, secret, params, err := startup(raw, c.cfg)
	if err != nil {
		raw.Close()
		c.logger.Warn("reconnect failed", "err", err)
		return ErrDisconnected
	}
	c.nc = nc
	c.reader = bufio.NewReader(nc)
	c.pid = pid
	c.secret = secret
	c.runtimeParams = params
	c.stmts = make(map[string]*Statement)
	c.alive = true
	c.causeOfDeath = nil
	c.logger.Warn("connection re-established", "pid", pid)
	return nil
}

// ExecuteSimple runs sql through the simple query protocol (spec.md §4.3)
// and discards any result rows, returning only the first error or nil on
// success. It is intended for DDL and other statements with no parameters
// whose results the caller does not need.
func (c *Conn) ExecuteSimple(sql string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureAlive(); err != nil {
		return err
	}
	if c.cfg.Debug {
		c.logger.Debug("executing simple query", "sql", sql)
	}

	fw := newFrameWriter()
	fw.startMsg('Q')
	fw.WriteCString(sql)
	fw.closeMsg()
	if _, err := c.nc.Write(fw.Bytes()); err != nil {
		c.die(&TransportError{Err: err})
		return c.causeOfDeath
	}

	var softErr error
	for {
		tag, body, err := readMessage(c.reader)
		if err != nil {
			c.die(&TransportError{Err: err})
			return c.causeOfDeath
		}
		switch tag {
		case 'Z':
			return softErr
		case 'C', 'T', 'D', '1', '2', '3', 'I', 'n', 's':
			// CommandComplete, RowDescription, DataRow, Parse/Bind/CloseComplete,
			// EmptyQueryResponse, NoData, PortalSuspended: all ignored here.
		case tagParameterStatus:
			buf := newMsgBuf(body)
			k, _ := buf.cstring()
			v, _ := buf.cstring()
			c.runtimeParams[k] = v
		case tagBackendKeyData:
			buf := newMsgBuf(body)
			c.pid = buf.int32()
			c.secret = buf.int32()
		case tagErrorResponse:
			if softErr == nil {
				softErr = decodeErrorFields(body)
			}
		case tagNoticeResponse:
			pe := decodeErrorFields(body)
			c.logger.Warn("notice", "severity", pe.Severity, "message", pe.Message)
		case tagNotification:
			buf := newMsgBuf(body)
			pid := buf.int32()
			channel, _ := buf.cstring()
			payload, _ := buf.cstring()
			c.logger.Warn("notification", "pid", pid, "channel", channel, "payload", payload)
		default:
			return &ProtocolError{Msg: fmt.Sprintf("unexpected message %q", tag)}
		}
	}
}

// quoteIdentifier double-quotes name, doubling any embedded quote, for use
// in statements this package builds itself (e.g. DEALLOCATE).
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
