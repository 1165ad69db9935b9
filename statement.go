package pgwire

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// FieldDescription describes one output column of a prepared statement,
// as reported in a RowDescription message.
type FieldDescription struct {
	Name         string
	TableOID     int32
	ColumnAttr   int16
	DataTypeOID  int32
	DataTypeSize int16
	TypeModifier int32
	FormatCode   int16
}

// Statement is a server-side prepared statement, cached on the Conn that
// created it and keyed by its exact SQL text (spec.md §4.4). Unlike a
// bounded LRU cache, entries are only evicted when the Conn reconnects or
// is closed, or when the statement is passed to Deallocate.
type Statement struct {
	sql        string
	name       string
	paramOIDs  []int32
	fields     []FieldDescription
	paramCount int
}

// NumParams returns the number of bind parameters the statement expects.
func (s *Statement) NumParams() int { return s.paramCount }

// Fields returns the statement's output column descriptions. Empty for
// statements that return no rows (e.g. most DDL).
func (s *Statement) Fields() []FieldDescription { return s.fields }

// Prepare returns a cached Statement for sql if one already exists on this
// Conn, or prepares and describes a new one otherwise.
func (c *Conn) Prepare(sql string) (*Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureAlive(); err != nil {
		return nil, err
	}
	if stmt, ok := c.stmts[sql]; ok {
		return stmt, nil
	}

	name, err := genStatementName()
	if err != nil {
		return nil, &InterfaceError{Msg: "failed to generate statement name: " + err.Error()}
	}
	if c.cfg.Debug {
		c.logger.Debug("preparing statement", "name", name, "sql", sql)
	}

	fw := newFrameWriter()
	fw.startMsg('P')
	fw.WriteCString(name)
	fw.WriteCString(sql)
	fw.WriteInt16(0)
	fw.closeMsg()

	fw.startMsg('D')
	fw.WriteByte('S')
	fw.WriteCString(name)
	fw.closeMsg()

	fw.startMsg('S')
	fw.closeMsg()

	if _, err := c.nc.Write(fw.Bytes()); err != nil {
		c.die(&TransportError{Err: err})
		return nil, c.causeOfDeath
	}

	stmt := &Statement{sql: sql, name: name}
	var softErr error

	for {
		tag, body, err := readMessage(c.reader)
		if err != nil {
			c.die(&TransportError{Err: err})
			return nil, c.causeOfDeath
		}
		switch tag {
		case '1': // ParseComplete
		case 't': // ParameterDescription
			buf := newMsgBuf(body)
			n := buf.int16()
			stmt.paramOIDs = make([]int32, n)
			for i := range stmt.paramOIDs {
				stmt.paramOIDs[i] = buf.int32()
			}
			stmt.paramCount = int(n)
		case 'T': // RowDescription
			stmt.fields = decodeRowDescription(body)
		case 'n': // NoData
		case tagErrorResponse:
			if softErr == nil {
				softErr = decodeErrorFields(body)
			}
		case tagNoticeResponse:
			pe := decodeErrorFields(body)
			c.logger.Warn("notice", "severity", pe.Severity, "message", pe.Message)
		case tagParameterStatus:
			buf := newMsgBuf(body)
			k, _ := buf.cstring()
			v, _ := buf.cstring()
			c.runtimeParams[k] = v
		case tagReadyForQuery:
			if softErr != nil {
				return nil, softErr
			}
			c.stmts[sql] = stmt
			return stmt, nil
		default:
			return nil, &ProtocolError{Msg: fmt.Sprintf("unexpected message %q during Prepare", tag)}
		}
	}
}

// Deallocate releases a prepared statement server-side and removes it
// from the cache.
func (c *Conn) Deallocate(stmt *Statement) error {
	c.mu.Lock()
	delete(c.stmts, stmt.sql)
	c.mu.Unlock()
	return c.ExecuteSimple("deallocate " + quoteIdentifier(stmt.name))
}

func decodeRowDescription(body []byte) []FieldDescription {
	buf := newMsgBuf(body)
	n := buf.int16()
	fields := make([]FieldDescription, n)
	for i := range fields {
		f := &fields[i]
		f.Name, _ = buf.cstring()
		f.TableOID = buf.int32()
		f.ColumnAttr = buf.int16()
		f.DataTypeOID = buf.int32()
		f.DataTypeSize = buf.int16()
		f.TypeModifier = buf.int32()
		f.FormatCode = buf.int16()
	}
	return fields
}

// genStatementName generates an unpredictable server-side statement name
// so that concurrent Conns against the same session role never collide.
func genStatementName() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "pgwire_" + hex.EncodeToString(b[:]), nil
}
