package pgwire

import "fmt"

// Row is one decoded result row, indexed in column order.
type Row struct {
	fields []FieldDescription
	values []interface{}
}

// Value returns the decoded value of the named column, and whether that
// column exists in the row.
func (r *Row) Value(name string) (interface{}, bool) {
	for i, f := range r.fields {
		if f.Name == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Values returns the row's decoded values in column order.
func (r *Row) Values() []interface{} {
	return r.values
}

// Rows is the result of Execute: zero or more Rows followed by a command
// tag. Rows are fully buffered because the extended query protocol's
// Execute/Sync round trip cannot be interleaved with server reads without
// deadlocking a single-socket, single-goroutine Conn.
type Rows struct {
	fields     []FieldDescription
	rows       []*Row
	i          int
	commandTag string
}

// Next advances to the next row, returning false once exhausted.
func (rs *Rows) Next() bool {
	if rs.i >= len(rs.rows) {
		return false
	}
	rs.i++
	return true
}

// Row returns the current row after a successful call to Next.
func (rs *Rows) Row() *Row {
	if rs.i == 0 || rs.i > len(rs.rows) {
		return nil
	}
	return rs.rows[rs.i-1]
}

// CommandTag returns the CommandComplete tag (e.g. "INSERT 0 1").
func (rs *Rows) CommandTag() string { return rs.commandTag }

// Fields returns the statement's output column descriptions.
func (rs *Rows) Fields() []FieldDescription { return rs.fields }

// Execute binds params to stmt, runs it via the extended query protocol,
// and returns the fully decoded result (spec.md §4.5).
func (c *Conn) Execute(stmt *Statement, params []interface{}) (*Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureAlive(); err != nil {
		return nil, err
	}
	if len(params) != stmt.paramCount {
		return nil, newParamArityError(stmt.sql, stmt.paramCount, len(params))
	}
	if c.cfg.Debug {
		c.logger.Debug("executing statement", "name", stmt.name, "params", len(params))
	}

	fw := newFrameWriter()
	fw.startMsg('B')
	fw.WriteByte(0) // unnamed portal
	fw.WriteCString(stmt.name)
	fw.WriteInt16(0) // all parameters in text format
	fw.WriteInt16(int16(len(params)))
	for _, p := range params {
		raw, isNull := encodeParam(p)
		if isNull {
			fw.WriteNullParam()
		} else {
			fw.WriteByteString(raw)
		}
	}
	fw.WriteInt16(0) // all result columns in text format
	fw.closeMsg()

	fw.startMsg('E')
	fw.WriteByte(0)
	fw.WriteInt32(0)
	fw.closeMsg()

	fw.startMsg('S')
	fw.closeMsg()

	if _, err := c.nc.Write(fw.Bytes()); err != nil {
		c.die(&TransportError{Err: err})
		return nil, c.causeOfDeath
	}

	rs := &Rows{fields: stmt.fields}
	var softErr error

	for {
		tag, body, err := readMessage(c.reader)
		if err != nil {
			c.die(&TransportError{Err: err})
			return nil, c.causeOfDeath
		}
		switch tag {
		case '2': // BindComplete
		case 'D': // DataRow
			row, err := decodeDataRow(rs.fields, body)
			if err != nil && softErr == nil {
				softErr = err
			}
			rs.rows = append(rs.rows, row)
		case 'C': // CommandComplete
			buf := newMsgBuf(body)
			tagStr, _ := buf.cstring()
			rs.commandTag = tagStr
		case 'I': // EmptyQueryResponse
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
			return rs, nil
		default:
			return nil, &ProtocolError{Msg: fmt.Sprintf("unexpected message %q during Execute", tag)}
		}
	}
}

func decodeDataRow(fields []FieldDescription, body []byte) (*Row, error) {
	buf := newMsgBuf(body)
	n := buf.int16()
	values := make([]interface{}, n)
	var firstErr error
	for i := int16(0); i < n; i++ {
		length := buf.int32()
		var raw []byte
		if length >= 0 {
			raw = buf.bytes(length)
		}
		var oid int32
		if int(i) < len(fields) {
			oid = fields[i].DataTypeOID
		}
		v, err := decodeValue(oid, raw)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		values[i] = v
	}
	return &Row{fields: fields, values: values}, firstErr
}
