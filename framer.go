package pgwire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrShortRead is returned when a message body is shorter than its
// advertised length.
var ErrShortRead = errors.New("pgwire: short read decoding message body")

// frameWriter accumulates one or more tag-prefixed, length-prefixed wire
// messages into a single buffer so a batch of messages (e.g. Bind, Execute,
// Sync) can be flushed to the socket in one write.
type frameWriter struct {
	buf     *bytes.Buffer
	sizeIdx int
}

func newFrameWriter() *frameWriter {
	return &frameWriter{buf: new(bytes.Buffer)}
}

// startMsg opens a new tagged frame, reserving space for the length field
// that closeMsg will fill in once the body is known.
func (w *frameWriter) startMsg(tag byte) {
	w.buf.WriteByte(tag)
	w.sizeIdx = w.buf.Len()
	w.buf.Write([]byte{0, 0, 0, 0})
}

// startUntaggedMsg opens a frame with no leading tag byte, used only for
// SSLRequest and StartupMessage during connection startup.
func (w *frameWriter) startUntaggedMsg() {
	w.sizeIdx = w.buf.Len()
	w.buf.Write([]byte{0, 0, 0, 0})
}

// closeMsg back-patches the length field of the most recently started
// frame with the number of bytes written since startMsg/startUntaggedMsg,
// including the length field itself.
func (w *frameWriter) closeMsg() {
	b := w.buf.Bytes()
	binary.BigEndian.PutUint32(b[w.sizeIdx:w.sizeIdx+4], uint32(w.buf.Len()-w.sizeIdx))
}

func (w *frameWriter) WriteByte(b byte) {
	w.buf.WriteByte(b)
}

// WriteCString writes a UTF-8 string followed by a zero terminator.
func (w *frameWriter) WriteCString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

func (w *frameWriter) WriteInt16(n int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(n))
	w.buf.Write(b[:])
}

func (w *frameWriter) WriteInt32(n int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	w.buf.Write(b[:])
}

func (w *frameWriter) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteByteString writes a 4-byte big-endian length followed by exactly
// that many bytes, with no terminator. This is the wire form used for
// Bind parameter values and SASL payloads.
func (w *frameWriter) WriteByteString(b []byte) {
	w.WriteInt32(int32(len(b)))
	w.buf.Write(b)
}

// WriteNullParam writes the -1 length that marks a null Bind parameter.
func (w *frameWriter) WriteNullParam() {
	w.WriteInt32(-1)
}

func (w *frameWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *frameWriter) Reset() {
	w.buf.Reset()
}

// readHeader reads one tag byte and the 4-byte big-endian message length
// (which includes the length field itself) from r.
func readHeader(r io.Reader) (tag byte, length int32, err error) {
	var hdr [5]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, err
	}
	tag = hdr[0]
	length = int32(binary.BigEndian.Uint32(hdr[1:5]))
	if length < 4 {
		return 0, 0, errors.Errorf("pgwire: invalid message length %d for tag %q", length, tag)
	}
	return tag, length, nil
}

// readBody reads exactly length-4 bytes (the body following the length
// field) from r.
func readBody(r io.Reader, length int32) ([]byte, error) {
	body := make([]byte, length-4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	return body, nil
}

// readMessage reads one complete tagged message: header plus body.
func readMessage(r io.Reader) (tag byte, body []byte, err error) {
	tag, length, err := readHeader(r)
	if err != nil {
		return 0, nil, err
	}
	body, err = readBody(r, length)
	return tag, body, err
}

// msgBuf sequentially decodes fields out of a message body, in the wire's
// big-endian, C-string-terminated conventions.
type msgBuf struct {
	b []byte
}

func newMsgBuf(b []byte) *msgBuf {
	return &msgBuf{b: b}
}

func (m *msgBuf) len() int {
	return len(m.b)
}

func (m *msgBuf) byte() byte {
	v := m.b[0]
	m.b = m.b[1:]
	return v
}

func (m *msgBuf) int16() int16 {
	v := int16(binary.BigEndian.Uint16(m.b))
	m.b = m.b[2:]
	return v
}

func (m *msgBuf) int32() int32 {
	v := int32(binary.BigEndian.Uint32(m.b))
	m.b = m.b[4:]
	return v
}

// cstring reads a null-terminated string. ok is false if no terminator was
// found before the end of the buffer.
func (m *msgBuf) cstring() (string, bool) {
	idx := bytes.IndexByte(m.b, 0)
	if idx < 0 {
		return "", false
	}
	s := string(m.b[:idx])
	m.b = m.b[idx+1:]
	return s, true
}

// bytes returns the next n bytes verbatim, advancing past them.
func (m *msgBuf) bytes(n int32) []byte {
	if n < 0 || int(n) > len(m.b) {
		return nil
	}
	v := m.b[:n]
	m.b = m.b[n:]
	return v
}

// remainder returns everything not yet consumed.
func (m *msgBuf) remainder() []byte {
	return m.b
}
