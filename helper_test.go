package pgwire

import (
	"encoding/binary"
	"io"
	"net"
)

// serverReadUntaggedMessage reads one length-prefixed, untagged message
// (SSLRequest or StartupMessage) from nc.
func serverReadUntaggedMessage(nc net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(nc, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n-4)
	_, err := io.ReadFull(nc, body)
	return body, err
}

// serverWriteMessage writes one tag-prefixed, length-prefixed message to
// nc, playing the server side of the protocol in tests.
func serverWriteMessage(nc net.Conn, tag byte, body []byte) error {
	hdr := make([]byte, 5)
	hdr[0] = tag
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(body)+4))
	if _, err := nc.Write(hdr); err != nil {
		return err
	}
	_, err := nc.Write(body)
	return err
}

// serverWriteAuthOk writes AuthenticationOk, an empty ParameterStatus set,
// BackendKeyData, and ReadyForQuery: the minimum tail of a successful
// startup sequence.
func serverWriteAuthOk(nc net.Conn) error {
	if err := serverWriteMessage(nc, tagAuthentication, int32Body(authOk)); err != nil {
		return err
	}
	if err := serverWriteMessage(nc, tagBackendKeyData, append(int32Body(1234), int32Body(5678)...)); err != nil {
		return err
	}
	return serverWriteMessage(nc, tagReadyForQuery, []byte{'I'})
}

func int32Body(n int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(n))
	return b
}

func cstringBody(s string) []byte {
	return append([]byte(s), 0)
}
