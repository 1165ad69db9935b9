package pgwire

import (
	"crypto/md5"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
)

// protocol message tags used during startup and authentication.
const (
	tagAuthentication   = 'R'
	tagBackendKeyData   = 'K'
	tagErrorResponse    = 'E'
	tagNoticeResponse   = 'N'
	tagParameterStatus  = 'S'
	tagReadyForQuery    = 'Z'
	tagNotification     = 'A'
	tagPasswordMessage  = 'p'
)

// authentication sub-codes carried in the first int32 of an
// AuthenticationXXX ('R') message body.
const (
	authOk                = 0
	authKerberosV5        = 2
	authCleartextPassword = 3
	authMD5Password       = 5
	authSCMCredential     = 6
	authGSS               = 7
	authGSSContinue       = 8
	authSSPI              = 9
	authSASL              = 10
	authSASLContinue      = 11
	authSASLFinal         = 12
)

const sslRequestCode = 80877103

// startup performs the sequence described in spec.md §4.2: optional
// SSLRequest/TLS upgrade, StartupMessage, and the authentication
// sub-protocol dispatch, returning once AuthenticationOk, BackendKeyData
// and the first ReadyForQuery have all been observed.
func startup(nc net.Conn, cfg Config) (net.Conn, int32, int32, map[string]string, error) {
	if cfg.TLSConfig != nil {
		var err error
		nc, err = negotiateTLS(nc, cfg.TLSConfig)
		if err != nil {
			return nil, 0, 0, nil, err
		}
	}

	fw := newFrameWriter()
	fw.startUntaggedMsg()
	fw.WriteInt32(196608) // protocol version 3.0
	fw.WriteCString("user")
	fw.WriteCString(cfg.User)
	fw.WriteCString("database")
	fw.WriteCString(cfg.Database)
	fw.WriteCString("")
	fw.closeMsg()
	if _, err := nc.Write(fw.Bytes()); err != nil {
		return nil, 0, 0, nil, &TransportError{Err: err}
	}

	params := make(map[string]string)
	var pid, secret int32
	var authDone bool

	for {
		tag, body, err := readMessage(nc)
		if err != nil {
			return nil, 0, 0, nil, &TransportError{Err: err}
		}
		switch tag {
		case tagAuthentication:
			done, err := handleAuthMessage(nc, cfg, body)
			if err != nil {
				return nil, 0, 0, nil, err
			}
			if done {
				authDone = true
			}
		case tagBackendKeyData:
			buf := newMsgBuf(body)
			pid = buf.int32()
			secret = buf.int32()
		case tagParameterStatus:
			buf := newMsgBuf(body)
			k, _ := buf.cstring()
			v, _ := buf.cstring()
			params[k] = v
		case tagErrorResponse:
			return nil, 0, 0, nil, decodeErrorFields(body)
		case tagNoticeResponse:
			// ignored during startup; it is not logged.
		case tagReadyForQuery:
			if !authDone {
				return nil, 0, 0, nil, &ProtocolError{Msg: "ReadyForQuery before AuthenticationOk"}
			}
			return nc, pid, secret, params, nil
		default:
			return nil, 0, 0, nil, &ProtocolError{Msg: fmt.Sprintf("unexpected message %q during startup", tag)}
		}
	}
}

// negotiateTLS sends SSLRequest and, if the server replies 'S', wraps nc
// in a TLS client connection.
func negotiateTLS(nc net.Conn, tlsConfig *tls.Config) (net.Conn, error) {
	fw := newFrameWriter()
	fw.startUntaggedMsg()
	fw.WriteInt32(sslRequestCode)
	fw.closeMsg()
	if _, err := nc.Write(fw.Bytes()); err != nil {
		return nil, &TransportError{Err: err}
	}
	var resp [1]byte
	if _, err := nc.Read(resp[:]); err != nil {
		return nil, &TransportError{Err: err}
	}
	switch resp[0] {
	case 'N':
		return nc, nil
	case 'S':
		return tls.Client(nc, tlsConfig), nil
	default:
		return nil, &ProtocolError{Msg: "invalid response to SSLRequest"}
	}
}

// handleAuthMessage dispatches on the authentication sub-code. It returns
// done=true once AuthenticationOk has been observed.
func handleAuthMessage(nc net.Conn, cfg Config, body []byte) (done bool, err error) {
	buf := newMsgBuf(body)
	code := buf.int32()
	switch code {
	case authOk:
		return true, nil
	case authCleartextPassword:
		return false, sendPasswordMessage(nc, cfg.Password)
	case authMD5Password:
		salt := buf.bytes(4)
		return false, sendPasswordMessage(nc, md5Password(cfg.User, cfg.Password, salt))
	case authSASL:
		mechanisms := readSASLMechanisms(buf)
		return false, runSCRAMExchange(nc, cfg, mechanisms)
	case authSASLContinue, authSASLFinal:
		return false, &AuthError{Msg: "unexpected SASL message outside exchange"}
	case authKerberosV5, authGSS, authGSSContinue, authSSPI, authSCMCredential:
		return false, &AuthError{Msg: fmt.Sprintf("unsupported authentication method %d", code)}
	default:
		return false, &AuthError{Msg: fmt.Sprintf("unknown authentication method %d", code)}
	}
}

func readSASLMechanisms(buf *msgBuf) []string {
	var out []string
	for {
		s, ok := buf.cstring()
		if !ok || s == "" {
			return out
		}
		out = append(out, s)
	}
}

func sendPasswordMessage(nc net.Conn, password string) error {
	fw := newFrameWriter()
	fw.startMsg(tagPasswordMessage)
	fw.WriteCString(password)
	fw.closeMsg()
	if _, err := nc.Write(fw.Bytes()); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// md5Password computes md5(md5(password+user)+salt) hex-encoded and
// prefixed with "md5", per spec.md §4.2.
func md5Password(user, password string, salt []byte) string {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.Sum(append([]byte(innerHex), salt...))
	return "md5" + hex.EncodeToString(outer[:])
}
