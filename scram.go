package pgwire

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const scramMechanism = "SCRAM-SHA-256"

// runSCRAMExchange performs the full SCRAM-SHA-256 client exchange
// described in spec.md §4.2: SASLInitialResponse, then the
// client-final-message in reply to SASLContinue, then validation of the server's
// signature in SASLFinal. The AuthenticationOk that follows a successful
// exchange is left for the caller's normal startup loop to consume.
func runSCRAMExchange(nc net.Conn, cfg Config, mechanisms []string) error {
	if !containsMechanism(mechanisms, scramMechanism) {
		return &AuthError{Msg: fmt.Sprintf("server does not offer %s", scramMechanism)}
	}

	clientNonce, err := randomNonce(18)
	if err != nil {
		return &AuthError{Msg: "failed to generate client nonce: " + err.Error()}
	}
	clientFirstBare := "n=" + saslEscape(cfg.User) + ",r=" + clientNonce

	fw := newFrameWriter()
	fw.startMsg(tagPasswordMessage)
	fw.WriteCString(scramMechanism)
	fw.WriteByteString([]byte("n,," + clientFirstBare))
	fw.closeMsg()
	if _, err := nc.Write(fw.Bytes()); err != nil {
		return &TransportError{Err: err}
	}

	tag, body, err := readMessage(nc)
	if err != nil {
		return &TransportError{Err: err}
	}
	if tag == tagErrorResponse {
		return decodeErrorFields(body)
	}
	if tag != tagAuthentication {
		return &ProtocolError{Msg: fmt.Sprintf("expected AuthenticationSASLContinue, got %q", tag)}
	}
	buf := newMsgBuf(body)
	if code := buf.int32(); code != authSASLContinue {
		return &AuthError{Msg: fmt.Sprintf("expected SASLContinue (11), got %d", code)}
	}
	serverFirst := string(buf.remainder())

	serverNonce, salt, iterCount, err := parseServerFirstMessage(serverFirst)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(serverNonce, clientNonce) {
		return &AuthError{Msg: "server nonce does not echo client nonce"}
	}

	saltedPassword := pbkdf2.Key([]byte(cfg.Password), salt, iterCount, sha256.Size, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalWithoutProof := "c=" + channelBinding + ",r=" + serverNonce
	authMessage := clientFirstBare + "," + serverFirst + "," + clientFinalWithoutProof

	clientSig := hmacSHA256(storedKey[:], []byte(authMessage))
	clientProof := xorBytes(clientKey, clientSig)
	clientFinal := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)

	fw.Reset()
	fw.startMsg(tagPasswordMessage)
	fw.WriteBytes([]byte(clientFinal))
	fw.closeMsg()
	if _, err := nc.Write(fw.Bytes()); err != nil {
		return &TransportError{Err: err}
	}

	tag, body, err = readMessage(nc)
	if err != nil {
		return &TransportError{Err: err}
	}
	if tag == tagErrorResponse {
		return decodeErrorFields(body)
	}
	if tag != tagAuthentication {
		return &ProtocolError{Msg: fmt.Sprintf("expected AuthenticationSASLFinal, got %q", tag)}
	}
	buf = newMsgBuf(body)
	if code := buf.int32(); code != authSASLFinal {
		return &AuthError{Msg: fmt.Sprintf("expected SASLFinal (12), got %d", code)}
	}
	serverFinal := string(buf.remainder())

	serverSigB64, ok := parseServerFinalMessage(serverFinal)
	if !ok {
		return &AuthError{Msg: "malformed server-final-message"}
	}
	expectedSig := hmacSHA256(serverKey, []byte(authMessage))
	if base64.StdEncoding.EncodeToString(expectedSig) != serverSigB64 {
		return &AuthError{Msg: "server signature verification failed"}
	}
	return nil
}

func containsMechanism(mechanisms []string, want string) bool {
	for _, m := range mechanisms {
		if m == want {
			return true
		}
	}
	return false
}

// saslEscape replaces ',' and '=' per RFC 5802 §5.1; username is not used
// for SCRAM authorization in the PostgreSQL startup flow, but the escape
// is applied regardless since the field is nominally present.
func saslEscape(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

// randomNonce generates an n-character client nonce from the lowercase
// alphabet (spec.md §4.2). Bytes with no unbiased mapping into the 26-letter
// alphabet are rejected and redrawn rather than reduced with modulo, which
// would skew the low end of the alphabet.
func randomNonce(n int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	const maxUnbiased = 256 - (256 % len(alphabet))
	out := make([]byte, n)
	var b [1]byte
	for i := range out {
		for {
			if _, err := rand.Read(b[:]); err != nil {
				return "", err
			}
			if int(b[0]) < maxUnbiased {
				out[i] = alphabet[int(b[0])%len(alphabet)]
				break
			}
		}
	}
	return string(out), nil
}

// parseServerFirstMessage parses "r=<nonce>,s=<salt-b64>,i=<count>".
func parseServerFirstMessage(s string) (nonce string, salt []byte, iterCount int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return "", nil, 0, &AuthError{Msg: "malformed server-first-message"}
	}
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "r="):
			nonce = p[2:]
		case strings.HasPrefix(p, "s="):
			salt, err = base64.StdEncoding.DecodeString(p[2:])
			if err != nil {
				return "", nil, 0, &AuthError{Msg: "malformed salt in server-first-message"}
			}
		case strings.HasPrefix(p, "i="):
			iterCount, err = strconv.Atoi(p[2:])
			if err != nil {
				return "", nil, 0, &AuthError{Msg: "malformed iteration count in server-first-message"}
			}
		}
	}
	if nonce == "" || salt == nil || iterCount == 0 {
		return "", nil, 0, &AuthError{Msg: "incomplete server-first-message"}
	}
	return nonce, salt, iterCount, nil
}

// parseServerFinalMessage parses "v=<signature-b64>".
func parseServerFinalMessage(s string) (sigB64 string, ok bool) {
	if !strings.HasPrefix(s, "v=") {
		return "", false
	}
	return s[2:], true
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
