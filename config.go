package pgwire

import "crypto/tls"

// Config holds the parameters used to establish a connection. It is
// immutable once passed to Connect; a Conn that reconnects reuses the same
// Config it was constructed with.
type Config struct {
	Host     string // host name or IP; also accepted as a unix socket directory path
	Port     uint16 // default: 5432
	Database string
	User     string
	Password string // optional

	// TLSConfig, if non-nil, causes Connect to send SSLRequest before the
	// startup message and, if the server accepts, complete a TLS handshake
	// using it. If nil, the connection is unencrypted.
	TLSConfig *tls.Config

	// Debug, if true, makes each operation log at LogLevelDebug: Prepare
	// logs the statement name and SQL text, Execute the statement name and
	// parameter count, and ExecuteSimple the SQL text.
	Debug bool

	// Logger receives diagnostic output. If nil, output is discarded.
	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	return c
}
