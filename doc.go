// Package pgwire is a client implementation of the PostgreSQL v3
// frontend/backend wire protocol.
//
// It establishes an authenticated, optionally TLS-wrapped session with a
// PostgreSQL server, prepares and executes SQL through the extended query
// protocol, and decodes typed result rows into native Go values. It does
// not implement the database/sql interface, connection pooling, the COPY
// protocol, or binary-format result decoding; see DESIGN.md for the full
// list of things this package deliberately does not do.
//
// A minimal round trip looks like:
//
//	conn, err := pgwire.Connect(pgwire.Config{Host: "localhost", Database: "postgres", User: "postgres"})
//	stmt, err := conn.Prepare("select 1 as a")
//	rows, err := conn.Execute(stmt, nil)
//	for rows.Next() {
//		vals := rows.Row().Values()
//	}
package pgwire
