package pgwire

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// integrationConfig reads connection parameters from the environment and
// skips the calling test if PGWIRE_TEST_HOST is not set, since these tests
// require a live PostgreSQL server and are not run by default.
func integrationConfig(t *testing.T) Config {
	t.Helper()
	host := os.Getenv("PGWIRE_TEST_HOST")
	if host == "" {
		t.Skip("PGWIRE_TEST_HOST not set; skipping integration test")
	}
	return Config{
		Host:     host,
		Database: envOr("PGWIRE_TEST_DATABASE", "postgres"),
		User:     envOr("PGWIRE_TEST_USER", "postgres"),
		Password: os.Getenv("PGWIRE_TEST_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestIntegrationConnectAndCloseIdempotent(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, c.IsAlive())
}

func TestIntegrationSelectOne(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	defer c.Close()

	stmt, err := c.Prepare("select 1 as a")
	require.NoError(t, err)
	require.Equal(t, 0, stmt.NumParams())

	rows, err := c.Execute(stmt, nil)
	require.NoError(t, err)
	require.True(t, rows.Next())
	v, ok := rows.Row().Value("a")
	require.True(t, ok)
	require.Equal(t, int32(1), v)
	require.False(t, rows.Next())
}

func TestIntegrationEmptyCreateTableResult(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.ExecuteSimple("drop table if exists pgwire_it_ddl"))
	require.NoError(t, c.ExecuteSimple("create table pgwire_it_ddl (id int)"))

	stmt, err := c.Prepare("select id from pgwire_it_ddl")
	require.NoError(t, err)
	rows, err := c.Execute(stmt, nil)
	require.NoError(t, err)
	require.False(t, rows.Next())
	require.Equal(t, "SELECT 0", rows.CommandTag())
}

func TestIntegrationPreparedInsertReturningWithMissingParam(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.ExecuteSimple("drop table if exists pgwire_it_wide"))
	require.NoError(t, c.ExecuteSimple(`create table pgwire_it_wide (
		c1 int, c2 int, c3 int, c4 int, c5 int, c6 int, c7 int, c8 int,
		c9 text, c10 text, c11 timestamptz, c12 text)`))

	stmt, err := c.Prepare(`insert into pgwire_it_wide
		(c1,c2,c3,c4,c5,c6,c7,c8,c9,c10,c11,c12)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		returning c1, c11`)
	require.NoError(t, err)
	require.Equal(t, 12, stmt.NumParams())

	params := []interface{}{
		1, 2, 3, 4, 5, 6, 7, 8, "nine", nil, "2024-03-05 12:00:00+00", "twelve",
	}
	rows, err := c.Execute(stmt, params)
	require.NoError(t, err)
	require.True(t, rows.Next())
	v, ok := rows.Row().Value("c1")
	require.True(t, ok)
	require.Equal(t, int32(1), v)
}

func TestIntegrationJSONBRoundTrip(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	defer c.Close()

	stmt, err := c.Prepare("select $1::jsonb as doc")
	require.NoError(t, err)

	rows, err := c.Execute(stmt, []interface{}{JSON{Raw: []byte(`{"a":1,"b":[2,3]}`)}})
	require.NoError(t, err)
	require.True(t, rows.Next())
	v, ok := rows.Row().Value("doc")
	require.True(t, ok)
	doc, ok := v.(JSON)
	require.True(t, ok)

	var m map[string]interface{}
	require.NoError(t, doc.Get(&m))
	require.Equal(t, float64(1), m["a"])
}

func TestIntegrationInvalidSQLThenRecovery(t *testing.T) {
	cfg := integrationConfig(t)
	c, err := Connect(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Prepare("select * from no_such_table_pgwire_it")
	require.Error(t, err)
	_, ok := err.(*PgError)
	require.True(t, ok)

	// The connection recovers because the aborted-transaction ReadyForQuery
	// still arrives; the next statement should succeed normally.
	stmt, err := c.Prepare("select 1 as a")
	require.NoError(t, err)
	rows, err := c.Execute(stmt, nil)
	require.NoError(t, err)
	require.True(t, rows.Next())
}
