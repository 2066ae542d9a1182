package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// generatedKeyQuery finds the primary-key column of a table whose value the
// server generates (identity or serial). $1 is the quoted table name.
const generatedKeyQuery = `SELECT a.attname
FROM pg_index i
JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
WHERE i.indrelid = $1::text::regclass
  AND i.indisprimary
  AND (a.attidentity <> '' OR pg_get_serial_sequence($1::text, a.attname) IS NOT NULL)
ORDER BY a.attnum
LIMIT 1`

// PostgresAdapter implements Adapter for PostgreSQL databases.
type PostgresAdapter struct {
	driver string
}

// NewPostgresAdapter returns an adapter using the named database/sql driver:
// "pq" selects lib/pq, "pgx" selects pgx's stdlib driver.
func NewPostgresAdapter(driver string) *PostgresAdapter {
	switch driver {
	case "pgx":
		return &PostgresAdapter{driver: "pgx"}
	default:
		return &PostgresAdapter{driver: "postgres"}
	}
}

func (a *PostgresAdapter) Tag() BackendTag { return BackendPostgres }

// DriverName returns the database/sql driver name.
func (a *PostgresAdapter) DriverName() string { return a.driver }

func (a *PostgresAdapter) Connect(ctx context.Context, descriptor string) (*Session, error) {
	return openSession(ctx, a.driver, descriptor)
}

func (a *PostgresAdapter) Release(s *Session) error { return s.Close() }

func (a *PostgresAdapter) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

func (a *PostgresAdapter) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (a *PostgresAdapter) BuildInsert(ins StructuredInsert) (string, []any) {
	return insertDialect{
		quote:       a.QuoteIdentifier,
		placeholder: a.Placeholder,
		emptyValues: "DEFAULT VALUES",
	}.build(ins)
}

// Insert returns the value of the table's generated key through RETURNING.
// Tables without such a key are still inserted into, but report no identifier.
func (a *PostgresAdapter) Insert(ctx context.Context, s *Session, ins StructuredInsert) (any, error) {
	query, args := a.BuildInsert(ins)

	key, err := a.generatedKey(ctx, s, ins.Table)
	if err != nil {
		return nil, err
	}

	if key == "" {
		if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
		return nil, errNoIdentifier
	}

	var id any
	if err := s.conn.QueryRowContext(ctx, query+" RETURNING "+a.QuoteIdentifier(key), args...).Scan(&id); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, errNoIdentifier
	}
	return normalizeValue(id), nil
}

func (a *PostgresAdapter) generatedKey(ctx context.Context, s *Session, table string) (string, error) {
	var key string
	err := s.conn.QueryRowContext(ctx, generatedKeyQuery, quoteQualified(table, a.QuoteIdentifier)).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return key, err
}
