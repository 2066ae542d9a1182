package main

import (
	"context"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter implements Adapter for SQLite databases.
// The connection descriptor is a file path handed to the driver unchanged.
type SQLiteAdapter struct {
	driver string
}

func NewSQLiteAdapter() *SQLiteAdapter {
	return &SQLiteAdapter{driver: "sqlite"}
}

func (a *SQLiteAdapter) Tag() BackendTag { return BackendSQLite }

func (a *SQLiteAdapter) Connect(ctx context.Context, descriptor string) (*Session, error) {
	return openSession(ctx, a.driver, descriptor)
}

func (a *SQLiteAdapter) Release(s *Session) error { return s.Close() }

// QuoteIdentifier quotes a name with double quotes.
func (a *SQLiteAdapter) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

func (a *SQLiteAdapter) Placeholder(int) string { return "?" }

func (a *SQLiteAdapter) BuildInsert(ins StructuredInsert) (string, []any) {
	return insertDialect{
		quote:       a.QuoteIdentifier,
		placeholder: a.Placeholder,
		emptyValues: "DEFAULT VALUES",
	}.build(ins)
}

// Insert executes the insert and reports the rowid it generated.
// Every session is a fresh connection, so last_insert_rowid() is 0 unless
// this statement produced a rowid (tables declared WITHOUT ROWID never do).
func (a *SQLiteAdapter) Insert(ctx context.Context, s *Session, ins StructuredInsert) (any, error) {
	query, args := a.BuildInsert(ins)

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errNoIdentifier
	}
	return insertID(id)
}
