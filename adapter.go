package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Adapter defines the contract for database-specific behavior.
// Each supported database (MySQL, PostgreSQL, SQLite) implements this interface.
type Adapter interface {
	// Tag returns the backend tag served by this adapter.
	Tag() BackendTag

	// Connect opens one native connection using the descriptor.
	Connect(ctx context.Context, descriptor string) (*Session, error)

	// BuildInsert returns the INSERT statement for ins and the values to bind,
	// in column order.
	BuildInsert(ins StructuredInsert) (string, []any)

	// Insert executes ins on the session and returns the generated identifier.
	Insert(ctx context.Context, s *Session, ins StructuredInsert) (any, error)

	// Release closes the session's connection.
	Release(s *Session) error
}

// Session is a single native connection owned by one operation.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

// openSession opens a database handle capped at one connection and checks
// that connection out, which dials the server or opens the file.
func openSession(ctx context.Context, driverName, dsn string) (*Session, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Session{db: db, conn: conn}, nil
}

// Close returns the connection and closes the handle.
func (s *Session) Close() error {
	return errors.Join(s.conn.Close(), s.db.Close())
}

// run drives one operation through an adapter:
// connect, build, execute, extract, release.
func run(ctx context.Context, a Adapter, descriptor string, op Operation, logger *slog.Logger) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, newError(KindStatement, a.Tag(), fmt.Errorf("panic during %s: %v", op.Kind(), r))
		}
	}()

	s, err := a.Connect(ctx, descriptor)
	if err != nil {
		return nil, newError(KindConnection, a.Tag(), err)
	}
	defer func() {
		if cerr := a.Release(s); cerr != nil {
			logger.Warn("failed to release connection", slog.String("backend", string(a.Tag())), slog.Any("error", cerr))
		}
	}()

	switch op := op.(type) {
	case RawQuery:
		rows, err := queryRows(ctx, s, op.Statement)
		if err != nil {
			return nil, newError(KindStatement, a.Tag(), err)
		}
		return &Result{Rows: rows}, nil
	case StructuredInsert:
		id, err := a.Insert(ctx, s, op)
		if errors.Is(err, errNoIdentifier) {
			return nil, newError(KindIdentifierUnavailable, a.Tag(), err)
		}
		if err != nil {
			return nil, newError(KindStatement, a.Tag(), err)
		}
		return &Result{InsertID: id}, nil
	default:
		return nil, newError(KindStatement, a.Tag(), fmt.Errorf("unsupported operation %T", op))
	}
}

func queryRows(ctx context.Context, s *Session, statement string) ([]Row, error) {
	rows, err := s.conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// insertDialect holds the syntax differences needed to synthesize an INSERT.
type insertDialect struct {
	quote       func(name string) string
	placeholder func(n int) string
	// emptyValues is used when the insert names no columns.
	emptyValues string
}

func (d insertDialect) build(ins StructuredInsert) (string, []any) {
	table := quoteQualified(ins.Table, d.quote)
	if len(ins.Fields) == 0 {
		return fmt.Sprintf("INSERT INTO %s %s", table, d.emptyValues), nil
	}

	columns := make([]string, len(ins.Fields))
	placeholders := make([]string, len(ins.Fields))
	args := make([]any, len(ins.Fields))
	for i, f := range ins.Fields {
		columns[i] = d.quote(f.Column)
		placeholders[i] = d.placeholder(i + 1)
		args[i] = bindValue(f.Value)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", ")), args
}

// quoteQualified quotes each dot-separated part of a table name.
func quoteQualified(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// quoteWith wraps name in q, doubling any q inside it.
func quoteWith(q, name string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// bindValue converts a decoded JSON value into a driver argument.
// Integral numbers bind as int64, other numbers as float64, and nested
// objects or arrays as their JSON text.
func bindValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any, []any:
		b, err := marshalJSON(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return v
	}
}
