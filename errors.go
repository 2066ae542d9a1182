package main

import (
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorKind classifies why an operation failed.
type ErrorKind int

const (
	KindUnsupportedBackend ErrorKind = iota + 1
	KindConnection
	KindStatement
	KindIdentifierUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedBackend:
		return "unsupported_backend"
	case KindConnection:
		return "connection"
	case KindStatement:
		return "statement"
	case KindIdentifierUnavailable:
		return "identifier_unavailable"
	default:
		return "unknown"
	}
}

// errNoIdentifier is returned by adapters when an insert succeeded but the
// backend reported no generated key.
var errNoIdentifier = errors.New("no identifier available")

// OpError is the failure outcome of an operation. Its message is the
// underlying driver message, so it can be shown to the caller as-is.
type OpError struct {
	Kind    ErrorKind
	Backend BackendTag
	Err     error
}

func newError(kind ErrorKind, backend BackendTag, err error) *OpError {
	return &OpError{Kind: kind, Backend: backend, Err: err}
}

func (e *OpError) Error() string {
	if e.Kind == KindUnsupportedBackend {
		return "unsupported database type"
	}
	if e.Err == nil {
		if e.Kind == KindIdentifierUnavailable {
			return errNoIdentifier.Error()
		}
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// IsKind reports whether err is an *OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *OpError
	return errors.As(err, &e) && e.Kind == kind
}

// driverCode extracts the SQLSTATE or MySQL error number from a driver
// error, or "" when the error did not come from a server.
func driverCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	return ""
}
