package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrBadRequest    = errors.New("db: request rejected by engine")
)

// Op constants name the engine API or command for error context.
const (
	OpPing        = "PING"
	OpSearch      = "SEARCH"
	OpKNN         = "KNN_SEARCH"
	OpIndexExists = "INDICES_EXISTS"
	OpCreateIndex = "INDICES_CREATE"
	OpDeleteIndex = "INDICES_DELETE"
	OpIndexStats  = "INDICES_STATS"
	OpBulk        = "BULK"
	OpGet         = "GET"
	OpSet         = "SET"
	OpDel         = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
