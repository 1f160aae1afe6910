package repositories

import (
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrInsufficientQuantity is returned when a guarded decrement would take
	// a quantity below zero.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx.
// This allows repository methods to be used within transactions or with a direct DB connection.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Tx is a transaction handle: an SQLExecutor that can be committed or rolled
// back. *sql.Tx satisfies it directly.
type Tx interface {
	SQLExecutor
	Commit() error
	Rollback() error
}

// TxBeginner starts transactions. Services depend on this rather than on
// *sql.DB so the transaction boundary can be faked in tests.
type TxBeginner interface {
	Begin() (Tx, error)
}

type sqlTxBeginner struct {
	db *sql.DB
}

// NewTxBeginner wraps a *sql.DB as a TxBeginner.
func NewTxBeginner(db *sql.DB) TxBeginner {
	return sqlTxBeginner{db: db}
}

func (b sqlTxBeginner) Begin() (Tx, error) {
	return b.db.Begin()
}
