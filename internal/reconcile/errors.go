package reconcile

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrSerializationConflict   = errors.New("serialization conflict")
	ErrMissingLayout           = errors.New("session has no usable layout")
	ErrTransactionsUnsupported = errors.New("transactions required but not supported")
	ErrInvalidPolicy           = errors.New("invalid transaction policy")
)

const (
	CodeMissingLayout        = "MISSING_LAYOUT"
	CodeSerialization        = "SERIALIZATION_CONFLICT"
	CodeTransactionsRequired = "TX_UNSUPPORTED"
	CodeFailed               = "RECONCILE_FAILED"
)

// IsRetryable reports whether err means the whole session should be attempted again:
// a postgres serialization failure or deadlock, or a busy or locked sqlite database.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSerializationConflict) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
