package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrStaleRow is returned by conditional writes when the row no longer matches
// the state the caller read, meaning a concurrent transaction changed it
// first. Services surface it as a conflict.
var ErrStaleRow = errors.New("row changed concurrently")

// DBTX is the querier satisfied by both *sql.DB and *sql.Tx. Repositories
// take it so the same query code runs standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner runs a function inside one atomic unit of work. Services depend on
// this instead of *sql.DB so their guard logic is testable with in-memory
// repositories.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q DBTX) error) error
}

// SQLRunner is the TxRunner over a real database.
type SQLRunner struct {
	DB *sql.DB
}

// NewSQLRunner returns a TxRunner over db.
func NewSQLRunner(db *sql.DB) SQLRunner { return SQLRunner{DB: db} }

// InTx implements TxRunner via InTx.
func (r SQLRunner) InTx(ctx context.Context, fn func(q DBTX) error) error {
	return InTx(ctx, r.DB, func(tx *sql.Tx) error { return fn(tx) })
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic. Used for the write pairs that must be atomic: a workflow
// status patch with its history and audit rows, and any privileged mutation
// with its audit row.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
