package store

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn in a transaction and commits if it returns nil. The DSN
// sets _txlock=immediate, so the write lock is taken at BEGIN and a second
// process waits on busy_timeout instead of reading a stale row.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
