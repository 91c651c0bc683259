package sqldoc

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// transactionContextKey is the context key for storing transactions
type transactionContextKey struct{}

// InTransaction executes fn within a transaction at the dialect's isolation level.
// Commits if fn succeeds, rolls back on error. Nested calls join the outer transaction.
func (r *Repository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(transactionContextKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: r.dialect.Isolation})
	if err != nil {
		return r.classify("begin transaction", err)
	}
	r.logger.Debug("transaction started", zap.String("dialect", r.dialect.Name))

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, transactionContextKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			r.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return r.classify(fmt.Sprintf("commit %s transaction", r.dialect.Name), err)
	}
	r.logger.Debug("transaction committed", zap.String("dialect", r.dialect.Name))
	return nil
}

// executor can run queries on either *sql.DB or *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// getExecutor returns the transaction in ctx if there is one, else the pool
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(transactionContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
