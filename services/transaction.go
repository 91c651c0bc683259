package services

import (
	"context"

	"github.com/upb/waqf-policy-engine/repositories"
)

// WithTransaction executes fn inside a transaction when store implements
// repositories.TransactionManager, and directly otherwise. The context passed
// to fn must be used for every store call that should join the transaction.
func WithTransaction(ctx context.Context, store interface{}, fn func(ctx context.Context) error) error {
	txMgr, ok := store.(repositories.TransactionManager)
	if !ok {
		return fn(ctx)
	}
	return txMgr.InTransaction(ctx, fn)
}

// WithTransactionResult executes fn like WithTransaction and returns its result.
// The result is discarded when the transaction fails.
func WithTransactionResult[T any](ctx context.Context, store interface{}, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, store, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
