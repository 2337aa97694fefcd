package services

import (
	"context"

	"github.com/dsz/skyfleet/repositories"
)

// WithTransaction executes fn within a store transaction.
// The store commits when fn succeeds and rolls back when it fails.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	return txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		return fn(ctx)
	})
}

// WithTransactionResult executes fn within a store transaction and returns its result.
// The zero value is returned when the transaction fails.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
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
