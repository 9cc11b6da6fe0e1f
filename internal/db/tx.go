package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// WithTx executa uma função dentro de uma transação explicita.
func WithTx(ctx context.Context, pool Pool, fn func(pctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
