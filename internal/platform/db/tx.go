package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. Any failure that is not already a mapped domain error is
// tagged as a storage failure: the transaction rolled back, so the caller may
// safely retry.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return httpx.Storage(fmt.Errorf("platform/db: begin tx: %w", err))
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return httpx.Storage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return httpx.Storage(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}
