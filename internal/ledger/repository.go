package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/db"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxWriter(tx))
	})
}

// CurrentStock folds the movement log for one product.
func (r *Repository) CurrentStock(ctx context.Context, productID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity_delta), 0) FROM stock_movements WHERE product_id=$1`, productID).Scan(&qty)
	return qty, err
}

// StockLevels folds the log for several products in a single statement so the
// caller gets one consistent snapshot.
func (r *Repository) StockLevels(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, COALESCE(SUM(quantity_delta), 0)
FROM stock_movements
WHERE product_id = ANY($1)
GROUP BY product_id`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := make(map[int64]int64, len(productIDs))
	for _, id := range productIDs {
		levels[id] = 0
	}
	for rows.Next() {
		var id, qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		levels[id] = qty
	}
	return levels, rows.Err()
}

// ListMovements returns movement history for a product, oldest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, movement_type, quantity_delta, ref_module, COALESCE(ref_id::text, ''), notes, created_at
FROM stock_movements
WHERE product_id=$1 AND created_at BETWEEN COALESCE($2::timestamptz, '-infinity') AND COALESCE($3::timestamptz, 'infinity')
ORDER BY created_at ASC, id ASC
LIMIT $4`, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.QuantityDelta, &m.RefModule, &m.RefID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// TxWriter appends movements inside a caller-owned transaction. Other modules
// (pos, closing) use it so every movement row goes through a single write path.
type TxWriter struct {
	tx pgx.Tx
}

// NewTxWriter wraps an open transaction.
func NewTxWriter(tx pgx.Tx) *TxWriter {
	return &TxWriter{tx: tx}
}

// InsertMovement appends one movement row. Movements are never updated or
// deleted after this insert.
func (w *TxWriter) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	if err := ValidateDelta(m.Type, m.QuantityDelta); err != nil {
		return 0, err
	}
	var id int64
	err := w.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, movement_type, quantity_delta, ref_module, ref_id, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id`, m.ProductID, string(m.Type), m.QuantityDelta, m.RefModule, nullUUID(m.RefID), m.Notes).Scan(&id)
	return id, err
}

func nullUUID(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
