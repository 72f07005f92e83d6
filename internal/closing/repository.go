package closing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/platform/db"
	"github.com/stockpit-erp/stockpit-erp/internal/pos"
)

// Repository persists closing records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx     pgx.Tx
	writer *ledger.TxWriter
}

// WithTx executes the callback inside a repeatable-read transaction. The whole
// closing batch rides on one transaction so a mid-batch failure rolls back
// every record and synthesized sale already staged.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("closing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, writer: ledger.NewTxWriter(tx)})
	})
}

// ListClosing returns the submitted records for a location and day, ordered by
// product.
func (r *Repository) ListClosing(ctx context.Context, locationID int64, day time.Time) ([]ClosingRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, location_id, close_date, product_id, quantity_carried, quantity_sold_total, quantity_returned, notes, created_at
FROM closing_records WHERE location_id=$1 AND close_date=$2 ORDER BY product_id`, locationID, day.Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ClosingRecord
	for rows.Next() {
		var rec ClosingRecord
		if err := rows.Scan(&rec.ID, &rec.LocationID, &rec.CloseDate, &rec.ProductID, &rec.QuantityCarried, &rec.QuantitySoldTotal, &rec.QuantityReturned, &rec.Notes, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AlreadyClosed reports whether any record exists for the location and day.
func (t *txRepository) AlreadyClosed(ctx context.Context, locationID int64, day time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM closing_records WHERE location_id=$1 AND close_date=$2)`,
		locationID, day.Truncate(24*time.Hour)).Scan(&exists)
	return exists, err
}

// PosRecorded sums non-voided terminal sale quantities for one product on the
// closing day. Derived from sales rows, not movements, because movements carry
// non-sale types too.
func (t *txRepository) PosRecorded(ctx context.Context, locationID, productID int64, day time.Time) (int64, error) {
	dayStart := day.Truncate(24 * time.Hour)
	var qty int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stand_sales
WHERE location_id=$1 AND product_id=$2 AND voided=FALSE AND created_at >= $3 AND created_at < $4`,
		locationID, productID, dayStart, dayStart.Add(24*time.Hour)).Scan(&qty)
	return qty, err
}

// InsertClosingRecord writes one reconciliation row. The unique constraint on
// (location_id, close_date, product_id) backs up the in-transaction guard.
func (t *txRepository) InsertClosingRecord(ctx context.Context, rec ClosingRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO closing_records (location_id, close_date, product_id, quantity_carried, quantity_sold_total, quantity_returned, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		rec.LocationID, rec.CloseDate, rec.ProductID, rec.QuantityCarried, rec.QuantitySoldTotal, rec.QuantityReturned, rec.Notes).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyClosed
		}
		return 0, err
	}
	return id, nil
}

// InsertSynthesizedSale writes the sale covering an unregistered delta. The
// caller supplies created_at so the sale lands inside the close day rather
// than at submission time.
func (t *txRepository) InsertSynthesizedSale(ctx context.Context, sale pos.StandSale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stand_sales (ref, location_id, product_id, quantity, total_amount, payment_method, source, voided, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8) RETURNING id`,
		sale.Ref, sale.LocationID, sale.ProductID, sale.Quantity, sale.TotalAmount, sale.PaymentMethod, string(sale.Source), sale.CreatedAt).Scan(&id)
	return id, err
}

// InsertMovement delegates to the shared ledger write path.
func (t *txRepository) InsertMovement(ctx context.Context, m ledger.Movement) (int64, error) {
	return t.writer.InsertMovement(ctx, m)
}
