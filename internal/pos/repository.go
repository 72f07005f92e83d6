package pos

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/platform/db"
)

// Repository persists stand sales in PostgreSQL.
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

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("pos repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, writer: ledger.NewTxWriter(tx)})
	})
}

// GetSale loads one sale by id.
func (r *Repository) GetSale(ctx context.Context, id int64) (StandSale, error) {
	return scanSale(r.pool.QueryRow(ctx, saleSelect+` WHERE id=$1`, id))
}

const saleSelect = `SELECT id, ref::text, location_id, product_id, quantity, total_amount, payment_method, source, voided, created_at, voided_at FROM stand_sales`

// SummaryByDay aggregates non-voided sales for one location and calendar day.
func (r *Repository) SummaryByDay(ctx context.Context, locationID int64, day time.Time) (DailySalesSummary, error) {
	dayStart := day.Truncate(24 * time.Hour)
	summary := DailySalesSummary{
		LocationID:      locationID,
		Date:            dayStart.Format("2006-01-02"),
		ByPaymentMethod: map[string]float64{},
		BySource:        map[string]float64{},
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, payment_method, source, SUM(quantity), SUM(total_amount)
FROM stand_sales
WHERE location_id=$1 AND voided=FALSE AND created_at >= $2 AND created_at < $3
GROUP BY product_id, payment_method, source
ORDER BY product_id`, locationID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return DailySalesSummary{}, err
	}
	defer rows.Close()
	lines := map[int64]*SummaryLine{}
	order := []int64{}
	for rows.Next() {
		var productID, qty int64
		var method, source string
		var revenue float64
		if err := rows.Scan(&productID, &method, &source, &qty, &revenue); err != nil {
			return DailySalesSummary{}, err
		}
		line, ok := lines[productID]
		if !ok {
			line = &SummaryLine{ProductID: productID}
			lines[productID] = line
			order = append(order, productID)
		}
		line.Quantity += qty
		line.Revenue += revenue
		if source == string(SourceClosing) {
			line.Synthesized += qty
		}
		summary.TotalQuantity += qty
		summary.TotalRevenue += revenue
		summary.ByPaymentMethod[method] += revenue
		summary.BySource[source] += revenue
	}
	if err := rows.Err(); err != nil {
		return DailySalesSummary{}, err
	}
	for _, id := range order {
		summary.Lines = append(summary.Lines, *lines[id])
	}
	return summary, nil
}

func (r *txRepository) InsertSale(ctx context.Context, sale StandSale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stand_sales (ref, location_id, product_id, quantity, total_amount, payment_method, source, voided, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,NOW()) RETURNING id`,
		sale.Ref, sale.LocationID, sale.ProductID, sale.Quantity, sale.TotalAmount, sale.PaymentMethod, string(sale.Source)).Scan(&id)
	return id, err
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (StandSale, error) {
	return scanSale(r.tx.QueryRow(ctx, saleSelect+` WHERE id=$1 FOR UPDATE`, id))
}

// MarkVoided flips the voided flag, the single permitted mutation of a sale.
// The guard on voided=FALSE makes a concurrent double-void lose cleanly.
func (r *txRepository) MarkVoided(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stand_sales SET voided=TRUE, voided_at=$2 WHERE id=$1 AND voided=FALSE`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyVoided
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m ledger.Movement) (int64, error) {
	return r.writer.InsertMovement(ctx, m)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (StandSale, error) {
	var sale StandSale
	err := row.Scan(&sale.ID, &sale.Ref, &sale.LocationID, &sale.ProductID, &sale.Quantity, &sale.TotalAmount, &sale.PaymentMethod, &sale.Source, &sale.Voided, &sale.CreatedAt, &sale.VoidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StandSale{}, ErrSaleNotFound
		}
		return StandSale{}, err
	}
	return sale, nil
}
