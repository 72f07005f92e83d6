package revenue

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads revenue rows from the three channels. All queries are
// read-only; this module never writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StandSalesBetween loads non-voided stand sale revenue grouped by product and
// day. Closing-synthesized sales are stand revenue like any other.
func (r *Repository) StandSalesBetween(ctx context.Context, from, to time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, DATE_TRUNC('day', created_at) AS day, SUM(quantity), SUM(total_amount)
FROM stand_sales
WHERE voided=FALSE AND created_at >= $1 AND created_at < $2
GROUP BY product_id, day ORDER BY day, product_id`, from, to)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, ChannelStand)
}

// ConsignmentBetween loads settled consignment revenue. Settlements are fed by
// the external consignment system; this module only aggregates them.
func (r *Repository) ConsignmentBetween(ctx context.Context, from, to time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, DATE_TRUNC('day', settled_at) AS day, SUM(quantity_sold), SUM(amount)
FROM consignment_settlements
WHERE settled_at >= $1 AND settled_at < $2
GROUP BY product_id, day ORDER BY day, product_id`, from, to)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, ChannelConsignment)
}

// WebOrdersBetween loads delivered web order revenue.
func (r *Repository) WebOrdersBetween(ctx context.Context, from, to time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, DATE_TRUNC('day', delivered_at) AS day, SUM(quantity), SUM(total_amount)
FROM web_orders
WHERE status='DELIVERED' AND delivered_at >= $1 AND delivered_at < $2
GROUP BY product_id, day ORDER BY day, product_id`, from, to)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, ChannelWeb)
}

func collectRows(rows pgx.Rows, channel string) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		row := Row{Channel: channel}
		if err := rows.Scan(&row.ProductID, &row.Day, &row.Quantity, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
