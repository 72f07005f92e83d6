package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads catalog data.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	UnitPrice(ctx context.Context, productID int64) (float64, error)
	ListLocations(ctx context.Context) ([]Location, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a catalog repository backed by PostgreSQL.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func (r *repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, unit_price, active, created_at FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT id, code, name, unit_price, active, created_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// UnitPrice is the closing-time price lookup for synthesized sales.
func (r *repo) UnitPrice(ctx context.Context, productID int64) (float64, error) {
	var price float64
	err := r.db.QueryRow(ctx, `SELECT unit_price FROM products WHERE id = $1 AND active = TRUE`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return price, err
}

func (r *repo) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, active, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *repo) GetLocation(ctx context.Context, id int64) (Location, error) {
	var l Location
	err := r.db.QueryRow(ctx, `SELECT id, code, name, active, created_at FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Code, &l.Name, &l.Active, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, ErrLocationNotFound
	}
	return l, err
}
