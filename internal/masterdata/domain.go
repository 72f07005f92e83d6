package masterdata

import (
	"fmt"
	"time"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Product is a catalog entry. The catalog itself is maintained by an external
// system; this module only reads what the ledger and closing need.
type Product struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unit_price"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is a selling point a closing or sale is registered against.
type Location struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrProductNotFound  = fmt.Errorf("masterdata: %w: product", httpx.ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("masterdata: %w: location", httpx.ErrNotFound)
)
