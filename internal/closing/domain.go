package closing

import (
	"fmt"
	"time"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// ClosingRow is one product line of an end-of-day submission. The operator
// counts what was carried to the stand and what they believe was actually
// sold, terminal-registered or not.
type ClosingRow struct {
	ProductID         int64 `json:"product_id"`
	QuantityCarried   int64 `json:"quantity_carried"`
	ReportedTotalSold int64 `json:"reported_total_sold"`
}

// SubmitClosingInput is a whole per-location/day closing batch.
type SubmitClosingInput struct {
	LocationID int64
	Date       time.Time
	Rows       []ClosingRow
	Notes      string
	ActorID    int64
}

// ClosingRecord is the persisted reconciliation result for one product. It is
// an audit artifact only; the stock effect of an unregistered delta lives in
// the synthesized sale and its SALE movement.
type ClosingRecord struct {
	ID                int64     `json:"id"`
	LocationID        int64     `json:"location_id"`
	CloseDate         time.Time `json:"close_date"`
	ProductID         int64     `json:"product_id"`
	QuantityCarried   int64     `json:"quantity_carried"`
	QuantitySoldTotal int64     `json:"quantity_sold_total"`
	QuantityReturned  int64     `json:"quantity_returned"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SubmitClosingResult reports what one submission produced.
type SubmitClosingResult struct {
	Records          []ClosingRecord `json:"records"`
	SynthesizedSales []int64         `json:"synthesized_sale_ids"`
}

var (
	// ErrInvalidInput rejects a batch before any write: empty batch, negative
	// quantities, or duplicate product rows.
	ErrInvalidInput = fmt.Errorf("closing: %w: invalid submission", httpx.ErrValidation)

	// ErrAlreadyClosed guards against re-submitting the same location and day,
	// which would double-count synthesized sales.
	ErrAlreadyClosed = fmt.Errorf("closing: %w: location already closed for this date", httpx.ErrConflict)

	// ErrPriceNotFound is returned when an unregistered delta needs a
	// synthesized sale but the catalog has no price for the product.
	ErrPriceNotFound = fmt.Errorf("closing: %w: no catalog price for product", httpx.ErrValidation)

	// ErrClosingNotFound is returned by read-back when nothing was submitted.
	ErrClosingNotFound = fmt.Errorf("closing: %w: no closing for location and date", httpx.ErrNotFound)
)

// Validate checks the batch against pre-write rules. It must reject the whole
// submission before anything touches storage.
func (in SubmitClosingInput) Validate() error {
	if in.LocationID == 0 {
		return fmt.Errorf("%w: location required", ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrInvalidInput)
	}
	if len(in.Rows) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	seen := make(map[int64]struct{}, len(in.Rows))
	for _, row := range in.Rows {
		if row.ProductID == 0 {
			return fmt.Errorf("%w: product required", ErrInvalidInput)
		}
		if row.QuantityCarried < 0 || row.ReportedTotalSold < 0 {
			return fmt.Errorf("%w: negative quantity for product %d", ErrInvalidInput, row.ProductID)
		}
		if _, dup := seen[row.ProductID]; dup {
			return fmt.Errorf("%w: duplicate row for product %d", ErrInvalidInput, row.ProductID)
		}
		seen[row.ProductID] = struct{}{}
	}
	return nil
}
