package ledger

import (
	"fmt"
	"time"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementProduction represents finished goods entering stock.
	MovementProduction MovementType = "PRODUCTION"
	// MovementSale represents units sold at a stand.
	MovementSale MovementType = "SALE"
	// MovementShrinkage represents loss, spoilage or theft.
	MovementShrinkage MovementType = "SHRINKAGE"
	// MovementAdjustment represents manual corrections and void compensations.
	MovementAdjustment MovementType = "ADJUSTMENT"
	// MovementReturnIn represents unsold units returned from a location.
	MovementReturnIn MovementType = "RETURN_IN"
	// MovementReprocessOut represents units consumed by reprocessing.
	MovementReprocessOut MovementType = "REPROCESS_OUT"
	// MovementReprocessIn represents units produced by reprocessing.
	MovementReprocessIn MovementType = "REPROCESS_IN"
)

// Movement is an immutable signed quantity event attached to a product.
// The sum of QuantityDelta over a product's movements is the only legitimate
// definition of its available stock.
type Movement struct {
	ID            int64        `json:"id"`
	ProductID     int64        `json:"product_id"`
	Type          MovementType `json:"type"`
	QuantityDelta int64        `json:"quantity_delta"`
	RefModule     string       `json:"ref_module,omitempty"`
	RefID         string       `json:"ref_id,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AppendMovementInput describes a request to append one movement.
type AppendMovementInput struct {
	ProductID     int64
	Type          MovementType
	QuantityDelta int64
	Notes         string
	ActorID       int64
	RefModule     string
	RefID         string
}

// ReprocessInput describes converting leftover units of one product into
// another (e.g. day-old loaves into breadcrumbs).
type ReprocessInput struct {
	OriginProductID int64
	OriginQty       int64
	DestProductID   int64
	DestQty         int64
	Notes           string
	ActorID         int64
}

// MovementFilter filters movement history listings.
type MovementFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// Domain errors. All wrap an httpx sentinel so the HTTP boundary can map them.
var (
	// ErrInvalidQuantity is returned when a delta is zero or its sign violates
	// the movement type convention.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity delta does not match movement type convention", httpx.ErrValidation)
	// ErrUnknownMovementType is returned for types outside the enumeration.
	ErrUnknownMovementType = fmt.Errorf("%w: unknown movement type", httpx.ErrValidation)
	// ErrSameProduct is returned when a reprocess names the same origin and destination.
	ErrSameProduct = fmt.Errorf("%w: reprocess origin and destination must differ", httpx.ErrValidation)
	// ErrProductRequired is returned when a product id is missing.
	ErrProductRequired = fmt.Errorf("%w: product id required", httpx.ErrValidation)
)

// direction returns the sign convention for a movement type: +1 inbound,
// -1 outbound, 0 when either sign is allowed.
func direction(t MovementType) (int, error) {
	switch t {
	case MovementProduction, MovementReturnIn, MovementReprocessIn:
		return 1, nil
	case MovementSale, MovementShrinkage, MovementReprocessOut:
		return -1, nil
	case MovementAdjustment:
		return 0, nil
	default:
		return 0, ErrUnknownMovementType
	}
}

// ValidateDelta checks a quantity delta against the type's sign convention.
func ValidateDelta(t MovementType, delta int64) error {
	dir, err := direction(t)
	if err != nil {
		return err
	}
	if delta == 0 {
		return ErrInvalidQuantity
	}
	if dir > 0 && delta < 0 {
		return ErrInvalidQuantity
	}
	if dir < 0 && delta > 0 {
		return ErrInvalidQuantity
	}
	return nil
}
