package pos

import (
	"fmt"
	"time"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// SaleSource distinguishes how a sale entered the system.
type SaleSource string

const (
	// SourceTerminal marks sales registered at a point-of-sale terminal.
	SourceTerminal SaleSource = "TERMINAL"
	// SourceClosing marks sales synthesized by closing reconciliation for
	// quantities the operator sold without using the terminal.
	SourceClosing SaleSource = "CLOSING"
)

// Payment methods accepted at stands.
const (
	PaymentCash     = "CASH"
	PaymentTransfer = "TRANSFER"
)

// StandSale is a point-of-sale transaction against a location and product.
// Voided is the only mutable field and flips false->true exactly once; the
// stock effect of a void is a compensating movement, never a deletion.
type StandSale struct {
	ID            int64      `json:"id"`
	Ref           string     `json:"ref"`
	LocationID    int64      `json:"location_id"`
	ProductID     int64      `json:"product_id"`
	Quantity      int64      `json:"quantity"`
	TotalAmount   float64    `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	Source        SaleSource `json:"source"`
	Voided        bool       `json:"voided"`
	CreatedAt     time.Time  `json:"created_at"`
	VoidedAt      *time.Time `json:"voided_at,omitempty"`
}

// RegisterSaleInput describes a sale registration request.
type RegisterSaleInput struct {
	LocationID    int64
	ProductID     int64
	Quantity      int64
	TotalAmount   float64
	PaymentMethod string
	// ClientRef is an optional terminal-supplied token; when present, retries
	// carrying the same token register at most one sale.
	ClientRef string
	ActorID   int64
}

// VoidSaleInput describes a void request. Override is resolved at the HTTP
// boundary (supervisor PIN) or by the external authorization layer.
type VoidSaleInput struct {
	SaleID   int64
	Override bool
	ActorID  int64
}

// SummaryLine aggregates one product within a daily summary.
type SummaryLine struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int64   `json:"quantity"`
	Revenue     float64 `json:"revenue"`
	Synthesized int64   `json:"synthesized_quantity"`
}

// DailySalesSummary aggregates non-voided sales for one location and day.
type DailySalesSummary struct {
	LocationID      int64              `json:"location_id"`
	Date            string             `json:"date"`
	TotalQuantity   int64              `json:"total_quantity"`
	TotalRevenue    float64            `json:"total_revenue"`
	ByPaymentMethod map[string]float64 `json:"by_payment_method"`
	BySource        map[string]float64 `json:"by_source"`
	Lines           []SummaryLine      `json:"lines"`
}

// Domain errors.
var (
	// ErrSaleNotFound indicates no sale exists with the given id.
	ErrSaleNotFound = fmt.Errorf("%w: sale", httpx.ErrNotFound)
	// ErrAlreadyVoided is returned on a second void of the same sale so the
	// call never silently no-ops or double-compensates.
	ErrAlreadyVoided = fmt.Errorf("%w: sale already voided", httpx.ErrConflict)
	// ErrVoidWindowExceeded is returned when the undo window has passed and no
	// override was authorised.
	ErrVoidWindowExceeded = fmt.Errorf("%w: void window exceeded, supervisor override required", httpx.ErrForbidden)
	// ErrInvalidSale covers non-positive quantities or totals.
	ErrInvalidSale = fmt.Errorf("%w: sale requires positive quantity and total", httpx.ErrValidation)
	// ErrInvalidPaymentMethod is returned for unsupported payment method tags.
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unsupported payment method", httpx.ErrValidation)
	// ErrDuplicateClientRef indicates a retry of an already registered sale.
	ErrDuplicateClientRef = fmt.Errorf("%w: sale already registered for client ref", httpx.ErrConflict)
)

// ValidatePaymentMethod checks the method tag, defaulting empty to cash.
func ValidatePaymentMethod(method string) (string, error) {
	switch method {
	case "":
		return PaymentCash, nil
	case PaymentCash, PaymentTransfer:
		return method, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}
