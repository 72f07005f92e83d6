package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/pos"
	"github.com/stockpit-erp/stockpit-erp/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListClosing(ctx context.Context, locationID int64, day time.Time) ([]ClosingRecord, error)
}

// TxRepository is the per-transaction surface; every write of a submission
// goes through one instance so the batch commits or rolls back as a unit.
type TxRepository interface {
	AlreadyClosed(ctx context.Context, locationID int64, day time.Time) (bool, error)
	PosRecorded(ctx context.Context, locationID, productID int64, day time.Time) (int64, error)
	InsertClosingRecord(ctx context.Context, rec ClosingRecord) (int64, error)
	InsertSynthesizedSale(ctx context.Context, sale pos.StandSale) (int64, error)
	InsertMovement(ctx context.Context, m ledger.Movement) (int64, error)
}

// CatalogPort looks up the unit price used when synthesizing a sale for an
// unregistered delta. Pricing itself is owned by the catalog.
type CatalogPort interface {
	UnitPrice(ctx context.Context, productID int64) (float64, error)
}

// AuditPort records post-commit audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidationPort bumps read-side cache versions after a committed write.
type InvalidationPort interface {
	Bump(ctx context.Context) error
}

// ServiceConfig carries closing policy knobs.
type ServiceConfig struct {
	// PaymentMethod tags synthesized sales; defaults to cash.
	PaymentMethod string
}

// Service runs the end-of-day reconciliation.
type Service struct {
	repo          RepositoryPort
	catalog       CatalogPort
	audit         AuditPort
	invalidate    InvalidationPort
	paymentMethod string
}

// NewService constructs the closing service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort, invalidate InvalidationPort, cfg ServiceConfig) *Service {
	method := cfg.PaymentMethod
	if method == "" {
		method = pos.PaymentCash
	}
	return &Service{
		repo:          repo,
		catalog:       catalog,
		audit:         audit,
		invalidate:    invalidate,
		paymentMethod: method,
	}
}

// SubmitClosing reconciles one location/day batch. All rows are validated
// before any write; the records and any synthesized sales commit in one
// transaction or not at all.
func (s *Service) SubmitClosing(ctx context.Context, input SubmitClosingInput) (SubmitClosingResult, error) {
	if err := input.Validate(); err != nil {
		return SubmitClosingResult{}, err
	}
	day := input.Date.Truncate(24 * time.Hour)

	var result SubmitClosingResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		closed, err := tx.AlreadyClosed(ctx, input.LocationID, day)
		if err != nil {
			return err
		}
		if closed {
			return ErrAlreadyClosed
		}
		for _, row := range input.Rows {
			posRecorded, err := tx.PosRecorded(ctx, input.LocationID, row.ProductID, day)
			if err != nil {
				return err
			}
			outcome := Reconcile(row.QuantityCarried, row.ReportedTotalSold, posRecorded)

			rec := ClosingRecord{
				LocationID:        input.LocationID,
				CloseDate:         day,
				ProductID:         row.ProductID,
				QuantityCarried:   row.QuantityCarried,
				QuantitySoldTotal: outcome.EffectiveTotalSold,
				QuantityReturned:  outcome.QuantityReturned,
				Notes:             input.Notes,
			}
			rec.ID, err = tx.InsertClosingRecord(ctx, rec)
			if err != nil {
				return err
			}
			result.Records = append(result.Records, rec)

			if outcome.Unregistered > 0 {
				saleID, err := s.synthesizeSale(ctx, tx, input.LocationID, row.ProductID, outcome.Unregistered, day)
				if err != nil {
					return err
				}
				result.SynthesizedSales = append(result.SynthesizedSales, saleID)
			}
		}
		return nil
	})
	if err != nil {
		return SubmitClosingResult{}, err
	}

	s.recordAudit(ctx, input, result)
	if s.invalidate != nil {
		_ = s.invalidate.Bump(ctx)
	}
	return result, nil
}

// GetClosing reads back a submitted closing.
func (s *Service) GetClosing(ctx context.Context, locationID int64, day time.Time) ([]ClosingRecord, error) {
	if locationID == 0 {
		return nil, fmt.Errorf("%w: location required", ErrInvalidInput)
	}
	records, err := s.repo.ListClosing(ctx, locationID, day)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrClosingNotFound
	}
	return records, nil
}

// synthesizeSale covers the unregistered delta with a sale row and its paired
// SALE movement, tagged source CLOSING so reporting can tell it apart from
// terminal sales. The sale is stamped at the end of the close day: closings
// submitted after midnight must not leak into the next day's totals.
func (s *Service) synthesizeSale(ctx context.Context, tx TxRepository, locationID, productID, quantity int64, day time.Time) (int64, error) {
	price, err := s.catalog.UnitPrice(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("%w %d: %v", ErrPriceNotFound, productID, err)
	}
	sale := pos.StandSale{
		Ref:           uuid.NewString(),
		LocationID:    locationID,
		ProductID:     productID,
		Quantity:      quantity,
		TotalAmount:   float64(quantity) * price,
		PaymentMethod: s.paymentMethod,
		Source:        pos.SourceClosing,
		CreatedAt:     day.Add(24*time.Hour - time.Second),
	}
	saleID, err := tx.InsertSynthesizedSale(ctx, sale)
	if err != nil {
		return 0, err
	}
	_, err = tx.InsertMovement(ctx, ledger.Movement{
		ProductID:     productID,
		Type:          ledger.MovementSale,
		QuantityDelta: -quantity,
		RefModule:     "CLOSING",
		RefID:         sale.Ref,
		Notes:         fmt.Sprintf("closing-synthesized sale at location %d", locationID),
	})
	if err != nil {
		return 0, err
	}
	return saleID, nil
}

func (s *Service) recordAudit(ctx context.Context, input SubmitClosingInput, result SubmitClosingResult) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "closing:SUBMIT",
		Entity:   "closing_record",
		EntityID: fmt.Sprintf("%d:%s", input.LocationID, input.Date.Format("2006-01-02")),
		Meta: map[string]any{
			"rows":              len(input.Rows),
			"synthesized_sales": len(result.SynthesizedSales),
		},
	})
}
