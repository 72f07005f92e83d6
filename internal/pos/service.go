package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (StandSale, error)
	SummaryByDay(ctx context.Context, locationID int64, day time.Time) (DailySalesSummary, error)
}

// TxRepository exposes the transactional operations of a sale's unit of work.
// The sale row and its movement commit together or not at all.
type TxRepository interface {
	InsertSale(ctx context.Context, sale StandSale) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (StandSale, error)
	MarkVoided(ctx context.Context, id int64, at time.Time) error
	InsertMovement(ctx context.Context, m ledger.Movement) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards client-ref retries.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// InvalidationPort lets write paths bump downstream read caches.
type InvalidationPort interface {
	Bump(ctx context.Context) error
}

// Service handles point-of-sale transactions on top of the stock ledger.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	invalidate  InvalidationPort
	voidWindow  time.Duration
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// VoidWindow bounds undo eligibility; zero falls back to five minutes.
	VoidWindow time.Duration
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, invalidate InvalidationPort, cfg ServiceConfig) *Service {
	window := cfg.VoidWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		invalidate:  invalidate,
		voidWindow:  window,
		now:         time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RegisterSale atomically creates the sale row and its SALE movement.
func (s *Service) RegisterSale(ctx context.Context, input RegisterSaleInput) (int64, error) {
	if input.LocationID == 0 || input.ProductID == 0 {
		return 0, fmt.Errorf("%w: location and product required", ErrInvalidSale)
	}
	if input.Quantity <= 0 || input.TotalAmount <= 0 {
		return 0, ErrInvalidSale
	}
	method, err := ValidatePaymentMethod(input.PaymentMethod)
	if err != nil {
		return 0, err
	}

	idemKey := ""
	if input.ClientRef != "" && s.idempotency != nil {
		idemKey = fmt.Sprintf("pos:sale:%s", input.ClientRef)
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "pos"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return 0, ErrDuplicateClientRef
			}
			return 0, err
		}
	}

	sale := StandSale{
		Ref:           uuid.NewString(),
		LocationID:    input.LocationID,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: method,
		Source:        SourceTerminal,
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var e error
		id, e = tx.InsertSale(ctx, sale)
		if e != nil {
			return e
		}
		_, e = tx.InsertMovement(ctx, ledger.Movement{
			ProductID:     sale.ProductID,
			Type:          ledger.MovementSale,
			QuantityDelta: -sale.Quantity,
			RefModule:     "POS",
			RefID:         sale.Ref,
			Notes:         fmt.Sprintf("stand sale at location %d", sale.LocationID),
		})
		return e
	})
	if err != nil {
		if idemKey != "" {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return 0, err
	}

	s.recordAudit(ctx, input.ActorID, "pos:REGISTER_SALE", id, map[string]any{
		"location_id":    sale.LocationID,
		"product_id":     sale.ProductID,
		"quantity":       sale.Quantity,
		"total_amount":   sale.TotalAmount,
		"payment_method": sale.PaymentMethod,
	})
	s.bump(ctx)
	return id, nil
}

// VoidSale flips a sale to voided and appends a compensating ADJUSTMENT
// movement restoring its quantity. The window check uses the server clock at
// call time; a client-side countdown is never authoritative.
func (s *Service) VoidSale(ctx context.Context, input VoidSaleInput) error {
	if input.SaleID == 0 {
		return ErrSaleNotFound
	}
	now := s.now().UTC()
	var sale StandSale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var e error
		sale, e = tx.GetSaleForUpdate(ctx, input.SaleID)
		if e != nil {
			return e
		}
		if sale.Voided {
			return ErrAlreadyVoided
		}
		if now.Sub(sale.CreatedAt) > s.voidWindow && !input.Override {
			return ErrVoidWindowExceeded
		}
		if e = tx.MarkVoided(ctx, sale.ID, now); e != nil {
			return e
		}
		_, e = tx.InsertMovement(ctx, ledger.Movement{
			ProductID:     sale.ProductID,
			Type:          ledger.MovementAdjustment,
			QuantityDelta: sale.Quantity,
			RefModule:     "POS",
			RefID:         sale.Ref,
			Notes:         fmt.Sprintf("void compensation for sale %d", sale.ID),
		})
		return e
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, input.ActorID, "pos:VOID_SALE", sale.ID, map[string]any{
		"product_id": sale.ProductID,
		"quantity":   sale.Quantity,
		"override":   input.Override,
	})
	s.bump(ctx)
	return nil
}

// GetSale loads one sale.
func (s *Service) GetSale(ctx context.Context, id int64) (StandSale, error) {
	return s.repo.GetSale(ctx, id)
}

// GetDailySalesSummary aggregates non-voided sales for a location and day.
func (s *Service) GetDailySalesSummary(ctx context.Context, locationID int64, day time.Time) (DailySalesSummary, error) {
	if locationID == 0 {
		return DailySalesSummary{}, fmt.Errorf("%w: location required", ErrInvalidSale)
	}
	return s.repo.SummaryByDay(ctx, locationID, day)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, saleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stand_sale",
		EntityID: fmt.Sprintf("%d", saleID),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	_ = s.invalidate.Bump(ctx)
}
