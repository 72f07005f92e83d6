package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stockpit-erp/stockpit-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CurrentStock(ctx context.Context, productID int64) (int64, error)
	StockLevels(ctx context.Context, productIDs []int64) (map[int64]int64, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// AppendMovement validates and appends one movement, returning its id.
// The append is the only side effect; no counter is touched anywhere.
func (s *Service) AppendMovement(ctx context.Context, input AppendMovementInput) (int64, error) {
	if input.ProductID == 0 {
		return 0, ErrProductRequired
	}
	if err := ValidateDelta(input.Type, input.QuantityDelta); err != nil {
		return 0, err
	}
	refModule := input.RefModule
	if refModule == "" {
		refModule = "LEDGER"
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var e error
		id, e = tx.InsertMovement(ctx, Movement{
			ProductID:     input.ProductID,
			Type:          input.Type,
			QuantityDelta: input.QuantityDelta,
			RefModule:     refModule,
			RefID:         input.RefID,
			Notes:         input.Notes,
		})
		return e
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, input.ActorID, fmt.Sprintf("ledger:%s", input.Type), id, map[string]any{
		"product_id": input.ProductID,
		"qty_delta":  input.QuantityDelta,
		"notes":      input.Notes,
	})
	return id, nil
}

// GetCurrentStock returns the fold of all movement deltas for the product.
func (s *Service) GetCurrentStock(ctx context.Context, productID int64) (int64, error) {
	if productID == 0 {
		return 0, ErrProductRequired
	}
	return s.repo.CurrentStock(ctx, productID)
}

// GetStockLevels returns one consistent snapshot of several products' stock.
func (s *Service) GetStockLevels(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	if len(productIDs) == 0 {
		return map[int64]int64{}, nil
	}
	return s.repo.StockLevels(ctx, productIDs)
}

// ListMovements returns movement history for a product.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, ErrProductRequired
	}
	return s.repo.ListMovements(ctx, filter)
}

// Reprocess converts origin units into destination units as one atomic unit:
// a REPROCESS_OUT on the origin and a REPROCESS_IN on the destination commit
// together or not at all.
func (s *Service) Reprocess(ctx context.Context, input ReprocessInput) error {
	if input.OriginProductID == 0 || input.DestProductID == 0 {
		return ErrProductRequired
	}
	if input.OriginProductID == input.DestProductID {
		return ErrSameProduct
	}
	if input.OriginQty <= 0 || input.DestQty <= 0 {
		return ErrInvalidQuantity
	}
	ref := uuid.NewString()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.InsertMovement(ctx, Movement{
			ProductID:     input.OriginProductID,
			Type:          MovementReprocessOut,
			QuantityDelta: -input.OriginQty,
			RefModule:     "LEDGER",
			RefID:         ref,
			Notes:         input.Notes,
		}); err != nil {
			return err
		}
		_, err := tx.InsertMovement(ctx, Movement{
			ProductID:     input.DestProductID,
			Type:          MovementReprocessIn,
			QuantityDelta: input.DestQty,
			RefModule:     "LEDGER",
			RefID:         ref,
			Notes:         input.Notes,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, input.ActorID, "ledger:REPROCESS", input.OriginProductID, map[string]any{
		"origin_product_id": input.OriginProductID,
		"origin_qty":        input.OriginQty,
		"dest_product_id":   input.DestProductID,
		"dest_qty":          input.DestQty,
		"ref":               ref,
	})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_movement",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
