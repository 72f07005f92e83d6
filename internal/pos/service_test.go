package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
	"github.com/stockpit-erp/stockpit-erp/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type memoryRepo struct {
	sales     map[int64]*StandSale
	movements []ledger.Movement
	nextID    int64
	now       func() time.Time

	failMovementInsert bool
	failSaleInsert     bool
}

type memoryTx struct {
	repo            *memoryRepo
	stagedSales     []StandSale
	stagedMovements []ledger.Movement
	stagedVoids     map[int64]time.Time
}

var errInjected = errors.New("injected storage failure")

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sales: make(map[int64]*StandSale), now: time.Now}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, stagedVoids: map[int64]time.Time{}}
	if err := fn(ctx, tx); err != nil {
		return httpx.Storage(err)
	}
	for i := range tx.stagedSales {
		sale := tx.stagedSales[i]
		r.sales[sale.ID] = &sale
	}
	for id, at := range tx.stagedVoids {
		voidedAt := at
		r.sales[id].Voided = true
		r.sales[id].VoidedAt = &voidedAt
	}
	r.movements = append(r.movements, tx.stagedMovements...)
	return nil
}

func (r *memoryRepo) GetSale(ctx context.Context, id int64) (StandSale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return StandSale{}, ErrSaleNotFound
	}
	return *sale, nil
}

func (r *memoryRepo) SummaryByDay(ctx context.Context, locationID int64, day time.Time) (DailySalesSummary, error) {
	summary := DailySalesSummary{
		LocationID:      locationID,
		Date:            day.Format("2006-01-02"),
		ByPaymentMethod: map[string]float64{},
		BySource:        map[string]float64{},
	}
	for _, sale := range r.sales {
		if sale.LocationID != locationID || sale.Voided {
			continue
		}
		summary.TotalQuantity += sale.Quantity
		summary.TotalRevenue += sale.TotalAmount
		summary.ByPaymentMethod[sale.PaymentMethod] += sale.TotalAmount
		summary.BySource[string(sale.Source)] += sale.TotalAmount
	}
	return summary, nil
}

func (r *memoryRepo) stock(productID int64) int64 {
	var sum int64
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum += m.QuantityDelta
		}
	}
	return sum
}

func (tx *memoryTx) InsertSale(ctx context.Context, sale StandSale) (int64, error) {
	if tx.repo.failSaleInsert {
		return 0, errInjected
	}
	tx.repo.nextID++
	sale.ID = tx.repo.nextID
	sale.CreatedAt = tx.repo.now()
	tx.stagedSales = append(tx.stagedSales, sale)
	return sale.ID, nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (StandSale, error) {
	return tx.repo.GetSale(ctx, id)
}

func (tx *memoryTx) MarkVoided(ctx context.Context, id int64, at time.Time) error {
	tx.stagedVoids[id] = at
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m ledger.Movement) (int64, error) {
	if tx.repo.failMovementInsert {
		return 0, errInjected
	}
	if err := ledger.ValidateDelta(m.Type, m.QuantityDelta); err != nil {
		return 0, err
	}
	tx.stagedMovements = append(tx.stagedMovements, m)
	return int64(len(tx.repo.movements) + len(tx.stagedMovements)), nil
}

type memoryIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (s *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// ============================================================================
// TESTS
// ============================================================================

func TestRegisterSaleWritesSaleAndMovementTogether(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	id, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 3, TotalAmount: 10.5})
	require.NoError(t, err)
	require.NotZero(t, id)

	sale, err := svc.GetSale(ctx, id)
	require.NoError(t, err)
	require.False(t, sale.Voided)
	require.Equal(t, PaymentCash, sale.PaymentMethod, "empty payment method defaults to cash")
	require.Equal(t, SourceTerminal, sale.Source)

	require.EqualValues(t, -3, repo.stock(7))
	require.Len(t, repo.movements, 1)
	require.Equal(t, ledger.MovementSale, repo.movements[0].Type)
	require.Equal(t, sale.Ref, repo.movements[0].RefID)
}

func TestRegisterSaleRollsBackWhenMovementFails(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil, ServiceConfig{})
	ctx := context.Background()

	repo.failMovementInsert = true
	_, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 3, TotalAmount: 10.5, ClientRef: "T1-0001"})
	require.ErrorIs(t, err, errInjected)

	require.Empty(t, repo.sales, "no orphaned sale row may survive a failed movement write")
	require.Empty(t, repo.movements)
	require.Contains(t, idem.deleted, "pos:sale:T1-0001", "idempotency key released for retry")
}

func TestRegisterSaleDuplicateClientRef(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 3, ClientRef: "T1-0002"})
	require.NoError(t, err)

	_, err = svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 3, ClientRef: "T1-0002"})
	require.ErrorIs(t, err, ErrDuplicateClientRef)
	require.Len(t, repo.sales, 1)
	require.EqualValues(t, -1, repo.stock(7), "retry must not double-deduct stock")
}

func TestRegisterSaleValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 0, TotalAmount: 5})
	require.ErrorIs(t, err, ErrInvalidSale)

	_, err = svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 0})
	require.ErrorIs(t, err, ErrInvalidSale)

	_, err = svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 5, PaymentMethod: "BARTER"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestVoidRestoresStockExactly(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	preSale := repo.stock(7)
	id, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 7})
	require.NoError(t, err)

	require.NoError(t, svc.VoidSale(ctx, VoidSaleInput{SaleID: id}))
	require.Equal(t, preSale, repo.stock(7), "void must restore stock to its pre-sale value")

	sale, err := svc.GetSale(ctx, id)
	require.NoError(t, err)
	require.True(t, sale.Voided)
	require.NotNil(t, sale.VoidedAt)

	// compensation is an ADJUSTMENT, the SALE movement stays in the log
	require.Len(t, repo.movements, 2)
	require.Equal(t, ledger.MovementSale, repo.movements[0].Type)
	require.Equal(t, ledger.MovementAdjustment, repo.movements[1].Type)
}

func TestVoidTwiceFailsWithoutDoubleCompensation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	id, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 7})
	require.NoError(t, err)
	require.NoError(t, svc.VoidSale(ctx, VoidSaleInput{SaleID: id}))

	err = svc.VoidSale(ctx, VoidSaleInput{SaleID: id})
	require.ErrorIs(t, err, ErrAlreadyVoided)
	require.EqualValues(t, 0, repo.stock(7), "second void must not change stock")
	require.Len(t, repo.movements, 2)
}

func TestVoidWindow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	svc.WithClock(func() time.Time { return base })

	id, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 2, TotalAmount: 7})
	require.NoError(t, err)

	// six minutes later, without override
	svc.WithClock(func() time.Time { return base.Add(6 * time.Minute) })
	err = svc.VoidSale(ctx, VoidSaleInput{SaleID: id})
	require.ErrorIs(t, err, ErrVoidWindowExceeded)
	require.EqualValues(t, -2, repo.stock(7), "stock unchanged after rejected void")

	sale, err := svc.GetSale(ctx, id)
	require.NoError(t, err)
	require.False(t, sale.Voided)

	// with override it succeeds
	require.NoError(t, svc.VoidSale(ctx, VoidSaleInput{SaleID: id, Override: true}))
	require.EqualValues(t, 0, repo.stock(7))
}

func TestVoidInsideWindowNeedsNoOverride(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	svc.WithClock(func() time.Time { return base })

	id, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 1, ProductID: 7, Quantity: 1, TotalAmount: 4})
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return base.Add(4 * time.Minute) })
	require.NoError(t, svc.VoidSale(ctx, VoidSaleInput{SaleID: id}))
}

func TestVoidUnknownSale(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil, ServiceConfig{})
	err := svc.VoidSale(context.Background(), VoidSaleInput{SaleID: 404})
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestDailySummarySkipsVoidedSales(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 3, ProductID: 7, Quantity: 2, TotalAmount: 8, PaymentMethod: PaymentTransfer})
	require.NoError(t, err)
	voided, err := svc.RegisterSale(ctx, RegisterSaleInput{LocationID: 3, ProductID: 7, Quantity: 5, TotalAmount: 20})
	require.NoError(t, err)
	require.NoError(t, svc.VoidSale(ctx, VoidSaleInput{SaleID: voided}))

	summary, err := svc.GetDailySalesSummary(ctx, 3, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.TotalQuantity)
	require.InDelta(t, 8.0, summary.TotalRevenue, 0.001)
	require.InDelta(t, 8.0, summary.ByPaymentMethod[PaymentTransfer], 0.001)
}
