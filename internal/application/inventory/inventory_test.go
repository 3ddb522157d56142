package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// MockPublisher simula el destino de alertas.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, a inventory.LowStockAlert) error {
	return m.Called(ctx, a).Error(0)
}

// MockEngine simula el motor de despacho.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Fulfill(ctx context.Context, req fulfillment.Request) (*fulfillment.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*fulfillment.Result)
	return res, args.Error(1)
}

type env struct {
	store   *memory.Store
	stock   *memory.StockRepo
	monitor *inventory.LowStockMonitor
	engine  *fulfillment.Engine
	orders  *memory.OrderRepo
	pub     *MockPublisher
	// seeder escribe por el motor sin notificar al monitor (carga inicial).
	seeder *fulfillment.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := memory.NewStore()
	s.PutWarehouse(entity.Warehouse{ID: "wh-1", Name: "Principal"})
	s.PutWarehouse(entity.Warehouse{ID: "wh-2", Name: "Norte"})
	s.PutItem(entity.Item{ID: "X", Name: "Arandela", UnitPrice: decimal.RequireFromString("0.50"), ReorderLevel: 5})
	s.PutItem(entity.Item{ID: "Y", Name: "Perno", UnitPrice: decimal.RequireFromString("3.00"), ReorderLevel: 2})

	pub := &MockPublisher{}
	stock := memory.NewStockRepository(s)
	monitor := inventory.NewLowStockMonitor(stock, memory.NewItemRepository(s), memory.NewInventoryLevelRepository(s), pub, zerolog.Nop())
	orders := memory.NewOrderRepository(s)
	engine := fulfillment.NewEngine(memory.NewTxRunner(s), orders, memory.NewItemRepository(s), memory.NewWarehouseRepository(s),
		monitor, fulfillment.Policy{}, zerolog.Nop())
	seeder := fulfillment.NewEngine(memory.NewTxRunner(s), orders, memory.NewItemRepository(s), memory.NewWarehouseRepository(s),
		nil, fulfillment.Policy{}, zerolog.Nop())
	return &env{store: s, stock: stock, monitor: monitor, engine: engine, orders: orders, pub: pub, seeder: seeder}
}

// seed deja qty unidades del par mediante un ajuste, con su entrada en el libro.
func (e *env) seed(t *testing.T, warehouseID, itemID string, qty int64) {
	t.Helper()
	_, err := e.seeder.Adjust(context.Background(), warehouseID, itemID, qty, "tester", "carga inicial", fulfillment.Options{})
	require.NoError(t, err)
}

func isAlert(wh, item string, low bool, qty int64) interface{} {
	return mock.MatchedBy(func(a inventory.LowStockAlert) bool {
		return a.WarehouseID == wh && a.ItemID == item && a.Low == low && a.Quantity == qty
	})
}

func TestLowStockMonitor_EscenarioReorden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.On("Publish", mock.Anything, isAlert("wh-1", "X", true, 3)).Return(nil).Once()

	_, err := e.engine.Adjust(ctx, "wh-1", "X", 3, "", "", fulfillment.Options{})
	require.NoError(t, err)

	low, err := e.monitor.IsLow(ctx, "wh-1", "X")
	require.NoError(t, err)
	assert.True(t, low)

	require.NoError(t, e.orders.Create(ctx, &entity.Order{
		ID: "so-1", Kind: entity.OrderKindSales, WarehouseID: "wh-1", Status: entity.SOStatusNew,
		Lines: []entity.OrderLine{{ID: "l1", OrderID: "so-1", ItemID: "X", Quantity: 1, UnitPrice: decimal.RequireFromString("0.50")}},
	}))
	_, err = e.engine.ShipSO(ctx, "so-1", "", "", fulfillment.Options{})
	require.NoError(t, err)

	// sigue bajo: no se repite la alerta
	low, err = e.monitor.IsLow(ctx, "wh-1", "X")
	require.NoError(t, err)
	assert.True(t, low)

	e.pub.On("Publish", mock.Anything, isAlert("wh-1", "X", false, 10)).Return(nil).Once()
	_, err = e.engine.ReturnCustomer(ctx, "wh-1", "X", 8, "", "")
	require.NoError(t, err)

	e.pub.AssertExpectations(t)
	e.pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestLowStockMonitor_ListLowPorBodega(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "wh-1", "X", 1) // déficit 4
	e.seed(t, "wh-2", "X", 4) // déficit 1
	e.seed(t, "wh-2", "Y", 9) // ok

	all, err := e.monitor.ListLow(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "wh-1", all[0].WarehouseID)

	only, err := e.monitor.ListLow(ctx, "wh-2")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, int64(4), only[0].Quantity)

	_, err = e.monitor.IsLow(ctx, "wh-1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLowStockMonitor_SweepPublicaUnaVez(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "wh-1", "X", 1)
	e.seed(t, "wh-1", "Y", 5)
	e.pub.On("Publish", mock.Anything, isAlert("wh-1", "X", true, 1)).Return(nil).Once()

	low, err := e.monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, low)

	low, err = e.monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, low)
	e.pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestLowStockMonitor_FalloAlPublicarSeReintenta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "wh-1", "X", 1)
	e.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker caído")).Once()
	e.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	keys := []entity.StockKey{{WarehouseID: "wh-1", ItemID: "X"}}
	assert.Error(t, e.monitor.Refresh(ctx, keys))
	assert.NoError(t, e.monitor.Refresh(ctx, keys))
	assert.NoError(t, e.monitor.Refresh(ctx, keys))
	e.pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestStockQuery_LedgerPaginadoYReanudable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	for i := 0; i < 7; i++ {
		_, err := e.engine.ReturnCustomer(ctx, "wh-1", "Y", 1, "", "")
		require.NoError(t, err)
	}
	q := inventory.NewStockQueryUseCase(e.stock, memory.NewLedgerRepository(e.store))

	page, next, err := q.LedgerPage(ctx, entity.LedgerFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(3), next)

	var ids []int64
	for entry, err := range q.ListLedger(ctx, entity.LedgerFilter{Limit: 2}) {
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, ids)

	ids = ids[:0]
	for entry := range q.ListLedger(ctx, entity.LedgerFilter{AfterID: 5, Limit: 2}) {
		ids = append(ids, entry.ID)
	}
	assert.Equal(t, []int64{6, 7}, ids)

	count := 0
	for range q.ListLedger(ctx, entity.LedgerFilter{Limit: 2}) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)

	row, err := q.CurrentQuantity(ctx, "wh-1", "Y")
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.Quantity)
}

func TestStockQuery_ReconcileDetectaDescuadre(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	_, err := e.engine.ReturnCustomer(ctx, "wh-1", "Y", 4, "", "")
	require.NoError(t, err)
	q := inventory.NewStockQueryUseCase(e.stock, memory.NewLedgerRepository(e.store))

	report, err := q.Reconcile(ctx, "")
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 1, report.Entries)

	// descuadre: delta confirmado sin su entrada del libro
	err = memory.NewTxRunner(e.store).Run(ctx, func(stock repository.StockRepository, _ repository.LedgerRepository, _ repository.OrderStatusRepository) error {
		_, err := stock.ApplyDelta(ctx, "wh-1", "Y", 2, false)
		return err
	})
	require.NoError(t, err)
	report, err = q.Reconcile(ctx, "wh-1")
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, int64(6), report.Discrepancies[0].Stored)
	assert.Equal(t, int64(4), report.Discrepancies[0].Replayed)
}

func TestReplenishment_CantidadYCosto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, "wh-1", "X", 1) // reorden 5 → ideal 8, sugerido 7
	e.seed(t, "wh-1", "Y", 1) // reorden 2 → ideal 3, sugerido 2

	list, err := inventory.NewReplenishmentUseCase(memory.NewInventoryLevelRepository(e.store)).GenerateReplenishmentList(ctx, "wh-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "X", list[0].ItemID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(8), list[0].IdealStock)
	assert.Equal(t, int64(7), list[0].SuggestedOrderQty)
	assert.Equal(t, "3.50", list[0].EstimatedOrderCost.StringFixed(2))
	assert.Equal(t, int64(2), list[1].SuggestedOrderQty)
	assert.Equal(t, "6.00", list[1].EstimatedOrderCost.StringFixed(2))

	empty, err := inventory.NewReplenishmentUseCase(memory.NewInventoryLevelRepository(e.store)).GenerateReplenishmentList(ctx, "wh-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRegisterMovement_MapeaTipos(t *testing.T) {
	eng := &MockEngine{}
	uc := inventory.NewRegisterMovementUseCase(eng)
	ctx := context.Background()

	eng.On("Fulfill", ctx, fulfillment.Request{
		Action: fulfillment.ActionReturnSupplier, WarehouseID: "wh-1", ItemID: "X", Quantity: 2,
		ActorID: "u-1", Options: fulfillment.Options{AllowNegative: true},
	}).Return(&fulfillment.Result{TransactionID: "tx"}, nil).Once()

	res, err := uc.RegisterMovementFromRequest(ctx, "u-1", dto.RegisterMovementRequest{
		WarehouseID: "wh-1", ItemID: "X", Type: inventory.MovementReturnSupplier, Quantity: 2, AllowNegative: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx", res.TransactionID)

	_, err = uc.RegisterMovementFromRequest(ctx, "u-1", dto.RegisterMovementRequest{Type: "TRANSFER"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	eng.AssertExpectations(t)
}
