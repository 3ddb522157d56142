package fulfillment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const wh = "wh-1"

type recordingNotifier struct {
	mu   sync.Mutex
	keys [][]entity.StockKey
}

func (n *recordingNotifier) Refresh(_ context.Context, keys []entity.StockKey) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, keys)
	return nil
}

type fixture struct {
	store    *memory.Store
	engine   *fulfillment.Engine
	orders   *memory.OrderRepo
	stock    *memory.StockRepo
	ledger   *memory.LedgerRepo
	notifier *recordingNotifier
}

func newFixture(t *testing.T, policy fulfillment.Policy) *fixture {
	t.Helper()
	s := memory.NewStore()
	s.PutWarehouse(entity.Warehouse{ID: wh, Name: "Principal"})
	s.PutItem(entity.Item{ID: "A", Name: "Tornillo", UnitOfMeasure: "und", UnitPrice: decimal.RequireFromString("2.00"), ReorderLevel: 1})
	s.PutItem(entity.Item{ID: "B", Name: "Tuerca", UnitOfMeasure: "und", UnitPrice: decimal.RequireFromString("1.00"), ReorderLevel: 1})
	s.PutItem(entity.Item{ID: "X", Name: "Arandela", UnitOfMeasure: "und", UnitPrice: decimal.RequireFromString("0.50"), ReorderLevel: 5})

	n := &recordingNotifier{}
	orders := memory.NewOrderRepository(s)
	eng := fulfillment.NewEngine(
		memory.NewTxRunner(s),
		orders,
		memory.NewItemRepository(s),
		memory.NewWarehouseRepository(s),
		n,
		policy,
		zerolog.Nop(),
	)
	return &fixture{
		store:    s,
		engine:   eng,
		orders:   orders,
		stock:    memory.NewStockRepository(s),
		ledger:   memory.NewLedgerRepository(s),
		notifier: n,
	}
}

func (f *fixture) createOrder(t *testing.T, id, kind string, lines ...entity.OrderLine) {
	t.Helper()
	o := &entity.Order{
		ID:          id,
		Kind:        kind,
		WarehouseID: wh,
		OrderDate:   time.Now(),
		Status:      entity.InitialStatus(kind),
		CreatedAt:   time.Now(),
	}
	for i := range lines {
		lines[i].OrderID = id
		if lines[i].ID == "" {
			lines[i].ID = id + "-" + lines[i].ItemID
		}
	}
	o.Lines = lines
	require.NoError(t, f.orders.Create(context.Background(), o))
}

func (f *fixture) quantity(t *testing.T, item string) int64 {
	t.Helper()
	row, err := f.stock.Get(context.Background(), wh, item)
	require.NoError(t, err)
	return row.Quantity
}

func (f *fixture) entries(t *testing.T) []*entity.LedgerEntry {
	t.Helper()
	list, err := f.ledger.List(context.Background(), entity.LedgerFilter{})
	require.NoError(t, err)
	return list
}

func (f *fixture) seed(t *testing.T, item string, qty int64) {
	t.Helper()
	_, err := f.engine.Adjust(context.Background(), wh, item, qty, "", "inventario inicial", fulfillment.Options{})
	require.NoError(t, err)
}

func line(item string, qty int64, price string) entity.OrderLine {
	return entity.OrderLine{ItemID: item, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func assertReplayMatches(t *testing.T, f *fixture) {
	t.Helper()
	r := inventory.NewReplayer()
	for _, e := range f.entries(t) {
		r.Add(*e)
	}
	rows, err := f.stock.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, r.Diff(rows))
}

func TestReceivePO_SumaLineasYCierraOrden(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 10, "2.00"), line("B", 5, "1.00"))

	res, err := f.engine.ReceivePO(context.Background(), "po-1", "user-1", "")
	require.NoError(t, err)

	assert.Equal(t, int64(10), f.quantity(t, "A"))
	assert.Equal(t, int64(5), f.quantity(t, "B"))
	assert.Equal(t, entity.POStatusReceived, res.OrderStatus)
	require.Len(t, res.Entries, 2)
	for _, e := range res.Entries {
		assert.Equal(t, entity.ChangeTypeIN, e.ChangeType)
		assert.Equal(t, entity.RefTypePO, e.RefType)
		assert.Equal(t, "po-1", e.RefID)
		assert.Equal(t, "user-1", e.ActorID)
		assert.Equal(t, res.TransactionID, e.TransactionID)
		assert.NotZero(t, e.ID)
	}
	assert.Less(t, res.Entries[0].ID, res.Entries[1].ID)

	o, err := f.orders.GetByID(context.Background(), "po-1")
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReceived, o.Status)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.Total()))

	require.Len(t, f.notifier.keys, 1)
	assert.ElementsMatch(t, []entity.StockKey{{WarehouseID: wh, ItemID: "A"}, {WarehouseID: wh, ItemID: "B"}}, f.notifier.keys[0])
	assertReplayMatches(t, f)
}

func TestReceivePO_OrdenYaRecibidaRechaza(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 10, "2.00"))
	_, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
	require.NoError(t, err)

	_, err = f.engine.ReceivePO(context.Background(), "po-1", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
	var stateErr *domain.InvalidOrderStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.POStatusReceived, stateErr.Status)

	assert.Equal(t, int64(10), f.quantity(t, "A"))
	assert.Len(t, f.entries(t), 1)
}

func TestFulfill_OrdenInexistenteOTipoIncorrecto(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 1, "2.00"))

	_, err := f.engine.ReceivePO(context.Background(), "no-existe", "", "")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.engine.ShipSO(context.Background(), "po-1", "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestFulfill_OrdenSinLineas(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "so-1", entity.OrderKindSales)

	_, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, domain.ErrOrderHasNoLines)
}

func TestShipSO_EscenarioBajoStock(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.seed(t, "X", 3)

	f.createOrder(t, "so-1", entity.OrderKindSales, line("X", 1, "0.50"))
	res, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{})
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusShipped, res.OrderStatus)
	require.Len(t, res.Quantities, 1)
	assert.Equal(t, int64(2), res.Quantities[0].Quantity)
	assert.Equal(t, int64(-1), res.Entries[0].DeltaQty)
	assert.Equal(t, entity.ChangeTypeOUT, res.Entries[0].ChangeType)
	assert.Equal(t, entity.RefTypeSO, res.Entries[0].RefType)

	f.createOrder(t, "so-2", entity.OrderKindSales, line("X", 5, "0.50"))
	_, err = f.engine.ShipSO(context.Background(), "so-2", "", "", fulfillment.Options{})
	require.Error(t, err)
	var short *domain.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "X", short.ItemID)
	assert.Equal(t, int64(2), short.Available)
	assert.Equal(t, int64(5), short.Requested)

	assert.Equal(t, int64(2), f.quantity(t, "X"))
	o, err := f.orders.GetByID(context.Background(), "so-2")
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusNew, o.Status)
	assert.Len(t, f.entries(t), 2)
	assertReplayMatches(t, f)
}

func TestShipSO_VerificacionAgregaPorItem(t *testing.T) {
	for _, skip := range []bool{false, true} {
		f := newFixture(t, fulfillment.Policy{})
		f.seed(t, "A", 5)
		f.createOrder(t, "so-1", entity.OrderKindSales,
			entity.OrderLine{ID: "l1", ItemID: "A", Quantity: 3, UnitPrice: decimal.RequireFromString("2.00")},
			entity.OrderLine{ID: "l2", ItemID: "A", Quantity: 3, UnitPrice: decimal.RequireFromString("2.00")},
		)

		_, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{SkipPreCheck: skip})
		var short *domain.InsufficientStockError
		require.ErrorAs(t, err, &short, "skip=%v", skip)
		assert.Equal(t, "A", short.ItemID)
		assert.Equal(t, int64(5), short.Available, "skip=%v", skip)
		assert.Equal(t, int64(6), short.Requested, "skip=%v", skip)
		assert.Equal(t, int64(5), f.quantity(t, "A"))
	}
}

func TestShipSO_SinVerificacionPreviaIgualRechazaNegativo(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.seed(t, "A", 2)
	f.createOrder(t, "so-1", entity.OrderKindSales, line("A", 3, "2.00"))

	_, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{SkipPreCheck: true})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(2), f.quantity(t, "A"))
}

func TestShipSO_NoAdmiteAllowNegative(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "so-1", entity.OrderKindSales, line("A", 3, "2.00"))

	_, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{AllowNegative: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.entries(t))
}

func TestFulfill_FalloEnLineaRevierteTodo(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 10, "2.00"), line("B", 5, "1.00"), line("X", 7, "0.50"))

	boom := errors.New("disco lleno")
	f.store.SetFault(func(op string, key entity.StockKey) error {
		if op == memory.OpAppendLedger && key.ItemID == "B" {
			return boom
		}
		return nil
	})

	_, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, f.quantity(t, "A"))
	assert.Zero(t, f.quantity(t, "B"))
	assert.Empty(t, f.entries(t))
	o, err := f.orders.GetByID(context.Background(), "po-1")
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusCreated, o.Status)
	assert.Empty(t, f.notifier.keys)

	f.store.SetFault(nil)
	_, err = f.engine.ReceivePO(context.Background(), "po-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.quantity(t, "X"))
	assertReplayMatches(t, f)
}

func TestShipSO_FalloEnLineaRevierteTodo(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.seed(t, "A", 10)
	f.seed(t, "B", 10)
	f.seed(t, "X", 10)
	before := len(f.entries(t))
	f.createOrder(t, "so-1", entity.OrderKindSales, line("A", 2, "2.00"), line("B", 3, "1.00"), line("X", 4, "0.50"))

	boom := errors.New("disco lleno")
	f.store.SetFault(func(op string, key entity.StockKey) error {
		if op == memory.OpApplyDelta && key.ItemID == "X" {
			return boom
		}
		return nil
	})

	_, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, boom)

	for _, item := range []string{"A", "B", "X"} {
		assert.Equal(t, int64(10), f.quantity(t, item), item)
	}
	assert.Len(t, f.entries(t), before)
	o, err := f.orders.GetByID(context.Background(), "so-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusNew, o.Status)
	assertReplayMatches(t, f)

	f.store.SetFault(nil)
	res, err := f.engine.ShipSO(context.Background(), "so-1", "", "", fulfillment.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, int64(6), f.quantity(t, "X"))
	assertReplayMatches(t, f)
}

func TestFulfill_FalloEnCommitNoDejaRastro(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 10, "2.00"))
	f.store.SetFault(func(op string, _ entity.StockKey) error {
		if op == memory.OpCommit {
			return errors.New("conexión perdida")
		}
		return nil
	})

	_, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, f.quantity(t, "A"))
	assert.Empty(t, f.entries(t))
}

func TestFulfill_ReintentaConflictoConcurrente(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{MaxRetries: 2})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 4, "2.00"))

	var calls atomic.Int32
	f.store.SetFault(func(op string, _ entity.StockKey) error {
		if op == memory.OpCommit && calls.Add(1) == 1 {
			return domain.ConcurrentModification("commit", nil)
		}
		return nil
	})

	res, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int64(4), f.quantity(t, "A"))
	assert.Len(t, f.entries(t), 1)
}

func TestFulfill_SinReintentosDevuelveConflicto(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{MaxRetries: 0})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 4, "2.00"))
	f.store.SetFault(func(op string, _ entity.StockKey) error {
		if op == memory.OpCommit {
			return domain.ConcurrentModification("commit", nil)
		}
		return nil
	})

	_, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Zero(t, f.quantity(t, "A"))
}

func TestFulfill_TimeoutDeLockEsConflicto(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{LockTimeout: 20 * time.Millisecond})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 1, "2.00"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.SetFault(func(op string, _ entity.StockKey) error {
		if op == memory.OpApplyDelta {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.ReceivePO(context.Background(), "po-1", "", "")
		done <- err
	}()
	<-entered

	_, err := f.engine.ReturnCustomer(context.Background(), wh, "B", 1, "", "")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, f.quantity(t, "B"))
}

func TestFulfill_ContextoCanceladoNoAplica(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.createOrder(t, "po-1", entity.OrderKindPurchase, line("A", 1, "2.00"))

	ctx, cancel := context.WithCancel(context.Background())
	f.store.SetFault(func(op string, _ entity.StockKey) error {
		if op == memory.OpAppendLedger {
			cancel()
		}
		return nil
	})

	_, err := f.engine.ReceivePO(ctx, "po-1", "", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.quantity(t, "A"))
	assert.Empty(t, f.entries(t))
}

func TestShipSO_ConcurrenciaNoSobrevende(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{MaxRetries: 3})
	f.seed(t, "A", 10)
	const n = 25
	for i := 0; i < n; i++ {
		f.createOrder(t, "so-"+string(rune('a'+i)), entity.OrderKindSales, line("A", 1, "2.00"))
	}

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.engine.ShipSO(context.Background(), id, "", "", fulfillment.Options{})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				short.Add(1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}("so-" + string(rune('a'+i)))
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(n-10), short.Load())
	assert.Zero(t, f.quantity(t, "A"))
	assertReplayMatches(t, f)
}

func TestAdjust_Validaciones(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})

	_, err := f.engine.Adjust(context.Background(), wh, "A", 0, "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.Adjust(context.Background(), wh, "no-existe", 1, "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.Adjust(context.Background(), "bodega-x", "A", 1, "", "", fulfillment.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.ReturnCustomer(context.Background(), wh, "A", -1, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdjust_SignoYPolitica(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.seed(t, "A", 4)

	res, err := f.engine.Adjust(context.Background(), wh, "A", -3, "user-9", "conteo físico", fulfillment.Options{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, entity.ChangeTypeADJUST, e.ChangeType)
	assert.Equal(t, entity.RefTypeManual, e.RefType)
	assert.Empty(t, e.RefID)
	assert.Equal(t, int64(-3), e.DeltaQty)
	assert.Equal(t, "conteo físico", e.Note)
	assert.Equal(t, int64(1), f.quantity(t, "A"))

	_, err = f.engine.Adjust(context.Background(), wh, "A", -2, "", "", fulfillment.Options{})
	var neg *domain.NegativeStockError
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, int64(1), neg.Current)
	assert.Equal(t, int64(-2), neg.Delta)

	pf := newFixture(t, fulfillment.Policy{AllowNegativeAdjust: true})
	_, err = pf.engine.Adjust(context.Background(), wh, "A", -2, "", "", fulfillment.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), pf.quantity(t, "A"))
}

func TestReturnSupplier_AmbasRamasDeAllowNegative(t *testing.T) {
	t.Run("rechaza sin permiso", func(t *testing.T) {
		f := newFixture(t, fulfillment.Policy{})
		f.seed(t, "B", 1)
		_, err := f.engine.ReturnSupplier(context.Background(), wh, "B", 3, "", "", fulfillment.Options{})
		assert.ErrorIs(t, err, domain.ErrNegativeStockRejected)
		assert.Equal(t, int64(1), f.quantity(t, "B"))
		assert.Len(t, f.entries(t), 1)
	})

	t.Run("permite por opción de llamada", func(t *testing.T) {
		f := newFixture(t, fulfillment.Policy{})
		f.seed(t, "B", 1)
		res, err := f.engine.ReturnSupplier(context.Background(), wh, "B", 3, "", "", fulfillment.Options{AllowNegative: true})
		require.NoError(t, err)
		assert.Equal(t, int64(-2), f.quantity(t, "B"))
		assert.Equal(t, entity.ChangeTypeOUT, res.Entries[0].ChangeType)
		assert.Equal(t, entity.RefTypeReturnSupp, res.Entries[0].RefType)
		assertReplayMatches(t, f)
	})

	t.Run("permite por política", func(t *testing.T) {
		f := newFixture(t, fulfillment.Policy{AllowNegativeReturnSupplier: true})
		_, err := f.engine.ReturnSupplier(context.Background(), wh, "B", 2, "", "", fulfillment.Options{})
		require.NoError(t, err)
		assert.Equal(t, int64(-2), f.quantity(t, "B"))
	})
}

func TestReturnCustomer_EntraStock(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	res, err := f.engine.ReturnCustomer(context.Background(), wh, "X", 2, "user-2", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ChangeTypeIN, res.Entries[0].ChangeType)
	assert.Equal(t, entity.RefTypeReturnCust, res.Entries[0].RefType)
	assert.Equal(t, int64(2), f.quantity(t, "X"))
}

func TestFulfill_LecturasIdempotentes(t *testing.T) {
	f := newFixture(t, fulfillment.Policy{})
	f.seed(t, "A", 7)

	first, err := f.stock.Get(context.Background(), wh, "A")
	require.NoError(t, err)
	second, err := f.stock.Get(context.Background(), wh, "A")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.entries(t), 1)
}
