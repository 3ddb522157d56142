package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Engine ejecuta recepciones de compra, despachos de venta, ajustes y devoluciones como
// una sola transacción: verifica disponibilidad, aplica los deltas de stock, registra una
// entrada del libro por línea y avanza el estado de la orden; o no deja nada aplicado.
type Engine struct {
	txRunner      TxRunner
	orderRepo     repository.OrderRepository
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
	notifier      StockNotifier
	locker        *KeyedLocker
	policy        Policy
	log           zerolog.Logger
	tracer        trace.Tracer
	newID         func() string
}

// NewEngine construye el motor. notifier puede ser nil.
func NewEngine(
	txRunner TxRunner,
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	notifier StockNotifier,
	policy Policy,
	log zerolog.Logger,
) *Engine {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Engine{
		txRunner:      txRunner,
		orderRepo:     orderRepo,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
		notifier:      notifier,
		locker:        NewKeyedLocker(),
		policy:        policy,
		log:           log,
		tracer:        otel.Tracer("stock-ledger/fulfillment"),
		newID:         func() string { return uuid.New().String() },
	}
}

// ReceivePO recibe todas las líneas de una orden de compra.
func (e *Engine) ReceivePO(ctx context.Context, orderID, actorID, note string) (*Result, error) {
	return e.Fulfill(ctx, Request{Action: ActionReceivePO, OrderID: orderID, ActorID: actorID, Note: note})
}

// ShipSO despacha todas las líneas de una orden de venta.
func (e *Engine) ShipSO(ctx context.Context, orderID, actorID, note string, opts Options) (*Result, error) {
	return e.Fulfill(ctx, Request{Action: ActionShipSO, OrderID: orderID, ActorID: actorID, Note: note, Options: opts})
}

// Adjust aplica un ajuste manual con signo (positivo suma, negativo resta).
func (e *Engine) Adjust(ctx context.Context, warehouseID, itemID string, qty int64, actorID, note string, opts Options) (*Result, error) {
	return e.Fulfill(ctx, Request{
		Action: ActionAdjust, WarehouseID: warehouseID, ItemID: itemID, Quantity: qty,
		ActorID: actorID, Note: note, Options: opts,
	})
}

// ReturnCustomer registra la devolución de un cliente (entra stock).
func (e *Engine) ReturnCustomer(ctx context.Context, warehouseID, itemID string, qty int64, actorID, note string) (*Result, error) {
	return e.Fulfill(ctx, Request{
		Action: ActionReturnCustomer, WarehouseID: warehouseID, ItemID: itemID, Quantity: qty,
		ActorID: actorID, Note: note,
	})
}

// ReturnSupplier registra la devolución a un proveedor (sale stock).
func (e *Engine) ReturnSupplier(ctx context.Context, warehouseID, itemID string, qty int64, actorID, note string, opts Options) (*Result, error) {
	return e.Fulfill(ctx, Request{
		Action: ActionReturnSupplier, WarehouseID: warehouseID, ItemID: itemID, Quantity: qty,
		ActorID: actorID, Note: note, Options: opts,
	})
}

// Fulfill ejecuta la acción. Ante domain.ErrConcurrentModification reintenta la llamada completa
// hasta Policy.MaxRetries veces. Cada intento confirmado notifica al monitor bajo el lock de la bodega.
func (e *Engine) Fulfill(ctx context.Context, req Request) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "fulfillment.Fulfill", trace.WithAttributes(
		attribute.String("action", string(req.Action)),
		attribute.String("order_id", req.OrderID),
		attribute.String("warehouse_id", req.WarehouseID),
		attribute.String("item_id", req.ItemID),
	))
	defer span.End()

	res, err := e.fulfillWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Debug().Err(err).Str("action", string(req.Action)).Str("order_id", req.OrderID).Msg("operación rechazada")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("transaction_id", res.TransactionID),
		attribute.Int("entries", len(res.Entries)),
		attribute.Int("attempts", res.Attempts),
	)
	e.log.Info().
		Str("action", string(req.Action)).
		Str("transaction_id", res.TransactionID).
		Str("order_id", res.OrderID).
		Int("entries", len(res.Entries)).
		Msg("operación confirmada")
	return res, nil
}

// notify refresca el monitor con los pares tocados. Se llama tras el commit y antes de soltar
// el lock de la bodega, así las observaciones de un mismo par llegan en orden de commit.
func (e *Engine) notify(ctx context.Context, res *Result) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Refresh(context.WithoutCancel(ctx), res.Touched()); err != nil {
		e.log.Error().Err(err).Str("transaction_id", res.TransactionID).Msg("no se pudo refrescar el monitor de bajo stock")
	}
}

func (e *Engine) fulfillWithRetry(ctx context.Context, req Request) (*Result, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxRetries+1; attempt++ {
		var res *Result
		var err error
		if req.Action.orderKind() != "" {
			res, err = e.fulfillOrder(ctx, req)
		} else {
			res, err = e.fulfillSingle(ctx, req)
		}
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConcurrentModification) || ctx.Err() != nil {
			break
		}
		e.log.Warn().Err(err).Int("attempt", attempt).Str("action", string(req.Action)).Msg("contención, reintentando")
	}
	return nil, lastErr
}

func (e *Engine) validate(req Request) error {
	if !req.Action.valid() {
		return fmt.Errorf("%w: acción desconocida %q", domain.ErrInvalidInput, req.Action)
	}
	if req.Action == ActionShipSO && req.Options.AllowNegative {
		return fmt.Errorf("%w: el despacho no admite stock negativo", domain.ErrInvalidInput)
	}
	if req.Action.orderKind() != "" {
		if req.OrderID == "" {
			return fmt.Errorf("%w: order_id requerido", domain.ErrInvalidInput)
		}
		return nil
	}
	if req.WarehouseID == "" || req.ItemID == "" {
		return fmt.Errorf("%w: warehouse_id e item_id requeridos", domain.ErrInvalidInput)
	}
	if req.Action == ActionAdjust && req.Quantity == 0 {
		return fmt.Errorf("%w: el ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	if req.Action != ActionAdjust && req.Quantity <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	return nil
}

// checkOrder valida tipo, líneas y estado elegible.
func checkOrder(o *entity.Order, action Action) error {
	if o == nil || o.Kind != action.orderKind() {
		return domain.ErrOrderNotFound
	}
	if len(o.Lines) == 0 {
		return domain.ErrOrderHasNoLines
	}
	if !o.IsFulfillable() {
		return &domain.InvalidOrderStateError{OrderID: o.ID, Status: o.Status, Action: string(action)}
	}
	return nil
}

func (e *Engine) fulfillOrder(ctx context.Context, req Request) (*Result, error) {
	order, err := e.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := checkOrder(order, req.Action); err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, order.WarehouseID, e.policy.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	mv := movements[req.Action]
	txID := e.newID()
	var (
		entries []*entity.LedgerEntry
		rows    []entity.StockRow
		status  string
	)
	err = e.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		orderRepo repository.OrderStatusRepository,
	) error {
		if err := stockRepo.LockWarehouse(ctx, order.WarehouseID); err != nil {
			return err
		}
		// Releer bajo el lock: otra llamada pudo completar la orden mientras esperábamos.
		current, err := orderRepo.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := checkOrder(current, req.Action); err != nil {
			return err
		}
		if current.WarehouseID != order.WarehouseID {
			return domain.ConcurrentModification("order warehouse changed", nil)
		}

		if req.Action == ActionShipSO && !req.Options.SkipPreCheck {
			if err := preCheck(ctx, stockRepo, current); err != nil {
				return err
			}
		}

		mctx := context.WithoutCancel(ctx)
		deltas := make([]lineDelta, 0, len(current.Lines))
		for _, l := range current.Lines {
			deltas = append(deltas, lineDelta{itemID: l.ItemID, delta: mv.sign * l.Quantity})
		}
		entries, rows, err = e.apply(mctx, stockRepo, ledgerRepo, applyArgs{
			txID:        txID,
			warehouseID: current.WarehouseID,
			refID:       current.ID,
			mv:          mv,
			lines:       deltas,
			req:         req,
		})
		if err != nil {
			return err
		}
		status = entity.TerminalStatus(current.Kind)
		return orderRepo.UpdateStatus(mctx, current.ID, current.Status, status)
	})
	if err != nil {
		return nil, err
	}
	res := newResult(txID, order.ID, status, entries, rows)
	e.notify(ctx, res)
	return res, nil
}

func (e *Engine) fulfillSingle(ctx context.Context, req Request) (*Result, error) {
	item, err := e.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, req.ItemID)
	}
	wh, err := e.warehouseRepo.GetByID(ctx, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, req.WarehouseID)
	}

	unlock, err := e.locker.Lock(ctx, wh.ID, e.policy.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	mv := movements[req.Action]
	txID := e.newID()
	allowNegative := e.policy.allowNegative(req.Action) || req.Options.AllowNegative
	var (
		entries []*entity.LedgerEntry
		rows    []entity.StockRow
	)
	err = e.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		_ repository.OrderStatusRepository,
	) error {
		if err := stockRepo.LockWarehouse(ctx, wh.ID); err != nil {
			return err
		}
		var err error
		entries, rows, err = e.apply(context.WithoutCancel(ctx), stockRepo, ledgerRepo, applyArgs{
			txID:          txID,
			warehouseID:   wh.ID,
			mv:            mv,
			lines:         []lineDelta{{itemID: item.ID, delta: mv.sign * req.Quantity}},
			allowNegative: allowNegative,
			req:           req,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	res := newResult(txID, "", "", entries, rows)
	e.notify(ctx, res)
	return res, nil
}

// preCheck agrupa lo solicitado por ítem y lo compara con lo disponible, sin mutar nada.
func preCheck(ctx context.Context, stockRepo repository.StockRepository, o *entity.Order) error {
	requested := make(map[string]int64, len(o.Lines))
	order := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := requested[l.ItemID]; !ok {
			order = append(order, l.ItemID)
		}
		requested[l.ItemID] += l.Quantity
	}
	for _, itemID := range order {
		row, err := stockRepo.GetForUpdate(ctx, o.WarehouseID, itemID)
		if err != nil {
			return err
		}
		if row.Quantity < requested[itemID] {
			return &domain.InsufficientStockError{
				WarehouseID: o.WarehouseID,
				ItemID:      itemID,
				Available:   row.Quantity,
				Requested:   requested[itemID],
			}
		}
	}
	return nil
}

type lineDelta struct {
	itemID string
	delta  int64
}

type applyArgs struct {
	txID          string
	warehouseID   string
	refID         string
	mv            movement
	lines         []lineDelta
	allowNegative bool
	req           Request
}

// apply es la pasada de mutación: por línea, delta de stock y luego su entrada del libro.
// Cualquier error aborta la transacción completa.
func (e *Engine) apply(
	ctx context.Context,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	args applyArgs,
) ([]*entity.LedgerEntry, []entity.StockRow, error) {
	entries := make([]*entity.LedgerEntry, 0, len(args.lines))
	final := make(map[entity.StockKey]int, len(args.lines))
	var rows []entity.StockRow
	// por ítem: total de la operación y lo ya aplicado en esta tx
	total := make(map[string]int64, len(args.lines))
	for _, l := range args.lines {
		total[l.itemID] += l.delta
	}
	applied := make(map[string]int64, len(args.lines))

	for _, l := range args.lines {
		qty, err := stockRepo.ApplyDelta(ctx, args.warehouseID, l.itemID, l.delta, args.allowNegative)
		if err != nil {
			var neg *domain.NegativeStockError
			if args.req.Action == ActionShipSO && errors.As(err, &neg) {
				// mismo detalle que la verificación previa: disponible confirmado y total pedido del ítem
				return nil, nil, &domain.InsufficientStockError{
					WarehouseID: neg.WarehouseID,
					ItemID:      neg.ItemID,
					Available:   neg.Current - applied[l.itemID],
					Requested:   -total[l.itemID],
				}
			}
			return nil, nil, err
		}
		applied[l.itemID] += l.delta
		if qty < 0 {
			e.log.Warn().
				Str("warehouse_id", args.warehouseID).
				Str("item_id", l.itemID).
				Int64("quantity", qty).
				Str("action", string(args.req.Action)).
				Msg("stock negativo permitido por política")
		}

		entry := &entity.LedgerEntry{
			TransactionID: args.txID,
			WarehouseID:   args.warehouseID,
			ItemID:        l.itemID,
			ChangeType:    args.mv.changeType,
			DeltaQty:      l.delta,
			RefType:       args.mv.refType,
			RefID:         args.refID,
			ActorID:       args.req.ActorID,
			Note:          args.req.Note,
		}
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)

		key := entity.StockKey{WarehouseID: args.warehouseID, ItemID: l.itemID}
		row := entity.StockRow{WarehouseID: args.warehouseID, ItemID: l.itemID, Quantity: qty}
		if i, ok := final[key]; ok {
			rows[i] = row
		} else {
			final[key] = len(rows)
			rows = append(rows, row)
		}
	}
	return entries, rows, nil
}

// newResult copia las entradas después del commit, cuando ya tienen ID y fecha.
func newResult(txID, orderID, status string, entries []*entity.LedgerEntry, rows []entity.StockRow) *Result {
	res := &Result{
		TransactionID: txID,
		OrderID:       orderID,
		OrderStatus:   status,
		Entries:       make([]entity.LedgerEntry, 0, len(entries)),
		Quantities:    rows,
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, *e)
	}
	for i := range res.Quantities {
		if len(res.Entries) > 0 {
			res.Quantities[i].UpdatedAt = res.Entries[len(res.Entries)-1].LoggedAt
		}
	}
	return res
}

// Exclusive ejecuta fn con el lock de la bodega, el mismo que toman las operaciones del motor.
// Lo usan las ediciones de órdenes para no cruzarse con una recepción o despacho en curso.
func (e *Engine) Exclusive(ctx context.Context, warehouseID string, fn func() error) error {
	unlock, err := e.locker.Lock(ctx, warehouseID, e.policy.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
